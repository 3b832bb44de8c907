package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/ndv"
	"github.com/tlambert03/ndv/viewer"
)

func testServer(t *testing.T) (*Server, *viewer.ArrayViewer) {
	t.Helper()
	values := make([]float64, 4*3*8*8)
	for i := range values {
		values[i] = float64(i)
	}
	arr, err := data.FromValues(values, 4, 3, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	w, err := data.NewRAM(arr, "t", "c", "y", "x")
	if err != nil {
		t.Fatal(err)
	}
	v := viewer.New(viewer.WithWorkers(2))
	t.Cleanup(v.Close)
	if err := v.SetData(context.Background(), w); err != nil {
		t.Fatal(err)
	}
	return NewServer(DefaultConfig(), v), v
}

func TestGetModel(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/model")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET model: status %d", resp.StatusCode)
	}
	var doc map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decoding model: %v", err)
	}
	if doc["channel_mode"] != "grayscale" {
		t.Errorf("channel_mode: got %v", doc["channel_mode"])
	}
}

func TestPutModel(t *testing.T) {
	s, v := testServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body := `{
		"visible_axes": [-2, -1],
		"channel_mode": "composite",
		"channel_axis": "c",
		"current_index": {"t": 1}
	}`
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/model", strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT model: status %d", resp.StatusCode)
	}
	if got := v.Model().ChannelMode; string(got) != "composite" {
		t.Errorf("mode after PUT: got %s", got)
	}

	// malformed documents are a client error
	req, _ = http.NewRequest(http.MethodPut, srv.URL+"/api/v1/model", strings.NewReader(`{"visible_axes": [0]}`))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid model: status %d, want 400", resp.StatusCode)
	}
}

func TestPostIndex(t *testing.T) {
	s, v := testServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/model/index/t", "application/json",
		strings.NewReader("2"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST index: status %d", resp.StatusCode)
	}
	x, ok := v.Model().CurrentIndex[ndv.NamedAxis("t")]
	if !ok || x.IsSlice() || x.Point() != 2 {
		t.Errorf("index after POST: got %v", x)
	}

	// ranges work too
	resp, err = http.Post(srv.URL+"/api/v1/model/index/t", "application/json",
		strings.NewReader("[0, 2]"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST range index: status %d", resp.StatusCode)
	}

	// unknown axes are a client error
	resp, err = http.Post(srv.URL+"/api/v1/model/index/q", "application/json",
		strings.NewReader("0"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown axis: status %d, want 400", resp.StatusCode)
	}
}

func TestGetInfo(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/info")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var info map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info["dtype"] != "float64" {
		t.Errorf("dtype: got %v", info["dtype"])
	}
	labels, _ := info["labels"].([]interface{})
	if len(labels) != 4 || labels[1] != "c" {
		t.Errorf("labels: got %v", info["labels"])
	}
}

func TestGetView(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/view")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET view: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type: got %q", ct)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decoding view: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("view bounds: got %v", img.Bounds())
	}
}

func TestUnknownRoute(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/nothing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown route: status %d, want 404", resp.StatusCode)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[server]
httpAddress = "localhost:9000"
corsOrigins = ["http://localhost:5173"]
workers = 8

[logging]
logfile = "viewer.log"
max_log_size = 100
max_log_age = 30

[cache.response]
size = 64

[dataset]
ref = "https://example.com/data.zarr"
labels = ["t", "c", "y", "x"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Server.HTTPAddress != "localhost:9000" || c.Server.Workers != 8 {
		t.Errorf("server config: got %+v", c.Server)
	}
	if c.CacheMB("response") != 64 {
		t.Errorf("cache size: got %d", c.CacheMB("response"))
	}
	if c.Dataset.Ref != "https://example.com/data.zarr" {
		t.Errorf("dataset ref: got %q", c.Dataset.Ref)
	}
	if !filepath.IsAbs(c.Logging.Logfile) {
		t.Errorf("logfile must be resolved to an absolute path, got %q", c.Logging.Logfile)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Errorf("missing config file must error")
	}
}
