package zarr

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/tlambert03/ndv/ndv"
	"github.com/tlambert03/ndv/storage"
)

func TestParseDType(t *testing.T) {
	tests := []struct {
		typestr string
		name    string
		size    int
	}{
		{"|u1", "uint8", 1},
		{"|i1", "int8", 1},
		{"|b1", "bool", 1},
		{"<u2", "uint16", 2},
		{"<i4", "int32", 4},
		{">u2", "uint16", 2},
		{"<f4", "float32", 4},
		{">f8", "float64", 8},
	}
	for _, tc := range tests {
		dt, err := ParseDType(tc.typestr)
		if err != nil {
			t.Errorf("ParseDType(%q): %v", tc.typestr, err)
			continue
		}
		if dt.Name() != tc.name || dt.Size() != tc.size {
			t.Errorf("ParseDType(%q): got %s/%d, want %s/%d",
				tc.typestr, dt.Name(), dt.Size(), tc.name, tc.size)
		}
		if dt.String() != tc.typestr {
			t.Errorf("ParseDType(%q).String(): got %q", tc.typestr, dt.String())
		}
	}
	for _, bad := range []string{"", "u2", "<x4", "|u2", "<f1", "<u3"} {
		if _, err := ParseDType(bad); err == nil {
			t.Errorf("ParseDType(%q) must fail", bad)
		}
	}
}

func TestDTypeDecode(t *testing.T) {
	dt, err := ParseDType("<i2")
	if err != nil {
		t.Fatal(err)
	}
	// -3 little-endian is fd ff
	vals, err := dt.Decode([]byte{0xfd, 0xff, 0x2a, 0x00}, 2)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if vals[0] != -3 || vals[1] != 42 {
		t.Errorf("decoded values: got %v, want [-3 42]", vals)
	}
	if _, err := dt.Decode([]byte{1}, 2); err == nil {
		t.Errorf("short chunk must fail to decode")
	}
}

func TestGridShapeAndChunkKey(t *testing.T) {
	grid := GridShape([]int{10, 7}, []int{4, 4})
	if grid[0] != 3 || grid[1] != 2 {
		t.Errorf("GridShape: got %v, want [3 2]", grid)
	}
	if got := ChunkKey([]int{1, 4}, "."); got != "1.4" {
		t.Errorf("ChunkKey: got %q, want 1.4", got)
	}
	if got := ChunkKey([]int{2, 0, 1}, "/"); got != "2/0/1" {
		t.Errorf("nested ChunkKey: got %q, want 2/0/1", got)
	}
	if got := ChunkKey(nil, "."); got != "0" {
		t.Errorf("scalar ChunkKey: got %q, want 0", got)
	}
}

// writeTestArray stores a 2-d uint16 ramp array under path, returning the
// expected value at (y, x).  Shape 10x7, chunks 4x4, values y*100 + x.  The
// chunk at grid (2, 1) is withheld so reads of it see the fill value.
func writeTestArray(t *testing.T, store storage.WritableStore, path string, compressor *CompressorMeta, separator string) {
	t.Helper()
	ctx := context.Background()
	meta := map[string]interface{}{
		"zarr_format": 2,
		"shape":       []int{10, 7},
		"chunks":      []int{4, 4},
		"dtype":       "<u2",
		"order":       "C",
		"fill_value":  9999,
		"filters":     nil,
	}
	if compressor != nil {
		meta["compressor"] = compressor
	} else {
		meta["compressor"] = nil
	}
	if separator != "" {
		meta["dimension_separator"] = separator
	} else {
		separator = "."
	}
	doc, err := json.Marshal(meta)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, path+"/"+ArrayMetaKey, doc); err != nil {
		t.Fatal(err)
	}

	for cy := 0; cy < 3; cy++ {
		for cx := 0; cx < 2; cx++ {
			if cy == 2 && cx == 1 {
				continue // missing chunk
			}
			// chunks are stored full-size even when overhanging the edge
			buf := new(bytes.Buffer)
			for y := cy * 4; y < cy*4+4; y++ {
				for x := cx * 4; x < cx*4+4; x++ {
					binary.Write(buf, binary.LittleEndian, uint16(y*100+x))
				}
			}
			raw := buf.Bytes()
			if compressor != nil && compressor.ID == "zlib" {
				var zbuf bytes.Buffer
				zw := zlib.NewWriter(&zbuf)
				zw.Write(raw)
				zw.Close()
				raw = zbuf.Bytes()
			}
			key := fmt.Sprintf("%s/%d%s%d", path, cy, separator, cx)
			if err := store.Put(ctx, key, raw); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestOpenAndReadSlice(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	writeTestArray(t, store, "0", nil, "")

	arr, err := Open(ctx, store, "0")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := arr.Shape(); got[0] != 10 || got[1] != 7 {
		t.Fatalf("shape: got %v", got)
	}
	if arr.Meta().DType.Name() != "uint16" {
		t.Errorf("dtype: got %s", arr.Meta().DType.Name())
	}

	// a slice spanning chunk boundaries
	out, err := arr.ReadSlice(ctx, map[int]ndv.Slice{
		0: {Start: 2, Stop: 6},
		1: {Start: 3, Stop: 6},
	})
	if err != nil {
		t.Fatalf("ReadSlice: %v", err)
	}
	if got := out.Shape(); got[0] != 4 || got[1] != 3 {
		t.Fatalf("slice shape: got %v, want [4 3]", got)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 3; x++ {
			want := float64((y+2)*100 + (x + 3))
			if v, _ := out.At(y, x); v != want {
				t.Errorf("out[%d,%d]: got %v, want %v", y, x, v, want)
			}
		}
	}
}

func TestReadSliceFullAndFill(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	writeTestArray(t, store, "0", nil, "")
	arr, err := Open(ctx, store, "0")
	if err != nil {
		t.Fatal(err)
	}

	out, err := arr.ReadSlice(ctx, nil)
	if err != nil {
		t.Fatalf("full ReadSlice: %v", err)
	}
	if got := out.Shape(); got[0] != 10 || got[1] != 7 {
		t.Fatalf("full shape: got %v", got)
	}
	// (0, 0) is stored, (9, 5) lives in the withheld chunk at grid (2, 1)
	if v, _ := out.At(0, 0); v != 0 {
		t.Errorf("out[0,0]: got %v, want 0", v)
	}
	if v, _ := out.At(9, 5); v != 9999 {
		t.Errorf("missing chunk must read as the fill value, got %v", v)
	}

	if _, err := arr.ReadSlice(ctx, map[int]ndv.Slice{0: {Start: 5, Stop: 5}}); err == nil {
		t.Errorf("empty selection must error")
	}
}

func TestReadSliceZlibNested(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	writeTestArray(t, store, "lvl", &CompressorMeta{ID: "zlib"}, "/")

	arr, err := Open(ctx, store, "lvl")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	out, err := arr.ReadSlice(ctx, map[int]ndv.Slice{0: {Start: 4, Stop: 5}, 1: {Start: 4, Stop: 5}})
	if err != nil {
		t.Fatalf("ReadSlice: %v", err)
	}
	if v, _ := out.At(0, 0); v != 404 {
		t.Errorf("out[0,0]: got %v, want 404", v)
	}
}

func TestOpenRejectsBadMetadata(t *testing.T) {
	ctx := context.Background()
	for name, meta := range map[string]string{
		"format":    `{"zarr_format": 3, "shape": [4], "chunks": [2], "dtype": "<u2"}`,
		"order":     `{"zarr_format": 2, "shape": [4], "chunks": [2], "dtype": "<u2", "order": "F"}`,
		"chunks":    `{"zarr_format": 2, "shape": [4, 4], "chunks": [2], "dtype": "<u2"}`,
		"dtype":     `{"zarr_format": 2, "shape": [4], "chunks": [2], "dtype": "<x9"}`,
		"filters":   `{"zarr_format": 2, "shape": [4], "chunks": [2], "dtype": "<u2", "filters": [{"id": "delta"}]}`,
		"separator": `{"zarr_format": 2, "shape": [4], "chunks": [2], "dtype": "<u2", "dimension_separator": "-"}`,
	} {
		store := storage.NewMemoryStore()
		store.Put(ctx, ArrayMetaKey, []byte(meta))
		if _, err := Open(ctx, store, ""); err == nil {
			t.Errorf("%s: bad metadata must fail to open", name)
		}
	}

	store := storage.NewMemoryStore()
	if _, err := Open(ctx, store, "nowhere"); err == nil ||
		!strings.Contains(err.Error(), "no zarr array") {
		t.Errorf("missing array: got %v", err)
	}
}

func TestBloscUnsupported(t *testing.T) {
	if _, err := Decompress(&CompressorMeta{ID: "blosc"}, []byte{1, 2}); err == nil {
		t.Errorf("blosc must be rejected")
	}
	raw, err := Decompress(nil, []byte{1, 2})
	if err != nil || !bytes.Equal(raw, []byte{1, 2}) {
		t.Errorf("nil compressor must pass bytes through: %v %v", raw, err)
	}
}

func TestWrapperAxisIndex(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	writeTestArray(t, store, "0", nil, "")
	arr, err := Open(ctx, store, "0")
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWrapper(arr, "y", "x")
	if err != nil {
		t.Fatalf("NewWrapper: %v", err)
	}
	if d, err := w.AxisIndex(ndv.NamedAxis("x")); err != nil || d != 1 {
		t.Errorf(`AxisIndex("x"): got %d, %v`, d, err)
	}
	if d, err := w.AxisIndex(ndv.Axis(-1)); err != nil || d != 1 {
		t.Errorf("AxisIndex(-1): got %d, %v", d, err)
	}
	if _, err := w.AxisIndex(ndv.NamedAxis("z")); err == nil {
		t.Errorf("unknown label must error")
	}
	if w.DType() != "uint16" {
		t.Errorf("wrapper dtype: got %q", w.DType())
	}
	if _, err := NewWrapper(arr, "only-one"); err == nil {
		t.Errorf("label count mismatch must error")
	}
}
