package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/cors"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/display"
	"github.com/tlambert03/ndv/ndv"
	"github.com/tlambert03/ndv/render"
	"github.com/tlambert03/ndv/viewer"
)

// WebAPIVersion is the prefix of all API routes.
const WebAPIVersion = "v1"

var apiPrefix = "/api/" + WebAPIVersion + "/"

// Server serves one viewer over HTTP.
type Server struct {
	config *Config
	viewer *viewer.ArrayViewer
}

// NewServer wraps a viewer with the HTTP API.
func NewServer(c *Config, v *viewer.ArrayViewer) *Server {
	if c == nil {
		c = DefaultConfig()
	}
	return &Server{config: c, viewer: v}
}

// Handler returns the API handler, CORS-wrapped when origins are configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+apiPrefix+"model", s.getModel)
	mux.HandleFunc("PUT "+apiPrefix+"model", s.putModel)
	mux.HandleFunc("POST "+apiPrefix+"model/index/{axis}", s.postIndex)
	mux.HandleFunc("GET "+apiPrefix+"info", s.getInfo)
	mux.HandleFunc("GET "+apiPrefix+"view", s.getView)

	if len(s.config.Server.CorsOrigins) == 0 {
		return mux
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.config.Server.CorsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost},
	}).Handler(mux)
}

// Serve runs the HTTP server until the context is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.config.Server.HTTPAddress,
		Handler: s.Handler(),
	}
	errc := make(chan error, 1)
	go func() {
		ndv.Infof("Web server listening at %s ...\n", s.config.Server.HTTPAddress)
		errc <- httpServer.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// View attaches a data source to a fresh viewer and serves it until
// interrupted.  It is the command-line equivalent of showing the data in a
// window.
func View(ctx context.Context, w data.Wrapper, c *Config, opts ...viewer.Option) error {
	if c == nil {
		c = DefaultConfig()
	}
	opts = append([]viewer.Option{
		viewer.WithWorkers(c.Server.Workers),
		viewer.WithResponseCache(c.CacheMB("response")),
	}, opts...)
	v := viewer.New(opts...)
	defer v.Close()
	if err := v.SetData(ctx, w); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewServer(c, v).Serve(ctx)
}

func (s *Server) getModel(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.viewer.Model())
}

func (s *Server) putModel(w http.ResponseWriter, r *http.Request) {
	decoder := json.NewDecoder(r.Body)
	m := new(display.ArrayDisplayModel)
	if err := decoder.Decode(m); err != nil {
		badRequest(w, r, "bad display model: %v", err)
		return
	}
	if err := s.viewer.SetModel(r.Context(), m); err != nil {
		badRequest(w, r, "could not apply display model: %v", err)
		return
	}
	jsonResponse(w, s.viewer.Model())
}

func (s *Server) postIndex(w http.ResponseWriter, r *http.Request) {
	axisStr := r.PathValue("axis")
	axis := ndv.NamedAxis(axisStr)
	if i, err := strconv.Atoi(axisStr); err == nil {
		axis = ndv.Axis(i)
	}
	var x ndv.Index
	if err := json.NewDecoder(r.Body).Decode(&x); err != nil {
		badRequest(w, r, "bad index for axis %s: %v", axis, err)
		return
	}
	if err := s.viewer.SetIndex(r.Context(), axis, x); err != nil {
		badRequest(w, r, "cannot set index: %v", err)
		return
	}
	jsonResponse(w, map[string]string{"axis": axis.String(), "index": x.String()})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	wrapper := s.viewer.Wrapper()
	if wrapper == nil {
		badRequest(w, r, "no data attached")
		return
	}
	shape := wrapper.Shape()
	elements := 1
	for _, size := range shape {
		elements *= size
	}
	m := s.viewer.Model()
	info := map[string]interface{}{
		"shape":       shape,
		"labels":      wrapper.Labels(),
		"dtype":       wrapper.DType(),
		"elements":    elements,
		"size":        humanize.Comma(int64(elements)) + " elements",
		"channelMode": m.ChannelMode,
		"visibleAxes": m.VisibleAxes,
	}
	jsonResponse(w, info)
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	img, err := s.viewer.Render(r.Context())
	if err != nil {
		ndv.Errorf("render failed: %v\n", err)
		http.Error(w, fmt.Sprintf("render failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := render.EncodePNG(w, img); err != nil {
		ndv.Errorf("could not write png response: %v\n", err)
	}
}

func jsonResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ndv.Errorf("could not encode json response: %v\n", err)
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	ndv.Warningf("Bad request (%s %s): %s\n", r.Method, r.URL.Path, msg)
	http.Error(w, msg, http.StatusBadRequest)
}
