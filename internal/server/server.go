// Package server exposes committed wheels as a PEP 503 simple index and
// runs bridges on demand.
//
// Routes:
//
//	GET  /healthz
//	GET  /simple/                 project list
//	GET  /simple/{project}/       wheel links with #sha256= fragments
//	GET  /files/{filename}        wheel download
//	POST /api/bridge              {"name": "left-pad", "range": "^1.0.0"}
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/npym/pkg/bridge"
)

// DefaultBridgeTimeout bounds one POST /api/bridge request.
const DefaultBridgeTimeout = 5 * time.Minute

// Server serves the wheels a bridge runner commits to its destination.
type Server struct {
	runner  *bridge.Runner
	opts    bridge.Options
	logger  *log.Logger
	timeout time.Duration
}

// New creates a server. opts.Dest is both where bridges commit wheels and
// where /files/ reads them from.
func New(runner *bridge.Runner, opts bridge.Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, opts: opts, logger: logger, timeout: DefaultBridgeTimeout}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/simple", func(r chi.Router) {
		r.Use(middleware.Compress(5, "text/html"))
		r.Get("/", s.projects)
		r.Get("/{project}", s.redirectSlash)
		r.Get("/{project}/", s.project)
	})
	r.Get("/files/{filename}", s.file)
	r.Post("/api/bridge", s.bridge)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "dest", s.opts.Dest)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"id", middleware.GetReqID(r.Context()))
	})
}
