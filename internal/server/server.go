// Package server serves the generated site with optional live reload and
// exposes build status and metrics endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	smw "git.home.luguber.info/inful/blogbuilder/internal/server/middleware"
)

// Internal endpoints, kept under a prefix unlikely to clash with site content.
const (
	InternalPrefix       = "/_blogbuilder/"
	LiveReloadPath       = InternalPrefix + "livereload"
	LiveReloadScriptPath = InternalPrefix + "livereload.js"
	StatusPath           = InternalPrefix + "status"
	MetricsPath          = InternalPrefix + "metrics"

	notFoundPage = "404.html"
)

// Options configures a Server.
type Options struct {
	// Dir is the directory served at "/". It is resolved per request, so it
	// may be replaced while the server runs.
	Dir string
	// Addr is the listen address, e.g. ":3000" or "127.0.0.1:0".
	Addr string
	// LiveReload enables script injection and the SSE endpoint when non-nil.
	LiveReload *LiveReloadHub
	// Metrics is mounted at MetricsPath when non-nil.
	Metrics http.Handler
	// Status reports the last build at StatusPath when non-nil.
	Status *StatusTracker
}

// Server is the preview HTTP server.
type Server struct {
	opts   Options
	srv    *http.Server
	ln     net.Listener
	mchain func(http.Handler) http.Handler
}

// New constructs a Server. Start binds the listener.
func New(opts Options) *Server {
	adapter := ferrors.NewHTTPErrorAdapter(slog.Default())
	return &Server{
		opts:   opts,
		mchain: smw.Chain(slog.Default(), adapter),
	}
}

// Handler returns the complete handler tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	var site http.Handler = s.siteHandler()
	if s.opts.LiveReload != nil {
		site = injectLiveReload(site)
		mux.Handle(LiveReloadPath, s.opts.LiveReload)
		mux.HandleFunc(LiveReloadScriptPath, serveScript)
	}
	if s.opts.Status != nil {
		mux.Handle(StatusPath, s.opts.Status)
	}
	if s.opts.Metrics != nil {
		mux.Handle(MetricsPath, s.opts.Metrics)
	}
	mux.Handle("/", site)
	return s.mchain(mux)
}

// siteHandler serves files from Dir, using 404.html for missing paths when
// the site provides one.
func (s *Server) siteHandler() http.Handler {
	files := http.FileServer(http.Dir(s.opts.Dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if _, err := os.Stat(filepath.Join(s.opts.Dir, filepath.FromSlash(name))); errors.Is(err, os.ErrNotExist) {
			page, perr := os.ReadFile(filepath.Join(s.opts.Dir, notFoundPage))
			if perr != nil {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write(page)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// Start binds the listen address and serves in the background. A bind failure
// is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "bind preview server").
			WithContext("addr", s.opts.Addr).
			Build()
	}
	s.ln = ln
	// No write timeout: SSE connections are long-lived.
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Preview server error", logfields.Error(err))
		}
	}()
	slog.Info("Serving site", logfields.URL(s.URL()), logfields.Path(s.opts.Dir))
	return nil
}

// Addr is the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.opts.Addr
}

// URL is the browsable address of the server.
func (s *Server) URL() string {
	addr := s.Addr()
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	} else if host, port, err := net.SplitHostPort(addr); err == nil && (host == "::" || host == "0.0.0.0") {
		addr = net.JoinHostPort("localhost", port)
	}
	return "http://" + addr + "/"
}

// Stop closes live-reload streams and gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.opts.LiveReload != nil {
		s.opts.LiveReload.Shutdown()
	}
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("preview server shutdown: %w", err)
	}
	slog.Info("Preview server stopped")
	return nil
}
