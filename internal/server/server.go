// Package server exposes rendered pages and static assets over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Bitlatte/pageserve/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Builder renders complete HTML documents for named pages.
type Builder interface {
	BuildPage(name string) (string, bool)
}

// Options configures a Server.
type Options struct {
	// HomePage is rendered for "/". Defaults to "home".
	HomePage string
	// NotFoundStatus makes fallback responses use status 404 instead of 200.
	NotFoundStatus bool
}

// Server routes requests to the page renderer and the static asset
// directory.
type Server struct {
	pages  Builder
	public fs.FS
	opts   Options
	logger *slog.Logger
	router chi.Router
}

// New returns a Server rendering pages with b and serving public under
// /public.
func New(b Builder, public fs.FS, opts Options, logger *slog.Logger) *Server {
	if opts.HomePage == "" {
		opts.HomePage = "home"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		pages:  b,
		public: public,
		opts:   opts,
		logger: logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHome)
	r.Get("/{name:[^:/?#]+}", s.handlePage)
	r.Handle("/public", http.RedirectHandler("/public/", http.StatusMovedPermanently))
	r.Handle("/public/*", http.StripPrefix("/public", s.static()))
	return r
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.logger.Info("serving pages", "addr", "http://"+addr)

	select {
	case err := <-errc:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, s.opts.HomePage)
}

// handlePage serves the page named by the path segment. chi matches on the
// raw path, so the segment is decoded here and checked again: "/a%2Fb" and
// "/a%3Ab" are not single page names.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || !store.ValidName(name) {
		http.NotFound(w, r)
		return
	}
	s.writePage(w, name)
}

func (s *Server) writePage(w http.ResponseWriter, name string) {
	doc, found := s.pages.BuildPage(name)

	status := http.StatusOK
	if !found && s.opts.NotFoundStatus {
		status = http.StatusNotFound
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, doc)
}

// static serves public verbatim. Directory listings are not served; a
// directory is only served when it has an index.html.
func (s *Server) static() http.Handler {
	files := http.FileServer(http.FS(s.public))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			index := path.Join(strings.Trim(r.URL.Path, "/"), "index.html")
			if _, err := fs.Stat(s.public, index); err != nil {
				http.NotFound(w, r)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
