// Package proxy serves the files p2pool writes to its --data-api directory
// over read-only HTTP.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"p2pool-monitor/internal/fetcher"
	"p2pool-monitor/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultPrefix is stripped from request paths before the file lookup.
const DefaultPrefix = "/api"

// Endpoints is advertised by the index document.
var Endpoints = []string{
	fetcher.PathNetworkStats,
	fetcher.PathPoolStats,
	fetcher.PathPoolBlocks,
	fetcher.PathLocalStratum,
	fetcher.PathLocalP2P,
	"/api/stats_mod",
}

// Options configure a Server.
type Options struct {
	Root   string
	Listen string
	// Prefix is optional on incoming paths. Empty means DefaultPrefix;
	// "/" disables stripping.
	Prefix string
}

// Server maps request paths onto files under Root.
type Server struct {
	opts   Options
	router *mux.Router
	logger zerolog.Logger
}

type indexResponse struct {
	Status    string   `json:"status"`
	Endpoints []string `json:"endpoints"`
}

type notFoundResponse struct {
	Error string `json:"error"`
	Path  string `json:"path"`
}

// NewServer validates opts and builds the router.
func NewServer(opts Options, logger zerolog.Logger) (*Server, error) {
	if opts.Root == "" {
		return nil, errors.New("proxy root directory is required")
	}
	info, err := os.Stat(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("stat proxy root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("proxy root %s is not a directory", opts.Root)
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	opts.Prefix = strings.TrimRight(opts.Prefix, "/")

	s := &Server{
		opts:   opts,
		router: mux.NewRouter(),
		logger: logging.Component(logger, "proxy"),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	// traversal must reach the handler uncleaned so it can be refused
	s.router.SkipClean(true)
	s.router.Use(s.logRequests)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET")
			next.ServeHTTP(w, r)
		})
	})

	s.router.PathPrefix("/").HandlerFunc(s.serveFile).Methods(http.MethodGet)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("root", s.opts.Root).Str("listen", s.opts.Listen).Msg("serving p2pool data")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", s.opts.Listen, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown proxy: %w", err)
		}
		s.logger.Info().Msg("proxy stopped")
		return nil
	}
}

// RelativePath strips the optional prefix and the leading slash.
func (s *Server) RelativePath(urlPath string) string {
	p := urlPath
	if s.opts.Prefix != "" && strings.HasPrefix(p, s.opts.Prefix) {
		p = strings.TrimPrefix(p, s.opts.Prefix)
	}
	return strings.TrimPrefix(p, "/")
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	rel := s.RelativePath(r.URL.Path)

	if rel == "" {
		writeJSON(w, http.StatusOK, indexResponse{Status: "ok", Endpoints: Endpoints})
		return
	}

	if strings.Contains(rel, "..") {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	data, err := os.ReadFile(filepath.Join(s.opts.Root, filepath.FromSlash(rel)))
	if err != nil {
		s.logger.Debug().Err(err).Str("path", rel).Msg("file not served")
		writeJSON(w, http.StatusNotFound, notFoundResponse{Error: "not found", Path: rel})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn().Err(err).Str("path", rel).Msg("write response")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
