// Package server exposes the search session and playback controller over
// HTTP: JSON endpoints, SVG renderings and a WebSocket snapshot stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/runnerr0/geoword/internal/config"
	"github.com/runnerr0/geoword/internal/playback"
	"github.com/runnerr0/geoword/internal/render"
	"github.com/runnerr0/geoword/internal/session"
	"github.com/runnerr0/geoword/internal/storage"
)

// Options configures a Server.
type Options struct {
	Version string
	Render  render.Options
	// SearchTimeout bounds synchronous searches made through POST /api/search.
	SearchTimeout time.Duration
	// SearchPerMinute caps searches per client address. Zero disables the
	// limit.
	SearchPerMinute int
}

// Server exposes the session and playback controller over HTTP and a
// WebSocket stream.
type Server struct {
	session    *session.Session
	controller *playback.Controller
	store      storage.Store
	opts       Options
	logger     *slog.Logger

	// baseCtx outlives individual requests; background searches use it.
	baseCtx context.Context
	cancel  context.CancelFunc
	started time.Time
}

// New wires a server. store may be nil, in which case the history endpoints
// answer 404.
func New(sess *session.Session, ctrl *playback.Controller, store storage.Store, opts Options, logger *slog.Logger) *Server {
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = 90 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		session:    sess,
		controller: ctrl,
		store:      store,
		opts:       opts,
		logger:     logger.With("component", "server"),
		baseCtx:    ctx,
		cancel:     cancel,
		started:    time.Now(),
	}
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.getSession)
		r.Group(func(r chi.Router) {
			if s.opts.SearchPerMinute > 0 {
				r.Use(NewRateLimiter(s.opts.SearchPerMinute).Limit)
			}
			r.Post("/search", s.search)
			r.Post("/search/retry", s.retry)
		})

		r.Get("/playback", s.getPlayback)
		r.Post("/playback/{action}", s.playbackAction)

		r.Get("/history", s.history)
		r.Get("/traces/{id}", s.getTrace)
		r.Post("/traces/{id}/load", s.loadTrace)

		r.Get("/stream", s.stream)
	})

	r.Get("/map.svg", s.mapSVG)
	r.Get("/timeline.svg", s.timelineSVG)

	return Chain(
		RequestID,
		Logger(s.logger),
		Recovery(s.logger),
	)(r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down within
// cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "version", s.opts.Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	s.cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.session.Wait()
	return nil
}

// Close cancels background searches started through the server.
func (s *Server) Close() {
	s.cancel()
}
