// Package ui serves the session state over HTTP for browser front ends.
package ui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/askql-labs/askql/internal/backend"
	"github.com/askql-labs/askql/internal/notify"
	"github.com/askql-labs/askql/internal/session"
	"github.com/askql-labs/askql/internal/workbench"
)

// Server exposes the conversation and workbench state as a JSON API.
type Server struct {
	addr      string
	session   *session.Session
	workbench *workbench.Workbench
	client    *backend.Client
	hub       *notify.Hub
	logger    *slog.Logger
}

// ServerConfig holds configuration for the state server.
type ServerConfig struct {
	Addr      string
	Session   *session.Session
	Workbench *workbench.Workbench
	Client    *backend.Client
	Hub       *notify.Hub
	Logger    *slog.Logger
}

// NewServer creates a new state server instance.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		addr:      cfg.Addr,
		session:   cfg.Session,
		workbench: cfg.Workbench,
		client:    cfg.Client,
		hub:       cfg.Hub,
		logger:    logger,
	}
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting state server", "addr", s.addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down state server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/updates", s.handleUpdates)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/upload", s.handleUpload)
		r.Post("/ask", s.handleAsk)
		r.Post("/reset", s.handleReset)

		r.Route("/workbench", func(r chi.Router) {
			r.Post("/buffer", s.handleSetBuffer)
			r.Post("/run", s.handleRun)
			r.Post("/generate", s.handleGenerate)
			r.Post("/expand", s.handleExpand)
		})
	})

	return r
}
