package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deckhand-ci/deckhand/internal/shell/api"
	"github.com/deckhand-ci/deckhand/internal/shell/docker"
	"github.com/deckhand-ci/deckhand/internal/shell/store"
	"github.com/deckhand-ci/deckhand/internal/shell/workers"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitEngineError     = 3
	ExitHTTPServerError = 4
)

// pingTimeout bounds the startup engine reachability check.
const pingTimeout = 10 * time.Second

// =============================================================================
// Server
// =============================================================================

// Server is the deckhand agent: HTTP API, container engine, history store,
// and the history pruner worker.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      store.Store
	engine     docker.Engine
	pruner     *workers.HistoryPruner
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	// Open history store
	st, err := store.NewSQLiteStore(cfg.History.DSN)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	// Connect to the container engine
	engine, err := docker.NewEngine(cfg.Docker, logger)
	if err != nil {
		st.Close()
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitEngineError,
		}
	}

	// Verify the engine is reachable before accepting requests
	pingCtx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := engine.Ping(pingCtx); err != nil {
		st.Close()
		engine.Close()
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitEngineError,
		}
	}

	deployer := docker.NewDeployer(engine, docker.DefaultDeployerConfig(), logger)

	pruner := workers.NewHistoryPruner(st, workers.PrunerConfig{
		Interval:  cfg.Prune.Interval,
		Retention: cfg.Prune.Retention,
	}, logger)

	handler := api.NewHandler(deployer, engine, st, cfg.Auth.Token, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      st,
		engine:     engine,
		pruner:     pruner,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start history pruner in background
	s.pruner.Start()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		s.pruner.Stop()
		s.engine.Close()
		s.store.Close()
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server. In-flight deploys get the
// shutdown timeout to finish before connections are dropped.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown HTTP server
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Stop history pruner
	s.pruner.Stop()

	// Close engine connection
	if err := s.engine.Close(); err != nil {
		s.logger.Error("engine close error", "error", err)
	}

	// Close history store
	if err := s.store.Close(); err != nil {
		s.logger.Error("history store close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
