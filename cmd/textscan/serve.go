package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"textscan/internal/config"
	"textscan/internal/database"
	"textscan/internal/handler"
	"textscan/internal/jwtauth"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Connect to the database, apply pending migrations, and serve the API.

SIGINT and SIGTERM trigger a graceful shutdown: in-flight requests get up to
30 seconds to complete before the server is closed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, logger)
		},
	}
}

// runServe blocks until ctx is cancelled or the listener fails.
func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", zap.Error(err))
		}
	}()
	logger.Info("database connection established", zap.String("dialect", string(db.Dialect)))

	if err := db.MigrateUp(); err != nil {
		return err
	}
	version, dirty, err := db.MigrateVersion()
	switch {
	case err != nil:
		logger.Warn("failed to get migration version", zap.Error(err))
	case dirty:
		logger.Warn("database is in dirty state; a previous migration failed and manual intervention is required",
			zap.Uint("version", version))
	default:
		logger.Info("database migrations complete", zap.Uint("version", version))
	}

	verifier, err := jwtauth.NewVerifier(jwtauth.Config{
		ProjectID: cfg.Firebase.ProjectID,
		JWKSURL:   cfg.Firebase.JWKSURL,
	}, logger.Named("jwks"))
	if err != nil {
		return fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.NewRouter(handler.Deps{
			Config:   cfg,
			DB:       db,
			Verifier: verifier,
			Logger:   logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("textscan server starting", zap.String("addr", server.Addr), zap.String("version", handler.Version))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown requested, waiting for in-flight requests to complete")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed, forcing shutdown", zap.Error(err))
		if err := server.Close(); err != nil {
			return fmt.Errorf("forced shutdown failed: %w", err)
		}
	}

	logger.Info("server shutdown complete")
	return nil
}
