package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"email-responder/internal/handlers"
	"email-responder/internal/httpserver"
	"email-responder/internal/metrics"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP reply service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			metrics.Register()

			logger.Info("loaded config",
				zap.Int("port", cfg.Server.Port),
				zap.String("cache_backend", cfg.Cache.Backend),
				zap.Duration("cache_ttl", cfg.Cache.TTL),
				zap.Bool("ai_enabled", cfg.AI.Active()),
				zap.String("llm_base_url", cfg.AI.BaseURL),
				zap.String("db_path", cfg.Store.DBPath),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			replyHandler := handlers.NewReplyHandler(a.orchestrator)
			adminHandler := &handlers.AdminHandler{
				Cache:     a.cache,
				History:   a.store,
				Templates: a.store,
				AIEnabled: a.orchestrator.AIEnabled,
			}

			r := chi.NewRouter()
			httpserver.SetupRouter(r, logger, httpserver.Options{
				RequestTimeout: cfg.Server.RequestTimeout,
				MaxBodyBytes:   cfg.Server.MaxBodyBytes,
				AllowedOrigins: cfg.Server.CORSOrigins,
			}, replyHandler, adminHandler)

			srv := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           r,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       cfg.Server.ReadTimeout,
				WriteTimeout:      cfg.Server.WriteTimeout,
				IdleTimeout:       60 * time.Second,
			}

			logger.Info("starting responder", zap.String("addr", srv.Addr))

			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					logger.Error("server error", zap.Error(err))
					return err
				}
				return nil
			case <-ctx.Done():
			}
			logger.Info("shutdown signal received")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", zap.Error(err))
				return err
			}

			logger.Info("server shutdown complete")
			return nil
		},
	}
}
