package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskwise/backend/internal/config"
	"github.com/taskwise/backend/internal/models"
	"github.com/taskwise/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := models.Open(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	a, err := bootstrap(ctx, cfg, db)
	if err != nil {
		_ = models.Close(db)
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer a.shutdown()

	if err := a.retention.Start(cfg.Audit.CleanupSchedule); err != nil {
		logger.Warn().Err(err).Msg("Failed to schedule audit log cleanup")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("driver", cfg.Database.Driver).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	timeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	logger.Info().Msg("Server exited")
}
