package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bootcamp-cert-minter/internal/app"
	"bootcamp-cert-minter/internal/config"
	"bootcamp-cert-minter/internal/handlers"
	"bootcamp-cert-minter/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Invalid server configuration: %v", err)
	}

	zapLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	application, err := app.New(startCtx, cfg, zapLogger)
	cancel()
	if err != nil {
		zapLogger.Fatal("Failed to start minter", zap.Error(err))
	}
	defer application.Close()

	// Keep the interfaces nil when there is no database.
	var (
		history handlers.MintHistory
		dbCheck handlers.DatabasePinger
	)
	if application.DB != nil {
		history = application.DB
		dbCheck = application.DB
	}

	router := handlers.NewRouter(cfg,
		handlers.NewHealthHandler(application.Registry, dbCheck, zapLogger),
		handlers.NewCertificatesHandler(application.Minter, application.Batch, application.Registry, history, zapLogger),
		zapLogger,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down")

	// Request contexts derive from ctx, so batches stop once their current
	// row finishes. Anything still running after SHUTDOWN_TIMEOUT is cut off.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server shutdown failed", zap.Error(err))
	}
}
