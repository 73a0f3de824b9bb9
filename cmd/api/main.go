package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/PratikDhanave/passcount/internal/config"
	"github.com/PratikDhanave/passcount/internal/httpserver"
	"github.com/PratikDhanave/passcount/internal/logging"
	"github.com/PratikDhanave/passcount/internal/store"
)

// main boots the service: config → logger → store and sweeper → HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		log.Fatal(err)
	}

	st, err := store.NewMemoryStore(store.Options{
		Logger:        logger.Named("store"),
		Retention:     cfg.Retention,
		SweepInterval: cfg.SweepInterval,
	})
	if err != nil {
		logger.Fatal("create store", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpserver.NewHandler(cfg, st, logger.Named("http")),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server started",
			zap.String("addr", cfg.Addr),
			zap.Duration("retention", cfg.Retention),
			zap.Duration("sweep_interval", cfg.SweepInterval))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	err = multierr.Combine(
		srv.Shutdown(shutdownCtx),
		st.Close(),
	)
	if err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
