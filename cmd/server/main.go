package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/dairycalc/internal/bootstrap"
	"github.com/Simplici0/dairycalc/internal/config"
	"github.com/Simplici0/dairycalc/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.Must(logger.New(cfg.IsDev()))
	defer func() { _ = log.Sync() }()

	engine, closeStore, err := bootstrap.Engine(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to start calculator", zap.Error(err))
	}
	defer closeStore()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServer(engine, logger.Named(log, "http")).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server stopped", zap.Error(err))
	}
}
