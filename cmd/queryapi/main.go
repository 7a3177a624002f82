package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trafficgen/config"
	"trafficgen/logger"
	"trafficgen/queryapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error setting up logger:", err)
		os.Exit(1)
	}
	defer logger.Flush(log.Logger)

	s, err := queryapi.New(cfg.PrometheusURL, cfg.Step, log.Logger)
	if err != nil {
		log.Logger.Fatal("creating query API failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Logger.Info("query API listening", zap.String("addr", cfg.ListenAddr), zap.String("prometheus", cfg.PrometheusURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Logger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Logger.Error("shutdown failed", zap.Error(err))
	}
}
