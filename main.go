package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"trafficgen/config"
	"trafficgen/generator"
	"trafficgen/logger"
	"trafficgen/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		return 1
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error setting up logger:", err)
		return 1
	}
	defer logger.Flush(log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g := newGenerator(cfg, log.Logger)

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		g.Metrics = generator.NewMetrics(reg)

		srv := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
		log.Logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	}

	if cfg.RecordPath != "" {
		store, err := storage.NewSQLite(cfg.RecordPath, log.Logger)
		if err != nil {
			log.Logger.Error("opening outcome journal failed", zap.Error(err))
			return 1
		}
		defer store.Close()
		g.Recorder = store
	}

	if _, err := g.Run(ctx); err != nil {
		return 1
	}
	return 0
}

// newGenerator applies the loaded configuration to a generator.
func newGenerator(cfg *config.Config, log *zap.Logger) *generator.Generator {
	g := generator.New(cfg.URL, cfg.Payload, log)
	g.Iterations = cfg.Iterations
	g.Delay = cfg.Delay
	g.HTTP = &http.Client{Timeout: cfg.Timeout}
	return g
}
