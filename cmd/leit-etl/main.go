package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/leit-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/leit-etl/internal/adapter/kafka"
	"github.com/couchcryptid/leit-etl/internal/config"
	"github.com/couchcryptid/leit-etl/internal/observability"
	"github.com/couchcryptid/leit-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	registry, err := cfg.Registry()
	if err != nil {
		logger.Error("failed to build scale registry", "error", err)
		os.Exit(1)
	}
	targets, err := registry.ResolveAll(cfg.TargetScales)
	if err != nil {
		logger.Error("failed to resolve target scales", "error", err)
		os.Exit(1)
	}
	metrics.ScalesRegistered.Set(float64(registry.Len()))
	logger.Info("scale registry ready",
		"scales", registry.Names(),
		"custom", len(cfg.CustomScales()),
		"targets", len(targets),
		"round_decimals", cfg.RoundDecimals,
		"allow_below_absolute_zero", cfg.AllowBelowAbsoluteZero,
	)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(registry, targets, cfg.Policy(), logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, registry, cfg.Policy(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start conversion pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
