package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/dawn-chart-composer/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/dawn-chart-composer/internal/adapter/kafka"
	"github.com/couchcryptid/dawn-chart-composer/internal/config"
	"github.com/couchcryptid/dawn-chart-composer/internal/domain"
	"github.com/couchcryptid/dawn-chart-composer/internal/observability"
	"github.com/couchcryptid/dawn-chart-composer/internal/pipeline"
	"github.com/couchcryptid/dawn-chart-composer/internal/rangefilter"
	"github.com/couchcryptid/dawn-chart-composer/internal/seriescache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	mapper := seriescache.NewCachedMapper(domain.CalendarMapper{}, cfg.SeriesCacheSize, metrics)
	logger.Info("composer configured",
		"forecast_year", cfg.ForecastYear,
		"series_cache_size", cfg.SeriesCacheSize,
		"theme_file", cfg.ThemeFile,
	)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(mapper, rangefilter.New(), cfg.Theme, cfg.ForecastYear, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, transformer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start composition pipeline.
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
