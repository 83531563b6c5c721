// Command mesod polls the Oklahoma Mesonet for one station's current
// observations and publishes normalized records to a Kafka topic, exposing
// health and metrics endpoints while it runs.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/plainswx/mesonet-data-service/internal/adapter/http"
	kafkaadapter "github.com/plainswx/mesonet-data-service/internal/adapter/kafka"
	"github.com/plainswx/mesonet-data-service/internal/adapter/mesonet"
	"github.com/plainswx/mesonet-data-service/internal/config"
	"github.com/plainswx/mesonet-data-service/internal/observability"
	"github.com/plainswx/mesonet-data-service/internal/poller"
	"github.com/plainswx/mesonet-data-service/internal/service"
	"github.com/plainswx/mesonet-data-service/internal/station"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	stations, err := station.Default()
	if err != nil {
		logger.Error("failed to load station table", "error", err)
		os.Exit(1)
	}

	client := mesonet.NewClient(cfg.BaseURL, cfg.FetchTimeout, metrics, logger)
	fetcher := mesonet.NewCachedFetcher(client, cfg.CacheSize, metrics)
	svc := service.New(fetcher, stations, logger, metrics)

	writer := kafkaadapter.NewWriter(cfg, logger)
	p := poller.New(svc, writer, cfg.Site, cfg.PollInterval, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("poller error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
