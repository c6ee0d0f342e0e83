package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "todoapi/internal/adapter/http"
	"todoapi/internal/adapter/logger"
	"todoapi/internal/adapter/telemetry"
	"todoapi/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load config: %v\n%s", err, config.Usage())
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	lokiLogger, err := logger.New(cfg.App.Name, cfg.Telemetry.LokiURL, cfg.LogLevel)

	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	defer lokiLogger.Flush()

	tel, err := telemetry.NewContainer(ctx, telemetry.Config{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Env,
		MetricsPort:    cfg.Telemetry.MetricsPort,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	}, lokiLogger.Logger)

	if err != nil {
		lokiLogger.Logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	if !tel.RuntimeMetrics {
		lokiLogger.Logger.Info("OTLP endpoint not set, runtime metrics limited to Prometheus gauges")
	}

	tel.StartMetricsServer()
	tel.AppMetrics.StartSystemMetrics(ctx, 15*time.Second)

	container, err := apihttp.NewContainer(ctx, cfg, lokiLogger, tel.NewTelemetryProbe())

	if err != nil {
		lokiLogger.Logger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}

	if err := container.RegisterDBStats(tel.PrometheusRegistry, cfg.App.Name); err != nil {
		lokiLogger.Logger.Warn("Failed to register database stats", zap.Error(err))
	}

	server := apihttp.NewServer(cfg, container, tel.AppMetrics, lokiLogger)

	if err := server.Run(ctx); err != nil {
		lokiLogger.Error(ctx, "Server stopped with error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := container.Close(); err != nil {
		lokiLogger.Error(shutdownCtx, "Failed to close resources", zap.Error(err))
	}

	if err := tel.Shutdown(shutdownCtx); err != nil {
		lokiLogger.Error(shutdownCtx, "Failed to shut down telemetry", zap.Error(err))
	}

	lokiLogger.Info(shutdownCtx, "Shutdown complete")
}
