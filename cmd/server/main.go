package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gptogo/lane-closure-impact/internal/adapter/analysis"
	"github.com/gptogo/lane-closure-impact/internal/adapter/arcgis"
	"github.com/gptogo/lane-closure-impact/internal/adapter/gemini"
	"github.com/gptogo/lane-closure-impact/internal/adapter/httpapi"
	kafkaadapter "github.com/gptogo/lane-closure-impact/internal/adapter/kafka"
	"github.com/gptogo/lane-closure-impact/internal/config"
	"github.com/gptogo/lane-closure-impact/internal/observability"
	"github.com/gptogo/lane-closure-impact/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := arcgis.NewClient(cfg.ArcGISBaseURL, cfg.ArcGISTimeout, logger)

	// Analysis backend: a remote deployment when ANALYSIS_URL is set,
	// otherwise the local Gemini engine when a credential is present.
	var analyzer pipeline.PlanAnalyzer
	switch {
	case cfg.AnalysisURL != "":
		analyzer = analysis.NewClient(cfg.AnalysisURL, cfg.AnalysisTimeout, logger)
		logger.Info("using remote analysis service", "url", cfg.AnalysisURL)
	case cfg.GeminiAPIKey != "":
		engine, err := gemini.NewEngine(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout, logger, metrics)
		if err != nil {
			logger.Error("failed to create gemini engine", "error", err)
			os.Exit(1)
		}
		analyzer = engine
		logger.Info("using local gemini analysis backend", "model", cfg.GeminiModel)
	default:
		logger.Warn("no analysis backend configured; analyze requests will fail")
	}

	// Closure publishing (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var publisher pipeline.ClosurePublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
		publisher = writer
		logger.Info("closure publishing enabled", "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("closure publishing disabled")
	}

	agg := pipeline.New(fetcher, analyzer, publisher, logger, metrics)

	srv := httpapi.NewServer(cfg.HTTPAddr, agg, analyzer, cfg.AllowedOrigins, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
