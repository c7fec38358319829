// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/gptogo/lane-closure-impact/internal/adapter/arcgis"
	"github.com/gptogo/lane-closure-impact/internal/adapter/gemini"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	ArcGISBaseURL string
	ArcGISTimeout time.Duration

	// Gemini analysis backend configuration.
	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout time.Duration

	// AnalysisURL delegates plan analysis to a remote deployment of this
	// service instead of the local Gemini backend.
	AnalysisURL     string
	AnalysisTimeout time.Duration

	AllowedOrigins []string

	// Kafka closure publishing configuration (feature-flagged via
	// KAFKA_ENABLED / KAFKA_BROKERS).
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	arcgisTimeout, err := parseDuration("ARCGIS_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geminiTimeout, err := parseDuration("GEMINI_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	analysisTimeout, err := parseDuration("ANALYSIS_TIMEOUT", "90s")
	if err != nil {
		return nil, err
	}

	kafkaBrokers := parseList(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ArcGISBaseURL: envOrDefault("ARCGIS_BASE_URL", arcgis.DefaultBaseURL),
		ArcGISTimeout: arcgisTimeout,

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   envOrDefault("GEMINI_MODEL", gemini.DefaultModel),
		GeminiTimeout: geminiTimeout,

		AnalysisURL:     os.Getenv("ANALYSIS_URL"),
		AnalysisTimeout: analysisTimeout,

		AllowedOrigins: parseList(envOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")),

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   kafkaBrokers,
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "lane-closures"),
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when publishing is enabled")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

// parseList splits a comma-separated value, trimming whitespace and dropping
// empty entries.
func parseList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
