package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// e-Stat API access. An empty AppID is permitted: the upstream rejects
	// the first request and the pipeline degrades to its sample dataset.
	EstatAppID   string
	EstatBaseURL string
	EstatTimeout time.Duration

	// Search criteria for one run.
	SearchKeyword string
	SurveyYears   string
	StatsField    string
	MaxItems      int

	// Output shaping.
	IncludeMetadata bool
	OutputFormat    string
	RequestDelay    time.Duration

	// Sink selection.
	Sink           string
	KafkaBrokers   []string
	KafkaSinkTopic string
	JSONLPath      string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

const (
	SinkKafka = "kafka"
	SinkJSONL = "jsonl"
)

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	estatTimeout, err := parsePositiveDuration("ESTAT_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	maxItems, err := parseMaxItems()
	if err != nil {
		return nil, err
	}

	requestDelay, err := parseRequestDelay()
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	includeMetadata, err := parseBool("INCLUDE_METADATA", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		EstatAppID:   os.Getenv("ESTAT_APP_ID"),
		EstatBaseURL: envOrDefault("ESTAT_BASE_URL", "https://api.e-stat.go.jp/rest/3.0/app/json"),
		EstatTimeout: estatTimeout,

		SearchKeyword: envOrDefault("SEARCH_KEYWORD", "人口"),
		SurveyYears:   os.Getenv("SURVEY_YEARS"),
		StatsField:    os.Getenv("STATS_FIELD"),
		MaxItems:      maxItems,

		IncludeMetadata: includeMetadata,
		OutputFormat:    envOrDefault("OUTPUT_FORMAT", "structured"),
		RequestDelay:    requestDelay,

		Sink:           envOrDefault("SINK", SinkKafka),
		KafkaBrokers:   parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "estat-statistics"),
		JSONLPath:      envOrDefault("JSONL_PATH", "-"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	switch cfg.OutputFormat {
	case "structured", "raw", "both":
	default:
		return nil, fmt.Errorf("invalid OUTPUT_FORMAT %q: must be structured, raw, or both", cfg.OutputFormat)
	}

	switch cfg.Sink {
	case SinkKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	case SinkJSONL:
		if cfg.JSONLPath == "" {
			return nil, errors.New("JSONL_PATH is required")
		}
	default:
		return nil, fmt.Errorf("invalid SINK %q: must be kafka or jsonl", cfg.Sink)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseMaxItems() (int, error) {
	s := envOrDefault("MAX_ITEMS", "10")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 100 {
		return 0, fmt.Errorf("invalid MAX_ITEMS %q: must be an integer between 1 and 100", s)
	}
	return n, nil
}

// parseRequestDelay allows zero (no pacing) but not negative delays.
func parseRequestDelay() (time.Duration, error) {
	s := envOrDefault("REQUEST_DELAY", "1s")
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid REQUEST_DELAY %q", s)
	}
	return d, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, s)
	}
	return b, nil
}
