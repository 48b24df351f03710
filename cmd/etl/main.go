package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/estat-data-etl/internal/adapter/http"
	"github.com/couchcryptid/estat-data-etl/internal/adapter/jsonl"
	kafkaadapter "github.com/couchcryptid/estat-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/estat-data-etl/internal/config"
	"github.com/couchcryptid/estat-data-etl/internal/domain"
	"github.com/couchcryptid/estat-data-etl/internal/estat"
	"github.com/couchcryptid/estat-data-etl/internal/observability"
	"github.com/couchcryptid/estat-data-etl/internal/pipeline"
)

type emitter interface {
	pipeline.Emitter
	Close() error
}

func main() {
	// Optional .env for local runs; real deployments set the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := estat.NewClient(cfg.EstatAppID, cfg.EstatBaseURL, cfg.EstatTimeout, logger)

	var sink emitter
	switch cfg.Sink {
	case config.SinkJSONL:
		w, err := jsonl.Open(cfg.JSONLPath)
		if err != nil {
			logger.Error("failed to open jsonl sink", "path", cfg.JSONLPath, "error", err)
			os.Exit(1)
		}
		sink = w
		logger.Info("jsonl sink enabled", "path", cfg.JSONLPath)
	case config.SinkKafka:
		sink = kafkaadapter.NewWriter(cfg, logger)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}

	opts := pipeline.Options{
		Criteria: domain.SearchCriteria{
			Keyword:     cfg.SearchKeyword,
			SurveyYears: cfg.SurveyYears,
			StatsField:  cfg.StatsField,
			Limit:       cfg.MaxItems,
		},
		IncludeMetadata: cfg.IncludeMetadata,
		OutputFormat:    pipeline.Format(cfg.OutputFormat),
		RequestDelay:    cfg.RequestDelay,
	}

	processor := pipeline.NewTableProcessor(client, sink, logger, metrics, opts)
	runner := pipeline.NewRunner(client, processor, sink, logger, metrics, opts)

	srv := httpadapter.NewServer(cfg.HTTPAddr, runner, runner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start ops server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the pipeline once, then shut down.
	go func() {
		outcome := runner.Run(ctx)
		logger.Info("run finished",
			"mode", outcome.Mode,
			"tables_attempted", outcome.Summary.TablesAttempted,
			"tables_succeeded", outcome.Summary.TablesSucceeded,
			"records_emitted", outcome.Summary.RecordsEmitted,
		)
		stop()
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := sink.Close(); err != nil {
		logger.Error("sink close error", "error", err)
	}

	logger.Info("shutdown complete")
}
