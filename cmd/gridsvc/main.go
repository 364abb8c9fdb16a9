package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/storm-data-grid/internal/adapter/api"
	"github.com/couchcryptid/storm-data-grid/internal/adapter/grib"
	"github.com/couchcryptid/storm-data-grid/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/storm-data-grid/internal/adapter/kafka"
	"github.com/couchcryptid/storm-data-grid/internal/adapter/objectstore"
	"github.com/couchcryptid/storm-data-grid/internal/adapter/postgres"
	"github.com/couchcryptid/storm-data-grid/internal/config"
	"github.com/couchcryptid/storm-data-grid/internal/domain"
	"github.com/couchcryptid/storm-data-grid/internal/observability"
	"github.com/couchcryptid/storm-data-grid/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	models := cfg.EnabledModels()

	// One client per bucket, shared by the models that live in it.
	clients := make(map[string]*objectstore.CachedClient)
	sources := make(map[string]pipeline.Source, len(models))
	for _, m := range models {
		c, ok := clients[m.BucketURL]
		if !ok {
			c = objectstore.NewCachedClient(objectstore.NewClient(m.BucketURL, cfg.FetchTimeout, logger, metrics), cfg.IndexCacheSize)
			clients[m.BucketURL] = c
		}
		sources[m.Key] = c
	}

	decoder, err := grib.NewCommandDecoder(cfg.DecoderCmd, cfg.DecoderTimeout, logger)
	if err != nil {
		logger.Error("failed to set up grib decoder", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Event publishing (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var events pipeline.EventPublisher
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		events = publisher
		logger.Info("kafka events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka events disabled")
	}

	// Run history (enabled when DATABASE_URL is set).
	var history pipeline.RunRecorder
	var runs api.RunHistory
	var store *postgres.Store
	if cfg.DatabaseURL != "" {
		store, err = postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to open history store", "error", err)
			os.Exit(1)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to create history schema", "error", err)
			os.Exit(1)
		}
		history, runs = store, store
		logger.Info("run history enabled")
	} else {
		logger.Info("run history disabled")
	}

	orch := pipeline.NewOrchestrator(models, sources, decoder, events, history, logger, metrics)
	watcher := pipeline.NewWatcher(orch, cfg.RunPollInterval, domain.Clock(), logger, metrics)
	router := api.NewRouter(orch, runs, cfg.CORSAllowedOrigins, logger)

	ready := httpadapter.Readiness{watcher}
	if store != nil {
		ready = append(ready, store)
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, router, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start run watcher.
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Error("run watcher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("history store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
