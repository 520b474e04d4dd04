// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"research-workers/internal/common/camunda"
	"research-workers/internal/common/config"
	"research-workers/internal/common/database"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/observability"
	"research-workers/internal/research/pipeline"
	"research-workers/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.NewFromConfig(cfg.Logging)
	if err != nil {
		zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
		zapLog.Warn("falling back to default log output", zap.Error(err))
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	if err := cfg.ValidateWorkers(); err != nil {
		zapLog.Fatal("invalid configuration", zap.Error(err))
	}

	obs, err := observability.NewWithOptions(observability.Options{
		ServiceName:    cfg.Tracing.ServiceName,
		TracingEnabled: cfg.Tracing.Enabled,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		zapLog.Warn("observability setup failed, continuing without otel metrics", zap.Error(err))
	} else {
		obs.InstallGlobal()
	}
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(ctx, camunda.ConfigFromApp(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully", zap.String("gateway", cfg.Camunda.BrokerAddress))

	deps := pipeline.Dependencies{Logger: log, Observability: obs}
	var checks []readinessCheck

	// --- Redis (shared pacing) ---
	var rdb *database.RedisClient
	if cfg.Research.Pacing.Backend == config.PacingRedis {
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		deps.Redis = rdb.GetClient()
		checks = append(checks, readinessCheck{name: "redis", check: rdb.Ping})
		zapLog.Info("Redis connected successfully")
	}

	// --- Elasticsearch (search provider) ---
	if cfg.APIs.WebSearch.Provider == config.ProviderElasticsearch {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		deps.Elasticsearch = esClient.Client
		indexCheck := searchIndexCheck(esClient, cfg.APIs.WebSearch.Index)
		if err := indexCheck(ctx); err != nil {
			zapLog.Warn("search index not ready", zap.String("index", cfg.APIs.WebSearch.Index), zap.Error(err))
		}
		checks = append(checks, readinessCheck{name: "elasticsearch", check: indexCheck})
		zapLog.Info("Elasticsearch connected successfully")
	}

	p, err := pipeline.NewFromConfig(cfg, deps)
	if err != nil {
		zapLog.Fatal("failed to build research pipeline", zap.Error(err))
	}

	handlers, err := buildHandlers(cfg, p, log)
	if err != nil {
		zapLog.Fatal("failed to create worker handlers", zap.Error(err))
	}

	if reg, err := registry.Load(registry.DefaultPath); err != nil {
		zapLog.Warn("activity registry not loaded", zap.String("path", registry.DefaultPath), zap.Error(err))
	} else {
		describeActivities(reg, handlers, log)
	}

	workers := make([]*camunda.CamundaWorker, 0, len(handlers))
	for _, h := range handlers {
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), h.taskType, config.GetWorkerConfig(cfg, h.taskType), h.handler, log))
	}
	zapLog.Info("Research workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           newHealthMux(checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
