package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mercato-hq/mercato/internal/app"
	"github.com/mercato-hq/mercato/internal/backend"
	"github.com/mercato-hq/mercato/internal/catalog"
	"github.com/mercato-hq/mercato/internal/diagnostics"
	"github.com/mercato-hq/mercato/internal/finance"
	jobmetrics "github.com/mercato-hq/mercato/internal/jobs"
	"github.com/mercato-hq/mercato/internal/media"
	"github.com/mercato-hq/mercato/internal/platform/cache"
	"github.com/mercato-hq/mercato/internal/platform/db"
	"github.com/mercato-hq/mercato/jobs"
	"github.com/mercato-hq/mercato/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.DBOptions())
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	store := backend.NewPostgres(pool)

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.CacheOptions()); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	mediaStore, err := media.NewFileStore(cfg.MediaStorageDir)
	if err != nil {
		logger.Error("open media store", slog.Any("error", err))
		os.Exit(1)
	}
	pipeline := media.NewPipeline(mediaStore, logger,
		media.WithMaxBytes(cfg.MediaMaxUploadBytes),
		media.WithMaxPixels(cfg.MediaMaxPixels),
		media.WithMetrics(media.NewMetrics(prometheus.DefaultRegisterer)),
	)

	jobClient, err := jobs.NewClient(cfg.AsynqRedis())
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	catalogService := catalog.NewService(catalog.NewRepository(store), logger, catalog.WithImages(pipeline))
	financeService := finance.NewService(finance.NewRepository(store), finance.NewCache(redisClient, cfg.CacheTTL), logger)
	runner := diagnostics.NewRunner(logger,
		diagnostics.DefaultChecks(store, redisClient, report.NewClient(cfg.GotenbergURL), mediaStore),
		diagnostics.WithMetrics(diagnostics.NewMetrics(prometheus.DefaultRegisterer)),
	)

	batchJob := jobs.NewCatalogBatchJob(catalogService, jobClient, logger, metrics)
	diagnosticsJob := jobs.NewDiagnosticsJob(runner, logger, metrics)
	bumpJob := jobs.NewFinanceBumpJob(financeService, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.AsynqRedis(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogBatch, Handler: batchJob.Handle},
			{Type: jobs.TaskDiagnosticsRun, Handler: diagnosticsJob.Handle},
			{Type: jobs.TaskFinanceCacheBump, Handler: bumpJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.DiagnosticsCron, Task: jobs.NewDiagnosticsTask(), Options: []asynq.Option{asynq.MaxRetry(0)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
