package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/mercato-hq/mercato/internal/app"
	"github.com/mercato-hq/mercato/internal/backend"
	"github.com/mercato-hq/mercato/internal/catalog"
	cataloghttp "github.com/mercato-hq/mercato/internal/catalog/http"
	"github.com/mercato-hq/mercato/internal/diagnostics"
	diagnosticshttp "github.com/mercato-hq/mercato/internal/diagnostics/http"
	doc "github.com/mercato-hq/mercato/internal/documents"
	documentshttp "github.com/mercato-hq/mercato/internal/documents/http"
	"github.com/mercato-hq/mercato/internal/finance"
	"github.com/mercato-hq/mercato/internal/finance/export"
	financehttp "github.com/mercato-hq/mercato/internal/finance/http"
	"github.com/mercato-hq/mercato/internal/media"
	mediahttp "github.com/mercato-hq/mercato/internal/media/http"
	"github.com/mercato-hq/mercato/internal/observability"
	"github.com/mercato-hq/mercato/internal/platform/cache"
	"github.com/mercato-hq/mercato/internal/platform/db"
	"github.com/mercato-hq/mercato/jobs"
	"github.com/mercato-hq/mercato/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.DBOptions())
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()
	store := backend.NewPostgres(dbpool)

	// Reports are computed uncached when Redis is down.
	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.CacheOptions()); err != nil {
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	pdfClient := report.NewClient(cfg.GotenbergURL)

	mediaStore, err := media.NewFileStore(cfg.MediaStorageDir)
	if err != nil {
		logger.Error("open media store", slog.Any("error", err))
		os.Exit(1)
	}
	pipeline := media.NewPipeline(mediaStore, logger,
		media.WithMaxBytes(cfg.MediaMaxUploadBytes),
		media.WithMaxPixels(cfg.MediaMaxPixels),
		media.WithMetrics(media.NewMetrics(metrics.Registerer())),
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

	financeService := finance.NewService(
		finance.NewRepository(store),
		finance.NewCache(redisClient, cfg.CacheTTL),
		logger,
	)
	financeHandler := financehttp.NewHandler(logger, financeService, export.NewPDFExporter(pdfClient))

	catalogService := catalog.NewService(catalog.NewRepository(store), logger,
		catalog.WithImages(pipeline),
		catalog.WithEnqueuer(jobClient),
	)
	catalogHandler := cataloghttp.NewHandler(logger, catalogService)

	sessions := media.NewSessions(media.WithSessionTTL(cfg.MediaSessionTTL))
	go sessions.Run(ctx, time.Minute)
	mediaHandler := mediahttp.NewHandler(logger, pipeline, mediaStore, sessions)
	documentsHandler := documentshttp.NewHandler(logger, doc.NewExporter(pdfClient, logger))

	runner := diagnostics.NewRunner(logger, diagnostics.DefaultChecks(store, redisClient, pdfClient, mediaStore),
		diagnostics.WithMetrics(diagnostics.NewMetrics(metrics.Registerer())),
	)
	diagnosticsHandler := diagnosticshttp.NewHandler(runner)

	inspector := asynq.NewInspector(cfg.AsynqRedis())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		CatalogHandler:     catalogHandler,
		FinanceHandler:     financeHandler,
		MediaHandler:       mediaHandler,
		DocumentsHandler:   documentsHandler,
		DiagnosticsHandler: diagnosticsHandler,
		JobHandler:         jobHandler,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
