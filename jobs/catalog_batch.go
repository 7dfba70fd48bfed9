package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mercato-hq/mercato/internal/catalog"
	jobmetrics "github.com/mercato-hq/mercato/internal/jobs"
)

// MaxBatchAttempts bounds how many times the leftovers of a batch are retried.
const MaxBatchAttempts = 3

// BatchRunner applies a batch operation to a set of products.
type BatchRunner interface {
	RunBatch(ctx context.Context, businessID uuid.UUID, action catalog.Action, ids []uuid.UUID, progress catalog.Progress) (catalog.BatchReport, error)
}

// BatchRequeuer schedules the unfinished part of a batch for a later attempt.
type BatchRequeuer interface {
	RequeueCatalogBatch(ctx context.Context, req catalog.BatchRequest, delay time.Duration) (string, error)
}

// CatalogBatchJob runs catalog batch operations queued from the API.
type CatalogBatchJob struct {
	Runner   BatchRunner
	Requeuer BatchRequeuer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewCatalogBatchJob wires the catalog batch handler.
func NewCatalogBatchJob(runner BatchRunner, requeuer BatchRequeuer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogBatchJob {
	return &CatalogBatchJob{Runner: runner, Requeuer: requeuer, Logger: logger, Metrics: metrics}
}

// Handle applies the batch and requeues items that did not complete. Items that
// already succeeded are never re-applied.
func (j *CatalogBatchJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Runner == nil {
		return errors.New("catalog batch: handler not configured")
	}
	var req catalog.BatchRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return asynq.SkipRetry
	}
	if req.Attempt <= 0 {
		req.Attempt = 1
	}

	tracker := j.metrics().Track(TaskCatalogBatch)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(
		slog.String("business_id", req.BusinessID.String()),
		slog.String("action", string(req.Action)),
		slog.Int("attempt", req.Attempt),
	)

	report, err := j.Runner.RunBatch(ctx, req.BusinessID, req.Action, req.IDs, func(percent int) {
		logger.Debug("catalog batch progress", slog.Int("percent", percent))
	})
	if errors.Is(err, catalog.ErrUnknownAction) || errors.Is(err, catalog.ErrEmptyBatch) {
		logger.Warn("catalog batch rejected", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err != nil {
		return err
	}

	j.metrics().AddBatchItems(string(req.Action), string(catalog.OutcomeSucceeded), report.Succeeded)
	j.metrics().AddBatchItems(string(req.Action), string(catalog.OutcomeFailed), report.FailedN)
	j.metrics().AddBatchItems(string(req.Action), string(catalog.OutcomeSkipped), report.Skipped)

	leftover := unfinished(report)
	if len(leftover) == 0 {
		logger.Info("catalog batch completed", slog.Int("succeeded", report.Succeeded))
		return nil
	}
	if req.Attempt >= MaxBatchAttempts || j.Requeuer == nil {
		logger.Error("catalog batch gave up",
			slog.Int("succeeded", report.Succeeded),
			slog.Int("remaining", len(leftover)),
		)
		return fmt.Errorf("catalog batch: %d items unfinished after %d attempts", len(leftover), req.Attempt)
	}

	next := catalog.BatchRequest{
		BusinessID: req.BusinessID,
		Action:     req.Action,
		IDs:        leftover,
		Attempt:    req.Attempt + 1,
	}
	id, err := j.Requeuer.RequeueCatalogBatch(ctx, next, retryDelay(req.Attempt))
	if err != nil {
		return fmt.Errorf("catalog batch: requeue: %w", err)
	}
	logger.Warn("catalog batch requeued",
		slog.Int("succeeded", report.Succeeded),
		slog.Int("remaining", len(leftover)),
		slog.String("job_id", id),
	)
	return nil
}

func unfinished(report catalog.BatchReport) []uuid.UUID {
	var ids []uuid.UUID
	for _, item := range report.Items {
		if item.Outcome != catalog.OutcomeSucceeded {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

func retryDelay(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * 30 * time.Second
}

func (j *CatalogBatchJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *CatalogBatchJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
