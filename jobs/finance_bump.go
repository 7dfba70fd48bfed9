package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/mercato-hq/mercato/internal/jobs"
)

// ReportInvalidator drops cached finance reports for a business.
type ReportInvalidator interface {
	Invalidate(ctx context.Context, businessID uuid.UUID) error
}

// FinanceBumpJob invalidates cached finance reports after out-of-band writes.
type FinanceBumpJob struct {
	Reports ReportInvalidator
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewFinanceBumpJob wires the finance cache handler.
func NewFinanceBumpJob(reports ReportInvalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *FinanceBumpJob {
	return &FinanceBumpJob{Reports: reports, Logger: logger, Metrics: metrics}
}

// Handle bumps the cache version for the business in the payload.
func (j *FinanceBumpJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Reports == nil {
		return errors.New("finance bump: handler not configured")
	}
	var payload FinanceBumpPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.BusinessID == uuid.Nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics().Track(TaskFinanceCacheBump)
	defer func() {
		err = tracker.End(err)
	}()

	if err = j.Reports.Invalidate(ctx, payload.BusinessID); err != nil {
		j.logger().Error("finance cache bump failed",
			slog.String("business_id", payload.BusinessID.String()),
			slog.Any("error", err),
		)
		return err
	}
	j.logger().Info("finance cache bumped",
		slog.String("business_id", payload.BusinessID.String()),
		slog.String("reason", payload.Reason),
	)
	return nil
}

func (j *FinanceBumpJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *FinanceBumpJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
