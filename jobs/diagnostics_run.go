package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/mercato-hq/mercato/internal/diagnostics"
	jobmetrics "github.com/mercato-hq/mercato/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DiagnosticsRunner executes the self-test and returns its report.
type DiagnosticsRunner interface {
	Run(ctx context.Context) diagnostics.Report
}

// DiagnosticsJob executes the self-test on a schedule.
type DiagnosticsJob struct {
	Runner  DiagnosticsRunner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDiagnosticsJob wires the diagnostics handler.
func NewDiagnosticsJob(runner DiagnosticsRunner, logger *slog.Logger, metrics *jobmetrics.Metrics) *DiagnosticsJob {
	return &DiagnosticsJob{Runner: runner, Logger: logger, Metrics: metrics}
}

// Handle runs every check once. A failing report counts as a job failure but is
// not retried; the next scheduled run covers it.
func (j *DiagnosticsJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Runner == nil {
		return errors.New("diagnostics: handler not configured")
	}
	tracker := j.metrics().Track(TaskDiagnosticsRun)
	defer func() {
		err = tracker.End(err)
	}()

	report := j.Runner.Run(ctx)
	logger := j.logger().With(slog.String("status", string(report.Status)))
	for _, res := range report.Checks {
		if res.Status == diagnostics.StatusPass {
			continue
		}
		logger.Warn("diagnostics check not passing",
			slog.String("check", res.Name),
			slog.String("check_status", string(res.Status)),
			slog.String("message", res.Message),
		)
	}
	if report.Status == diagnostics.StatusFail {
		logger.Error("diagnostics failed", slog.Int("checks", len(report.Checks)))
		return fmt.Errorf("%w: diagnostics reported failure", asynq.SkipRetry)
	}
	logger.Info("diagnostics completed", slog.Int("checks", len(report.Checks)))
	return nil
}

func (j *DiagnosticsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *DiagnosticsJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
