package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mercato-hq/mercato/internal/catalog"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogBatch applies a product batch operation.
	TaskCatalogBatch = "catalog:batch"
	// TaskDiagnosticsRun executes the system self-test.
	TaskDiagnosticsRun = "diagnostics:run"
	// TaskFinanceCacheBump invalidates cached finance reports for a business.
	TaskFinanceCacheBump = "finance:cache_bump"
)

// FinanceBumpPayload names the business whose reports are stale.
type FinanceBumpPayload struct {
	BusinessID uuid.UUID `json:"business_id"`
	Reason     string    `json:"reason,omitempty"`
}

// NewCatalogBatchTask constructs a catalog batch task.
func NewCatalogBatchTask(req catalog.BatchRequest) (*asynq.Task, error) {
	if req.BusinessID == uuid.Nil || len(req.IDs) == 0 {
		return nil, fmt.Errorf("jobs: catalog batch needs a business and at least one id")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogBatch, data), nil
}

// NewDiagnosticsTask constructs the periodic self-test task.
func NewDiagnosticsTask() *asynq.Task {
	return asynq.NewTask(TaskDiagnosticsRun, nil)
}

// NewFinanceBumpTask constructs a cache invalidation task.
func NewFinanceBumpTask(payload FinanceBumpPayload) (*asynq.Task, error) {
	if payload.BusinessID == uuid.Nil {
		return nil, fmt.Errorf("jobs: finance bump needs a business id")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFinanceCacheBump, data), nil
}
