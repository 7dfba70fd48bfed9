package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mercato-hq/mercato/internal/backend"
	"github.com/mercato-hq/mercato/internal/media"
)

// ImageProcessor turns raw upload bytes into a stored, optimized image.
type ImageProcessor interface {
	Process(ctx context.Context, filename string, data []byte, crop *media.CropParams) (media.Processed, error)
}

// BatchRequest is a queued id-based batch.
type BatchRequest struct {
	BusinessID uuid.UUID   `json:"business_id"`
	Action     Action      `json:"action"`
	IDs        []uuid.UUID `json:"ids"`
	Attempt    int         `json:"attempt"`
}

// Enqueuer submits batches to the background worker.
type Enqueuer interface {
	EnqueueCatalogBatch(ctx context.Context, req BatchRequest) (string, error)
}

// Service coordinates directory reads and product writes.
type Service struct {
	repo     Repository
	images   ImageProcessor
	enqueuer Enqueuer
	logger   *slog.Logger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithImages enables image upload batches.
func WithImages(p ImageProcessor) Option { return func(s *Service) { s.images = p } }

// WithEnqueuer enables background batches.
func WithEnqueuer(e Enqueuer) Option { return func(s *Service) { s.enqueuer = e } }

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService constructs a catalog service.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListBusinesses returns active businesses matching filter.
func (s *Service) ListBusinesses(ctx context.Context, filter ListFilter) ([]Business, error) {
	return s.repo.ListBusinesses(ctx, filter)
}

// GetBusiness returns an active business and its active products.
func (s *Service) GetBusiness(ctx context.Context, id uuid.UUID) (BusinessDetail, error) {
	biz, err := s.repo.GetBusiness(ctx, id)
	if err != nil {
		return BusinessDetail{}, err
	}
	products, err := s.repo.ListProducts(ctx, id, true)
	if err != nil {
		return BusinessDetail{}, err
	}
	return BusinessDetail{Business: biz, Products: products}, nil
}

// ListProducts returns every product of a business, inactive ones included.
func (s *Service) ListProducts(ctx context.Context, businessID uuid.UUID) ([]Product, error) {
	return s.repo.ListProducts(ctx, businessID, false)
}

// CreateProduct validates and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, businessID uuid.UUID, form ProductForm) (Product, error) {
	p, err := NewProduct(businessID, form, s.now()).Unwrap()
	if err != nil {
		return Product{}, err
	}
	return s.repo.CreateProduct(ctx, p)
}

// UpdateProduct validates form and applies it to an existing product.
func (s *Service) UpdateProduct(ctx context.Context, businessID, id uuid.UUID, form ProductForm) (Product, error) {
	existing, err := s.repo.GetProduct(ctx, businessID, id)
	if err != nil {
		return Product{}, err
	}
	p, err := ApplyProductForm(existing, form, s.now()).Unwrap()
	if err != nil {
		return Product{}, err
	}
	if err := s.repo.SaveProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// RunBatch applies action to each id in order. A failing item is recorded and
// the batch moves on; earlier successes stay applied. Once ctx is done the
// remaining items are skipped.
func (s *Service) RunBatch(ctx context.Context, businessID uuid.UUID, action Action, ids []uuid.UUID, progress Progress) (BatchReport, error) {
	if !action.Valid() || action == ActionUploadImage {
		return BatchReport{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if len(ids) == 0 {
		return BatchReport{}, ErrEmptyBatch
	}
	report := BatchReport{Action: action, BusinessID: businessID}
	for i, id := range ids {
		report.record(s.runItem(ctx, businessID, action, id))
		notify(progress, i+1, len(ids))
	}
	s.logBatch(report)
	return report, nil
}

func (s *Service) runItem(ctx context.Context, businessID uuid.UUID, action Action, id uuid.UUID) ItemResult {
	if err := ctx.Err(); err != nil {
		return ItemResult{ID: id, Outcome: OutcomeSkipped, Error: err.Error()}
	}
	var err error
	switch action {
	case ActionDelete:
		err = s.repo.DeleteProduct(ctx, businessID, id)
	case ActionActivate, ActionDeactivate:
		err = s.repo.PatchProduct(ctx, businessID, id, backend.Record{
			"active":     action == ActionActivate,
			"updated_at": s.now().UTC().Format(time.RFC3339),
		})
	}
	return itemResult(id, err)
}

// UploadImages processes each image and attaches it to its product. Items are
// handled in order and failures do not stop the batch.
func (s *Service) UploadImages(ctx context.Context, businessID uuid.UUID, items []ImageItem, progress Progress) (BatchReport, error) {
	if s.images == nil {
		return BatchReport{}, fmt.Errorf("%w: image processing", ErrNotConfigured)
	}
	if len(items) == 0 {
		return BatchReport{}, ErrEmptyBatch
	}
	report := BatchReport{Action: ActionUploadImage, BusinessID: businessID}
	for i, item := range items {
		report.record(s.uploadItem(ctx, businessID, item))
		notify(progress, i+1, len(items))
	}
	s.logBatch(report)
	return report, nil
}

func (s *Service) uploadItem(ctx context.Context, businessID uuid.UUID, item ImageItem) ItemResult {
	if err := ctx.Err(); err != nil {
		return ItemResult{ID: item.ProductID, Outcome: OutcomeSkipped, Error: err.Error()}
	}
	if _, err := s.repo.GetProduct(ctx, businessID, item.ProductID); err != nil {
		return itemResult(item.ProductID, err)
	}
	processed, err := s.images.Process(ctx, item.Filename, item.Data, nil)
	if err != nil {
		return itemResult(item.ProductID, err)
	}
	err = s.repo.PatchProduct(ctx, businessID, item.ProductID, backend.Record{
		"image_path": processed.Key,
		"updated_at": s.now().UTC().Format(time.RFC3339),
	})
	return itemResult(item.ProductID, err)
}

// EnqueueBatch hands an id-based batch to the worker and returns the job id.
func (s *Service) EnqueueBatch(ctx context.Context, req BatchRequest) (string, error) {
	if s.enqueuer == nil {
		return "", fmt.Errorf("%w: background jobs", ErrNotConfigured)
	}
	if !req.Action.Valid() || req.Action == ActionUploadImage {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	if len(req.IDs) == 0 {
		return "", ErrEmptyBatch
	}
	return s.enqueuer.EnqueueCatalogBatch(ctx, req)
}

func (s *Service) logBatch(r BatchReport) {
	level := slog.LevelInfo
	if !r.Complete() {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "catalog batch",
		slog.String("action", string(r.Action)),
		slog.String("business_id", r.BusinessID.String()),
		slog.Int("succeeded", r.Succeeded),
		slog.Int("failed", r.FailedN),
		slog.Int("skipped", r.Skipped),
	)
}

func itemResult(id uuid.UUID, err error) ItemResult {
	if err != nil {
		return ItemResult{ID: id, Outcome: OutcomeFailed, Error: err.Error()}
	}
	return ItemResult{ID: id, Outcome: OutcomeSucceeded}
}

func notify(progress Progress, done, total int) {
	if progress != nil {
		progress(done * 100 / total)
	}
}
