package cataloghttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mercato-hq/mercato/internal/catalog"
	"github.com/mercato-hq/mercato/internal/platform/httpx"
)

const maxImageBatchBytes = 32 << 20

// CatalogService is the directory contract used by the handler.
type CatalogService interface {
	ListBusinesses(ctx context.Context, filter catalog.ListFilter) ([]catalog.Business, error)
	GetBusiness(ctx context.Context, id uuid.UUID) (catalog.BusinessDetail, error)
	ListProducts(ctx context.Context, businessID uuid.UUID) ([]catalog.Product, error)
	CreateProduct(ctx context.Context, businessID uuid.UUID, form catalog.ProductForm) (catalog.Product, error)
	UpdateProduct(ctx context.Context, businessID, id uuid.UUID, form catalog.ProductForm) (catalog.Product, error)
	RunBatch(ctx context.Context, businessID uuid.UUID, action catalog.Action, ids []uuid.UUID, progress catalog.Progress) (catalog.BatchReport, error)
	UploadImages(ctx context.Context, businessID uuid.UUID, items []catalog.ImageItem, progress catalog.Progress) (catalog.BatchReport, error)
	EnqueueBatch(ctx context.Context, req catalog.BatchRequest) (string, error)
}

// Handler serves the directory and product management endpoints.
type Handler struct {
	logger  *slog.Logger
	service CatalogService
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service CatalogService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/businesses", h.handleListBusinesses)
	r.Get("/businesses/{businessID}", h.handleGetBusiness)
	r.Get("/businesses/{businessID}/products", h.handleListProducts)
	r.Post("/businesses/{businessID}/products", h.handleCreateProduct)
	r.Put("/businesses/{businessID}/products/{productID}", h.handleUpdateProduct)
	r.Post("/businesses/{businessID}/products/batch", h.handleBatch)
	r.Post("/businesses/{businessID}/products/images", h.handleImages)
}

// BatchForm is the body of a batch request.
type BatchForm struct {
	Action     catalog.Action `json:"action"`
	IDs        []uuid.UUID    `json:"ids"`
	Background bool           `json:"background"`
}

func (h *Handler) handleListBusinesses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.ListFilter{
		Category: strings.TrimSpace(q.Get("category")),
		City:     strings.TrimSpace(q.Get("city")),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.RespondError(w, fmt.Errorf("%w: limit", httpx.ErrValidation))
			return
		}
		filter.Limit = n
	}
	list, err := h.service.ListBusinesses(r.Context(), filter)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "list businesses", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetBusiness(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "businessID")
	if !ok {
		return
	}
	detail, err := h.service.GetBusiness(r.Context(), id)
	if err != nil {
		h.respond(w, "get business", err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "businessID")
	if !ok {
		return
	}
	list, err := h.service.ListProducts(r.Context(), id)
	if err != nil {
		h.respond(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	biz, ok := pathID(w, r, "businessID")
	if !ok {
		return
	}
	var form catalog.ProductForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.CreateProduct(r.Context(), biz, form)
	if err != nil {
		h.respond(w, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	biz, ok := pathID(w, r, "businessID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	var form catalog.ProductForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), biz, id, form)
	if err != nil {
		h.respond(w, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	biz, ok := pathID(w, r, "businessID")
	if !ok {
		return
	}
	var form BatchForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if form.Background {
		jobID, err := h.service.EnqueueBatch(r.Context(), catalog.BatchRequest{BusinessID: biz, Action: form.Action, IDs: form.IDs})
		if err != nil {
			h.respond(w, "enqueue batch", err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
		return
	}
	report, err := h.service.RunBatch(r.Context(), biz, form.Action, form.IDs, h.progress(biz, form.Action))
	if err != nil {
		h.respond(w, "run batch", err)
		return
	}
	httpx.JSON(w, batchStatus(report), report)
}

// handleImages accepts one file part per product, named by the product id.
func (h *Handler) handleImages(w http.ResponseWriter, r *http.Request) {
	biz, ok := pathID(w, r, "businessID")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBatchBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: expected multipart form", httpx.ErrBadRequest))
		return
	}
	var items []catalog.ImageItem
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: read multipart: %v", httpx.ErrBadRequest, err))
			return
		}
		if part.FileName() == "" {
			continue
		}
		id, err := uuid.Parse(part.FormName())
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: part %q is not a product id", httpx.ErrValidation, part.FormName()))
			return
		}
		data, err := io.ReadAll(part)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: read %s: %v", httpx.ErrBadRequest, part.FileName(), err))
			return
		}
		items = append(items, catalog.ImageItem{ProductID: id, Filename: part.FileName(), Data: data})
	}
	report, err := h.service.UploadImages(r.Context(), biz, items, h.progress(biz, catalog.ActionUploadImage))
	if err != nil {
		h.respond(w, "upload images", err)
		return
	}
	httpx.JSON(w, batchStatus(report), report)
}

func (h *Handler) progress(biz uuid.UUID, action catalog.Action) catalog.Progress {
	return func(percent int) {
		h.logger.Debug("catalog batch progress",
			slog.String("business_id", biz.String()),
			slog.String("action", string(action)),
			slog.Int("percent", percent))
	}
}

func (h *Handler) respond(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, catalog.ErrBusinessNotFound), errors.Is(err, catalog.ErrProductNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
	case errors.Is(err, catalog.ErrUnknownAction), errors.Is(err, catalog.ErrEmptyBatch):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.Is(err, catalog.ErrNotConfigured):
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", err.Error())
	default:
		httpx.RespondLogged(w, h.logger, action, err)
	}
}

// batchStatus is 207 when some items failed.
func batchStatus(r catalog.BatchReport) int {
	if r.Complete() {
		return http.StatusOK
	}
	return http.StatusMultiStatus
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, param))
		return uuid.Nil, false
	}
	return id, true
}
