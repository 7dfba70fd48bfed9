package documentshttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/mercato-hq/mercato/internal/documents"
	"github.com/mercato-hq/mercato/internal/platform/httpx"
	"github.com/mercato-hq/mercato/internal/validate"
)

// DocumentExporter encodes documents for download.
type DocumentExporter interface {
	Export(ctx context.Context, doc documents.Document, format documents.Format) (documents.Output, error)
}

// Handler serves document generation endpoints.
type Handler struct {
	logger   *slog.Logger
	exporter DocumentExporter
}

// NewHandler constructs the documents handler.
func NewHandler(logger *slog.Logger, exporter DocumentExporter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, exporter: exporter}
}

// MountRoutes registers document endpoints under /documents.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/documents", func(dr chi.Router) {
		dr.Use(httprate.LimitByIP(20, time.Minute))
		dr.Post("/partnership", exportHandler(h, documents.BuildPartnership))
		dr.Post("/patent", exportHandler(h, documents.BuildPatent))
	})
}

// exportHandler decodes F, builds the document and writes it in the format
// named by ?format (pdf, docx, txt). ?format=json returns the structure only.
func exportHandler[F any](h *Handler, build func(F) validate.Result[documents.Document]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form F
		if err := httpx.DecodeJSON(r, &form); err != nil {
			httpx.RespondError(w, err)
			return
		}
		doc, err := build(form).Unwrap()
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		raw := r.URL.Query().Get("format")
		if raw == "json" {
			httpx.JSON(w, http.StatusOK, doc)
			return
		}
		format, err := documents.ParseFormat(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: format must be pdf, docx, txt or json", httpx.ErrValidation))
			return
		}
		out, err := h.exporter.Export(r.Context(), doc, format)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			httpx.Problem(w, http.StatusGatewayTimeout, "Timeout", "document export did not finish")
			return
		}
		if err != nil {
			httpx.RespondLogged(w, h.logger, "export document", err)
			return
		}
		if out.Fallback {
			w.Header().Set("X-Document-Fallback", "text")
			w.Header().Set("X-Report-Warning", out.Warning)
		}
		if err := httpx.Attachment(w, out.ContentType, out.Filename, out.Data); err != nil {
			h.logger.Warn("write document", slog.String("file", out.Filename), slog.Any("error", err))
		}
	}
}
