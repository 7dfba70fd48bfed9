package diagnosticshttp

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/mercato-hq/mercato/internal/diagnostics"
	"github.com/mercato-hq/mercato/internal/platform/httpx"
)

// Runner is the diagnostics contract used by the handler.
type Runner interface {
	Run(ctx context.Context) diagnostics.Report
	Last() (diagnostics.Report, bool)
}

// Handler exposes the self-test over HTTP.
type Handler struct {
	runner Runner
}

// NewHandler constructs the diagnostics handler.
func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// MountRoutes registers /diagnostics endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/diagnostics", func(dr chi.Router) {
		dr.Get("/", h.handleLast)
		dr.With(httprate.LimitByIP(6, time.Minute)).Post("/run", h.handleRun)
	})
}

// handleLast serves the latest report, running the checks when none exists yet.
func (h *Handler) handleLast(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.runner.Last()
	if !ok {
		rep = h.runner.Run(r.Context())
	}
	writeReport(w, rep)
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	writeReport(w, h.runner.Run(r.Context()))
}

func writeReport(w http.ResponseWriter, rep diagnostics.Report) {
	status := http.StatusOK
	if rep.Status == diagnostics.StatusFail {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, status, rep)
}
