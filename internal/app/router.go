package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	cataloghttp "github.com/mercato-hq/mercato/internal/catalog/http"
	diagnosticshttp "github.com/mercato-hq/mercato/internal/diagnostics/http"
	documentshttp "github.com/mercato-hq/mercato/internal/documents/http"
	financehttp "github.com/mercato-hq/mercato/internal/finance/http"
	mediahttp "github.com/mercato-hq/mercato/internal/media/http"
	"github.com/mercato-hq/mercato/internal/observability"
	"github.com/mercato-hq/mercato/jobs"
)

// RouterParams groups dependencies for building the HTTP router. Nil handlers
// are not mounted.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	CatalogHandler     *cataloghttp.Handler
	FinanceHandler     *financehttp.Handler
	MediaHandler       *mediahttp.Handler
	DocumentsHandler   *documentshttp.Handler
	DiagnosticsHandler *diagnosticshttp.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with Mercato defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if params.CatalogHandler != nil {
			params.CatalogHandler.MountRoutes(api)
		}
		if params.FinanceHandler != nil {
			params.FinanceHandler.MountRoutes(api)
		}
		if params.MediaHandler != nil {
			params.MediaHandler.MountRoutes(api)
		}
		if params.DocumentsHandler != nil {
			params.DocumentsHandler.MountRoutes(api)
		}
		if params.DiagnosticsHandler != nil {
			params.DiagnosticsHandler.MountRoutes(api)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
