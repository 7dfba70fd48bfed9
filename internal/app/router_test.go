package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercato-hq/mercato/internal/backend"
	"github.com/mercato-hq/mercato/internal/catalog"
	cataloghttp "github.com/mercato-hq/mercato/internal/catalog/http"
	"github.com/mercato-hq/mercato/internal/diagnostics"
	diagnosticshttp "github.com/mercato-hq/mercato/internal/diagnostics/http"
	"github.com/mercato-hq/mercato/internal/observability"
	"github.com/mercato-hq/mercato/jobs"
)

func TestRouterMountsAPIAndMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	runner := diagnostics.NewRunner(nil, []diagnostics.Check{{Name: "noop", Run: func(ctx context.Context) (string, error) { return "ok", nil }}})
	handler := NewRouter(RouterParams{
		Config:             &Config{AppEnv: "development"},
		Metrics:            metrics,
		CatalogHandler:     cataloghttp.NewHandler(nil, catalog.NewService(catalog.NewRepository(backend.NewMemory()), nil)),
		DiagnosticsHandler: diagnosticshttp.NewHandler(runner),
		JobHandler:         jobs.NewHandler(nil, nil, nil),
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Frame-Options"))

	rec = get("/api/businesses")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = get("/api/diagnostics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pass"`)

	assert.Equal(t, http.StatusNotFound, get("/api/media/objects/x").Code)

	rec = get("/api/jobs/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"queue":"default"`)

	rec = get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "mercato_http_requests_total"))
}
