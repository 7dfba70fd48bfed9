package diagnosticshttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercato-hq/mercato/internal/diagnostics"
)

func serve(t *testing.T, runner *diagnostics.Runner, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(runner).MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestDiagnosticsEndpoints(t *testing.T) {
	calls := 0
	healthy := true
	runner := diagnostics.NewRunner(nil, []diagnostics.Check{{Name: "probe", Run: func(ctx context.Context) (string, error) {
		calls++
		if !healthy {
			return "", errors.New("down")
		}
		return "up", nil
	}}})

	rec := serve(t, runner, http.MethodGet, "/diagnostics")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep diagnostics.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, diagnostics.StatusPass, rep.Status)
	assert.Equal(t, 1, calls)

	rec = serve(t, runner, http.MethodGet, "/diagnostics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)

	healthy = false
	rec = serve(t, runner, http.MethodPost, "/diagnostics/run")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, diagnostics.StatusFail, rep.Status)
	assert.Equal(t, "down", rep.Checks[0].Message)
	assert.Equal(t, 2, calls)
}
