package documentshttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercato-hq/mercato/internal/documents"
)

type renderer struct{ err error }

func (r renderer) RenderHTML(ctx context.Context, filename, html string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.7 " + filename), nil
}

const patentBody = `{"title":"Kiln Shelf","inventors":["Ada River"],"filing_date":"2024-04-10",
"field":"Ceramics.","background":"Shelves warp.","summary":"Adjustable feet.",
"claims":["A shelf with adjustable feet."],"abstract":"An adjustable shelf."}`

func router(r renderer) chi.Router {
	mux := chi.NewRouter()
	NewHandler(nil, documents.NewExporter(r, nil)).MountRoutes(mux)
	return mux
}

func post(t *testing.T, mux chi.Router, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestPatentPDF(t *testing.T) {
	rec := post(t, router(renderer{}), "/documents/patent", patentBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="kiln-shelf.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Empty(t, rec.Header().Get("X-Document-Fallback"))
}

func TestPatentPDFFallback(t *testing.T) {
	rec := post(t, router(renderer{err: errors.New("unavailable")}), "/documents/patent", patentBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text", rec.Header().Get("X-Document-Fallback"))
	assert.Equal(t, `attachment; filename="kiln-shelf.txt"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "KILN SHELF")
}

func TestPartnershipDOCXAndJSON(t *testing.T) {
	body := `{"business_name":"Rivers","purpose":"Pottery.","effective_date":"2024-03-01","jurisdiction":"Oregon",
"partners":[{"name":"Ada","contribution":"10","profit_share":"50"},{"name":"Ben","contribution":"10","profit_share":"50"}]}`
	mux := router(renderer{})

	rec := post(t, mux, "/documents/partnership?format=docx", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, documents.FormatDOCX.ContentType(), rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))

	rec = post(t, mux, "/documents/partnership?format=json", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Rivers Partnership Agreement"`)
}

func TestDocumentRejections(t *testing.T) {
	mux := router(renderer{})
	rec := post(t, mux, "/documents/patent", `{"title":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = post(t, mux, "/documents/patent", `{"unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, mux, "/documents/patent?format=odt", patentBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
