package cataloghttp

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercato-hq/mercato/internal/backend"
	"github.com/mercato-hq/mercato/internal/catalog"
	"github.com/mercato-hq/mercato/internal/media"
)

type recordingQueue struct {
	reqs []catalog.BatchRequest
}

func (q *recordingQueue) EnqueueCatalogBatch(ctx context.Context, req catalog.BatchRequest) (string, error) {
	q.reqs = append(q.reqs, req)
	return "task-42", nil
}

type fixture struct {
	router   chi.Router
	business uuid.UUID
	products []uuid.UUID
	queue    *recordingQueue
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mem := backend.NewMemory()
	biz := uuid.New()
	require.NoError(t, mem.Seed("businesses", catalog.Business{ID: biz, Name: "Bakery", Category: "Food", City: "Lyon", Active: true}))
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	for i, id := range ids {
		require.NoError(t, mem.Seed("products", catalog.Product{ID: id, BusinessID: biz, Name: []string{"Baguette", "Brioche"}[i], Price: decimal.NewFromInt(2), Active: true}))
	}
	store, err := media.NewFileStore(t.TempDir())
	require.NoError(t, err)
	queue := &recordingQueue{}
	svc := catalog.NewService(catalog.NewRepository(mem), nil,
		catalog.WithImages(media.NewPipeline(store, nil)),
		catalog.WithEnqueuer(queue))
	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)
	return fixture{router: r, business: biz, products: ids, queue: queue}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestDirectoryEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/businesses?city=Lyon", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []catalog.Business
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = f.do(t, http.MethodGet, "/businesses?city=Paris", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/businesses/"+f.business.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail catalog.BusinessDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Len(t, detail.Products, 2)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/businesses/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/businesses/not-an-id", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/businesses?limit=-1", "").Code)
}

func TestProductWrites(t *testing.T) {
	f := newFixture(t)
	base := "/businesses/" + f.business.String() + "/products"

	rec := f.do(t, http.MethodPost, base, `{"name":"Eclair","price":"3.10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Eclair", p.Name)

	rec = f.do(t, http.MethodPost, base, `{"name":"","price":"abc"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "price")

	rec = f.do(t, http.MethodPut, base+"/"+p.ID.String(), `{"name":"Chocolate Eclair","price":"3.50","active":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.False(t, p.Active)

	rec = f.do(t, http.MethodPut, base+"/"+uuid.NewString(), `{"name":"x","price":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 3)
}

func TestBatchEndpoint(t *testing.T) {
	f := newFixture(t)
	path := "/businesses/" + f.business.String() + "/products/batch"
	missing := uuid.New()

	body, _ := json.Marshal(BatchForm{Action: catalog.ActionDeactivate, IDs: []uuid.UUID{f.products[0], missing}})
	rec := f.do(t, http.MethodPost, path, string(body))
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())
	var report catalog.BatchReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, []uuid.UUID{missing}, report.Failed())

	body, _ = json.Marshal(BatchForm{Action: catalog.ActionActivate, IDs: f.products})
	rec = f.do(t, http.MethodPost, path, string(body))
	assert.Equal(t, http.StatusOK, rec.Code)

	body, _ = json.Marshal(BatchForm{Action: catalog.ActionDelete, IDs: f.products, Background: true})
	rec = f.do(t, http.MethodPost, path, string(body))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"job_id":"task-42"}`, rec.Body.String())
	require.Len(t, f.queue.reqs, 1)
	assert.Equal(t, f.business, f.queue.reqs[0].BusinessID)

	rec = f.do(t, http.MethodPost, path, `{"action":"archive","ids":["`+uuid.NewString()+`"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImageBatchEndpoint(t *testing.T) {
	f := newFixture(t)
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 6, 6))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(f.products[0].String(), "a.png")
	require.NoError(t, err)
	_, err = fw.Write(img.Bytes())
	require.NoError(t, err)
	fw, err = mw.CreateFormFile(f.products[1].String(), "b.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("plain words"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/businesses/"+f.business.String()+"/products/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())
	var report catalog.BatchReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, []uuid.UUID{f.products[1]}, report.Failed())
}
