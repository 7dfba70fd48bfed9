package mediahttp

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercato-hq/mercato/internal/media"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fixture struct {
	router   chi.Router
	sessions *media.Sessions
}

func newFixture(t *testing.T, opts ...media.PipelineOption) fixture {
	t.Helper()
	store, err := media.NewFileStore(t.TempDir())
	require.NoError(t, err)
	sessions := media.NewSessions()
	h := NewHandler(nil, media.NewPipeline(store, nil, opts...), store, sessions)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return fixture{router: r, sessions: sessions}
}

func multipartBody(t *testing.T, filename string, data []byte, crop string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	if crop != "" {
		require.NoError(t, mw.WriteField("crop", crop))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f fixture) upload(t *testing.T, path, filename string, data []byte, crop string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, filename, data, crop)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadStoresAndServesImage(t *testing.T) {
	f := newFixture(t)
	rec := f.upload(t, "/media/uploads", "logo.png", pngBytes(t, 40, 20), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out media.Processed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 40, out.Upload.Width)
	assert.False(t, out.Degraded)
	require.NotEmpty(t, out.Key)

	get := f.do(t, http.MethodGet, "/media/objects/"+out.Key, "")
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "image/png", get.Header().Get("Content-Type"))
	_, err := png.DecodeConfig(bytes.NewReader(get.Body.Bytes()))
	assert.NoError(t, err)
}

func TestUploadWithCrop(t *testing.T) {
	f := newFixture(t)
	rec := f.upload(t, "/media/uploads", "logo.png", pngBytes(t, 40, 20), `{"rect":{"x":0,"y":0,"width":10,"height":10}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out media.Processed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Cropped)
	assert.Equal(t, 10, out.Result.Width)
}

func TestUploadRejections(t *testing.T) {
	f := newFixture(t, media.WithMaxBytes(64))

	rec := f.upload(t, "/media/uploads", "notes.txt", []byte("plain text, not a picture"), "")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = f.upload(t, "/media/uploads", "big.png", pngBytes(t, 40, 40), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = f.do(t, http.MethodPost, "/media/uploads", `{"file":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownObject(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/media/objects/nope", "").Code)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	rec := f.upload(t, "/media/sessions", "logo.png", pngBytes(t, 40, 20), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "optimized", view.State)
	base := "/media/sessions/" + view.ID.String()

	rec = f.do(t, http.MethodPost, base+"/crop", `{"rect":{"x":0,"y":0,"width":20,"height":20}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "crop_applied", view.State)
	require.NotNil(t, view.Processed)
	assert.Equal(t, 20, view.Processed.Result.Width)

	rec = f.do(t, http.MethodPost, base+"/crop", `{"rect":{"x":0,"y":0,"width":0,"height":0}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodGet, base, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "crop_applied", view.State)

	rec = f.do(t, http.MethodPost, base+"/submit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "submitted", view.State)
	assert.NotEmpty(t, view.Key)

	assert.Equal(t, 0, f.sessions.Len())
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, base+"/submit", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, base, "").Code)
}

func TestSessionAbandon(t *testing.T) {
	f := newFixture(t)
	rec := f.upload(t, "/media/sessions", "logo.png", pngBytes(t, 20, 20), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	base := "/media/sessions/" + view.ID.String()

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, base, "").Code)
	assert.Equal(t, 0, f.sessions.Len())
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, base, "").Code)
}

func TestSessionCropLimits(t *testing.T) {
	f := newFixture(t, media.WithMaxPixels(10_000))
	rec := f.upload(t, "/media/sessions", "logo.png", pngBytes(t, 40, 40), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	base := "/media/sessions/" + view.ID.String()

	rec = f.do(t, http.MethodPost, base+"/crop", `{"rect":{"x":0,"y":0,"width":6000,"height":6000}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotNil(t, view.Processed)
	assert.Equal(t, 40, view.Processed.Result.Width)
	assert.Equal(t, 40, view.Processed.Result.Height)

	rec = f.do(t, http.MethodPost, base+"/crop", `{"rect":{"x":0,"y":0,"width":40,"height":40},"pixel_ratio":100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRejectsOversizedDimensions(t *testing.T) {
	f := newFixture(t, media.WithMaxPixels(100))
	rec := f.upload(t, "/media/uploads", "wide.png", pngBytes(t, 40, 40), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSessionRejectsNonImage(t *testing.T) {
	f := newFixture(t)
	rec := f.upload(t, "/media/sessions", "notes.txt", []byte("plain text, not a picture"), "")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, 0, f.sessions.Len())
}
