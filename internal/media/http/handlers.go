package mediahttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mercato-hq/mercato/internal/media"
	"github.com/mercato-hq/mercato/internal/platform/httpx"
)

// Handler exposes the image pipeline over HTTP.
type Handler struct {
	logger   *slog.Logger
	pipeline *media.Pipeline
	store    media.Store
	sessions *media.Sessions
}

// NewHandler constructs the media handler.
func NewHandler(logger *slog.Logger, pipeline *media.Pipeline, store media.Store, sessions *media.Sessions) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if sessions == nil {
		sessions = media.NewSessions()
	}
	return &Handler{logger: logger, pipeline: pipeline, store: store, sessions: sessions}
}

// MountRoutes registers media endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/media", func(mr chi.Router) {
		mr.Post("/uploads", h.handleUpload)
		mr.Get("/objects/{key}", h.handleObject)
		mr.Post("/sessions", h.handleOpenSession)
		mr.Get("/sessions/{id}", h.handleSessionState)
		mr.Post("/sessions/{id}/crop", h.handleSessionCrop)
		mr.Post("/sessions/{id}/submit", h.handleSessionSubmit)
		mr.Delete("/sessions/{id}", h.handleSessionAbandon)
	})
}

// SessionView is the wire form of a session state.
type SessionView struct {
	ID        uuid.UUID        `json:"id"`
	State     string           `json:"state"`
	Processed *media.Processed `json:"processed,omitempty"`
	Key       string           `json:"key,omitempty"`
	Warning   string           `json:"warning,omitempty"`
}

func viewOf(id uuid.UUID, st media.State) SessionView {
	v := SessionView{ID: id, State: st.Name()}
	switch s := st.(type) {
	case media.Optimized:
		v.Processed = &s.Processed
	case media.OptimizationFailed:
		v.Processed = &s.Processed
		v.Warning = s.Warning
	case media.CropApplied:
		v.Processed = &s.Processed
	case media.Submitted:
		v.Key = s.Key
	}
	return v
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, *media.CropParams, bool) {
	limit := h.pipeline.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit + 1<<20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.Problem(w, http.StatusRequestEntityTooLarge, "Upload Too Large", fmt.Sprintf("limit is %s", media.FormatBytes(limit)))
			return "", nil, nil, false
		}
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", "expected multipart form with a file field")
		return "", nil, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", "file field is required")
		return "", nil, nil, false
	}
	defer func() { _ = file.Close() }()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", "could not read file")
		return "", nil, nil, false
	}
	var crop *media.CropParams
	if raw := strings.TrimSpace(r.FormValue("crop")); raw != "" {
		crop = &media.CropParams{}
		if err := json.Unmarshal([]byte(raw), crop); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Crop", "crop must be a JSON object")
			return "", nil, nil, false
		}
	}
	return header.Filename, data, crop, true
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	name, data, crop, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	out, err := h.pipeline.Process(r.Context(), name, data, crop)
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, out)
}

func (h *Handler) handleObject(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.Get(r.Context(), chi.URLParam(r, "key"))
	if errors.Is(err, media.ErrNotStored) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	if err != nil {
		httpx.RespondLogged(w, h.logger, "media get", err)
		return
	}
	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(data)
}

func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	name, data, _, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	up, err := h.pipeline.Inspect(name, data)
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}
	id, sess := h.sessions.Open()
	if err := sess.Select(up); err != nil {
		h.sessions.Close(id)
		h.respondPipelineError(w, err)
		return
	}
	st, err := sess.Optimize(r.Context(), h.pipeline)
	if err != nil {
		h.sessions.Close(id)
		h.respondPipelineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, viewOf(id, st))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (uuid.UUID, *media.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err == nil {
		var sess *media.Session
		if sess, err = h.sessions.Get(id); err == nil {
			return id, sess, true
		}
	}
	httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown upload session")
	return uuid.Nil, nil, false
}

func (h *Handler) handleSessionState(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(id, sess.State()))
}

func (h *Handler) handleSessionCrop(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var crop media.CropParams
	if err := httpx.DecodeJSON(r, &crop); err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := sess.Crop(r.Context(), h.pipeline, crop)
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(id, st))
}

func (h *Handler) handleSessionSubmit(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sub, err := sess.Submit()
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}
	h.sessions.Close(id)
	httpx.JSON(w, http.StatusOK, viewOf(id, sub))
}

func (h *Handler) handleSessionAbandon(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.session(w, r)
	if !ok {
		return
	}
	h.sessions.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondPipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrTooLarge), errors.Is(err, media.ErrTooManyPixels):
		httpx.Problem(w, http.StatusRequestEntityTooLarge, "Upload Too Large", err.Error())
	case errors.Is(err, media.ErrNotImage):
		httpx.Problem(w, http.StatusUnsupportedMediaType, "Unsupported Media Type", err.Error())
	case errors.Is(err, media.ErrEmptyUpload), errors.Is(err, media.ErrEmptyCrop), errors.Is(err, media.ErrCropTooLarge):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", err.Error())
	case errors.Is(err, media.ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Session State", err.Error())
	default:
		httpx.RespondLogged(w, h.logger, "media pipeline", err)
	}
}
