package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"email-responder/internal/cache"
	"email-responder/internal/store"
	"email-responder/pkg/logging/logging"
)

// sampleKeyCount is how many cache keys /cache/stats lists.
const sampleKeyCount = 5

// HistoryReader reads persisted resolutions.
type HistoryReader interface {
	ListHistory(ctx context.Context, limit int) ([]store.HistoryRecord, error)
	Stats(ctx context.Context) (store.Stats, error)
}

// TemplateStore manages reply templates.
type TemplateStore interface {
	ListTemplates(ctx context.Context) ([]store.Template, error)
	GetTemplate(ctx context.Context, id int64) (store.Template, error)
	CreateTemplate(ctx context.Context, t store.Template) (store.Template, error)
	UpdateTemplate(ctx context.Context, t store.Template) error
	DeleteTemplate(ctx context.Context, id int64) error
}

// AdminHandler serves the cache, history, template and stats endpoints.
type AdminHandler struct {
	Cache     cache.Store
	History   HistoryReader
	Templates TemplateStore
	// AIEnabled reports whether the generator stage is configured.
	AIEnabled func() bool
}

type cacheStatsResponse struct {
	CacheSize  int      `json:"cache_size"`
	TTLSeconds float64  `json:"ttl_seconds"`
	CachedKeys []string `json:"cached_keys"`
}

// CacheStats handles GET /cache/stats.
func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	n, err := h.Cache.Size(r.Context())
	if err != nil {
		logging.L(r.Context()).Warn("cache size failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "cache unavailable")
		return
	}
	writeJSON(w, http.StatusOK, cacheStatsResponse{
		CacheSize:  n,
		TTLSeconds: cache.TTLOf(h.Cache).Seconds(),
		CachedKeys: cache.SampleKeys(h.Cache, sampleKeyCount),
	})
}

// CacheClear handles POST /cache/clear, and GET for older clients.
func (h *AdminHandler) CacheClear(w http.ResponseWriter, r *http.Request) {
	if err := h.Cache.Clear(r.Context()); err != nil {
		logging.L(r.Context()).Warn("cache clear failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "cache unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Cache cleared successfully",
		"cache_size": 0,
	})
}

// ListHistory handles GET /history?limit=N.
func (h *AdminHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := h.History.ListHistory(r.Context(), limit)
	if err != nil {
		logging.L(r.Context()).Error("list history failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if records == nil {
		records = []store.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": records})
}

type statsResponse struct {
	store.Stats
	CacheSize int  `json:"cache_size"`
	AIEnabled bool `json:"ai_enabled"`
}

// Stats handles GET /stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, err := h.History.Stats(ctx)
	if err != nil {
		logging.L(ctx).Error("history stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read stats")
		return
	}

	resp := statsResponse{Stats: st}
	if n, err := h.Cache.Size(ctx); err == nil {
		resp.CacheSize = n
	}
	if h.AIEnabled != nil {
		resp.AIEnabled = h.AIEnabled()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListTemplates handles GET /templates.
func (h *AdminHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Templates.ListTemplates(r.Context())
	if err != nil {
		logging.L(r.Context()).Error("list templates failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read templates")
		return
	}
	if templates == nil {
		templates = []store.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

// GetTemplate handles GET /templates/{id}.
func (h *AdminHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := templateID(w, r)
	if !ok {
		return
	}
	t, err := h.Templates.GetTemplate(r.Context(), id)
	if err != nil {
		h.templateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTemplate handles POST /templates.
func (h *AdminHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t store.Template
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := t.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.Templates.CreateTemplate(r.Context(), t)
	if err != nil {
		h.templateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateTemplate handles PUT /templates/{id}.
func (h *AdminHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := templateID(w, r)
	if !ok {
		return
	}
	var t store.Template
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	t.ID = id
	if err := t.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Templates.UpdateTemplate(r.Context(), t); err != nil {
		h.templateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTemplate handles DELETE /templates/{id}.
func (h *AdminHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := templateID(w, r)
	if !ok {
		return
	}
	if err := h.Templates.DeleteTemplate(r.Context(), id); err != nil {
		h.templateError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func templateID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid template id")
		return 0, false
	}
	return id, true
}

func (h *AdminHandler) templateError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	logging.L(r.Context()).Error("template operation failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "template operation failed")
}
