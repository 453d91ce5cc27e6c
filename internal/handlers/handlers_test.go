package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"email-responder/internal/cache"
	"email-responder/internal/classify"
	"email-responder/internal/pipeline"
	"email-responder/internal/store"
	"email-responder/pkg/logging/logging"
)

type fakeResolver struct {
	result  pipeline.Result
	lastReq pipeline.Request
	lastCtx context.Context
	calls   int
}

func (f *fakeResolver) Resolve(ctx context.Context, req pipeline.Request) pipeline.Result {
	f.calls++
	f.lastReq = req
	f.lastCtx = ctx
	return f.result
}

func newAdmin(t *testing.T) (*AdminHandler, *cache.MemoryStore, *store.Store) {
	t.Helper()

	mem := cache.NewMemoryStore(cache.MemoryConfig{TTL: 30 * time.Minute})
	t.Cleanup(func() { mem.Close() })

	db, err := store.Open(filepath.Join(t.TempDir(), "handlers.db"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &AdminHandler{
		Cache:     cache.NewLoggingStore(mem),
		History:   db,
		Templates: db,
		AIEnabled: func() bool { return false },
	}, mem, db
}

func adminRouter(h *AdminHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/cache/stats", h.CacheStats)
	r.Post("/cache/clear", h.CacheClear)
	r.Get("/history", h.ListHistory)
	r.Get("/stats", h.Stats)
	r.Get("/templates", h.ListTemplates)
	r.Post("/templates", h.CreateTemplate)
	r.Get("/templates/{id}", h.GetTemplate)
	r.Put("/templates/{id}", h.UpdateTemplate)
	r.Delete("/templates/{id}", h.DeleteTemplate)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestReplyHandlerGenerate(t *testing.T) {
	fake := &fakeResolver{result: pipeline.Result{
		Reply:       "I'll check my calendar.",
		Confidence:  0.7,
		Type:        classify.TypeScheduling,
		Suggestions: []string{"Adjust tone as needed"},
		Duration:    1500 * time.Millisecond,
	}}
	h := NewReplyHandler(fake)

	payload, _ := json.Marshal(ReplyRequest{
		EmailContent: "Can we meet Tuesday?",
		Sender:       "ana@example.com",
		Subject:      "Meeting",
		ResponseType: "professional",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/replies", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	h.Generate(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var got ReplyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.GeneratedResponse != "I'll check my calendar." || got.ResponseType != "scheduling" {
		t.Fatalf("unexpected response: %+v", got)
	}
	if got.ProcessingTime != 1.5 || got.Cached {
		t.Fatalf("unexpected metadata: %+v", got)
	}

	if fake.lastReq.TypeHint != "professional" || fake.lastReq.Sender != "ana@example.com" {
		t.Fatalf("request not forwarded: %+v", fake.lastReq)
	}
	if fake.lastReq.Context != "Subject: Meeting" {
		t.Fatalf("expected subject folded into context, got %q", fake.lastReq.Context)
	}
}

func TestReplyHandlerRejectsBadInput(t *testing.T) {
	fake := &fakeResolver{}
	h := NewReplyHandler(fake)

	for name, body := range map[string]string{
		"malformed": `{"email_content":`,
		"blank":     `{"email_content":"   "}`,
	} {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.Generate(rr, httptest.NewRequest(http.MethodPost, "/v1/replies", strings.NewReader(body)))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
		})
	}
	if fake.calls != 0 {
		t.Fatalf("resolver must not run for invalid input")
	}
}

func TestReplyHandlerNeverReturnsNullSuggestions(t *testing.T) {
	h := NewReplyHandler(&fakeResolver{result: pipeline.Result{Reply: "ok", Type: classify.TypeGeneral}})
	rr := httptest.NewRecorder()
	h.Generate(rr, httptest.NewRequest(http.MethodPost, "/v1/replies", strings.NewReader(`{"email_content":"hi"}`)))

	if !strings.Contains(rr.Body.String(), `"suggestions":[]`) {
		t.Fatalf("expected empty suggestions array, got %s", rr.Body.String())
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	h, mem, _ := newAdmin(t)
	router := adminRouter(h)
	ctx := context.Background()

	_ = mem.Put(ctx, "k1", "v1")
	_ = mem.Put(ctx, "k2", "v2")

	rr := do(t, router, http.MethodGet, "/cache/stats", "")
	var stats cacheStatsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.CacheSize != 2 || stats.TTLSeconds != 1800 || len(stats.CachedKeys) != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	rr = do(t, router, http.MethodPost, "/cache/clear", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if mem.Len() != 0 {
		t.Fatalf("expected cache to be empty after clear")
	}
}

func TestHistoryAndStats(t *testing.T) {
	h, _, db := newAdmin(t)
	router := adminRouter(h)
	ctx := context.Background()

	for i, typ := range []string{"billing", "billing", "urgent"} {
		err := db.AppendHistory(ctx, store.HistoryRecord{
			OriginalEmail:     "message",
			GeneratedResponse: "reply",
			ResponseType:      typ,
			Source:            "fallback",
			Confidence:        0.7,
			CreatedAt:         time.Now().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append history: %v", err)
		}
	}

	rr := do(t, router, http.MethodGet, "/history?limit=2", "")
	var hist struct {
		History []store.HistoryRecord `json:"history"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.History) != 2 || hist.History[0].ResponseType != "urgent" {
		t.Fatalf("unexpected history: %+v", hist.History)
	}

	if rr := do(t, router, http.MethodGet, "/history?limit=abc", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rr.Code)
	}

	rr = do(t, router, http.MethodGet, "/stats", "")
	var st statsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.TotalResponses != 3 || st.ByType["billing"] != 2 || st.AIEnabled {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestTemplateEndpoints(t *testing.T) {
	h, _, _ := newAdmin(t)
	router := adminRouter(h)

	rr := do(t, router, http.MethodGet, "/templates", "")
	var seeded []store.Template
	if err := json.Unmarshal(rr.Body.Bytes(), &seeded); err != nil {
		t.Fatalf("decode templates: %v", err)
	}
	if len(seeded) == 0 {
		t.Fatalf("expected seeded templates")
	}

	rr = do(t, router, http.MethodPost, "/templates", `{"name":"Refund","template":"Refund issued.","category":"returns"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created store.Template
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected an id on the created template")
	}

	if rr := do(t, router, http.MethodPost, "/templates", `{"name":"Empty"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid template, got %d", rr.Code)
	}

	path := "/templates/" + jsonNumber(created.ID)
	rr = do(t, router, http.MethodPut, path, `{"name":"Refund","template":"Refund sent.","category":"returns"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d", rr.Code)
	}

	rr = do(t, router, http.MethodGet, path, "")
	var got store.Template
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode template: %v", err)
	}
	if got.Template != "Refund sent." {
		t.Fatalf("update not applied: %+v", got)
	}

	if rr := do(t, router, http.MethodDelete, path, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodGet, path, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodGet, "/templates/nope", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rr.Code)
	}
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestGenerateAddsRequestFieldsToLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	fake := &fakeResolver{result: pipeline.Result{Reply: "ok", Type: classify.TypeGeneral}}
	h := NewReplyHandler(fake)

	body := `{"email_content":"Status update?","response_type":"urgent"}`
	req := httptest.NewRequest(http.MethodPost, "/generate-response", strings.NewReader(body))
	req = req.WithContext(logging.WithLogger(req.Context(), zap.New(core)))
	rr := httptest.NewRecorder()

	h.Generate(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	logging.L(fake.lastCtx).Info("resolving")

	entries := logs.FilterMessage("resolving").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["type_hint"] != "urgent" {
		t.Fatalf("expected type_hint field, got %v", fields)
	}
	if fields["message_chars"] != int64(len("Status update?")) {
		t.Fatalf("expected message_chars field, got %v", fields)
	}
}
