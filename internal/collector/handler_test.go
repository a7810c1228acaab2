package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/healthz", h.Healthz)
	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Get("/stats", h.GetStats)
		r.Get("/recording", h.GetRecording)
	})
	return r
}

func newTestHandler(t *testing.T) (*Handler, *Session) {
	t.Helper()
	sess := newTestSession(t, NewMemoryStore(), newFakeClock(), WithOutputLocation("/data/out"))
	return NewHandler(sess, newTestLogger()), sess
}

func TestHandler_GetSession(t *testing.T) {
	h, sess := newTestHandler(t)
	r := newTestRouter(h)
	ctx := context.Background()
	_ = sess.HandleLabelEvent(ctx, start(ActionJump, 1000))
	_ = sess.HandleLabelEvent(ctx, end(ActionJump, 1350, 3))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var sum struct {
		SessionID      string `json:"session_id"`
		OutputLocation string `json:"output_location"`
		Stats          struct {
			TotalRecordings int            `json:"total_recordings"`
			Counts          map[string]int `json:"counts"`
		} `json:"stats"`
		Active *ActiveRecording `json:"active_recording"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
	if sum.SessionID != "test-session" || sum.OutputLocation != "/data/out" {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Stats.TotalRecordings != 1 || sum.Stats.Counts["jump"] != 1 {
		t.Errorf("stats = %+v", sum.Stats)
	}
	if sum.Active != nil {
		t.Errorf("active = %+v, want null", sum.Active)
	}
}

func TestHandler_GetRecording(t *testing.T) {
	h, sess := newTestHandler(t)
	r := newTestRouter(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session/recording", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("idle: expected 404, got %d", rec.Code)
	}

	_ = sess.HandleLabelEvent(context.Background(), start(ActionWalk, 1000))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session/recording", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("recording: expected 200, got %d", rec.Code)
	}
	var active ActiveRecording
	if err := json.Unmarshal(rec.Body.Bytes(), &active); err != nil {
		t.Fatal(err)
	}
	if active.Action != ActionWalk || active.StartMs != 1000 {
		t.Errorf("active = %+v", active)
	}
}

func TestHandler_GetStats(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats struct {
		Counts map[string]int `json:"counts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if _, ok := stats.Counts["noise"]; !ok || len(stats.Counts) != 7 {
		t.Errorf("counts = %v", stats.Counts)
	}
}

func TestHandler_Healthz(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandler_methodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/session", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
