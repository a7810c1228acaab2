package collector

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler exposes read-only session status over HTTP using go-chi.
type Handler struct {
	session *Session
	log     *slog.Logger
}

// NewHandler returns a Handler for session.
func NewHandler(session *Session, log *slog.Logger) *Handler {
	return &Handler{session: session, log: log}
}

// GetSession handles GET /session: the live session summary.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.session.Summary())
}

// GetRecording handles GET /session/recording: the active recording, or 404
// while idle.
func (h *Handler) GetRecording(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.session.Active()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// GetStats handles GET /session/stats: per-label counts and duration.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.session.Stats())
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.log.Error("encode response failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
