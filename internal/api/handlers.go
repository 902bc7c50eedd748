package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vitalstack/vitals-engine/internal/models"
	"github.com/vitalstack/vitals-engine/internal/services"
	"github.com/vitalstack/vitals-engine/internal/source"
)

type handler struct {
	svc    *services.VitalsService
	feed   *source.Feed
	logger *slog.Logger
}

func routes(h *handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.health)
	mux.HandleFunc("/api/v1/beacon/layout-shift", h.layoutShiftBeacon)
	mux.HandleFunc("/api/v1/beacon/interaction", h.interactionBeacon)
	mux.HandleFunc("/api/v1/beacon/font-load", h.fontLoadBeacon)
	mux.HandleFunc("/api/v1/state/cls", h.clsState)
	mux.HandleFunc("/api/v1/state/inp", h.inpState)
	mux.HandleFunc("/api/v1/reset", h.reset)
	return mux
}

type fontLoadPayload struct {
	Time float64 `json:"time"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// layoutShiftBeacon accepts one layout-shift record per call. Records with
// unusable numeric fields are still accepted at the transport layer; the
// aggregator drops and counts them so a poison record never breaks the
// stream. Only malformed JSON is a client error.
func (h *handler) layoutShiftBeacon(w http.ResponseWriter, r *http.Request) {
	if !enforcePost(w, r) {
		return
	}
	var rec models.LayoutShiftRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	h.feed.PublishShift(rec)
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) interactionBeacon(w http.ResponseWriter, r *http.Request) {
	if !enforcePost(w, r) {
		return
	}
	var rec models.InteractionRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	h.feed.PublishInteraction(rec)
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) fontLoadBeacon(w http.ResponseWriter, r *http.Request) {
	if !enforcePost(w, r) {
		return
	}
	var beacon fontLoadPayload
	if err := json.NewDecoder(r.Body).Decode(&beacon); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	h.svc.NoteFontLoad(beacon.Time)
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) clsState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.svc.CLSState())
}

func (h *handler) inpState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.svc.INPState())
}

func (h *handler) reset(w http.ResponseWriter, r *http.Request) {
	if !enforcePost(w, r) {
		return
	}
	h.svc.Reset(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("response encode failed", slog.Any("error", err))
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
