package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"geolearn-service/internal/domain"
	"geolearn-service/internal/geometry"
	"geolearn-service/internal/progress"
)

const defaultLeaderboardLimit = 10

// APIHandler exposes the read/report endpoints the UI needs outside the
// quiz websocket: leaderboard, user progress, activity signals, and the
// calculator backend.
type APIHandler struct {
	progress *progress.ProgressStore
	ranker   *progress.LeaderboardRanker
	log      *zap.Logger
}

func NewAPIHandler(store *progress.ProgressStore, ranker *progress.LeaderboardRanker, log *zap.Logger) *APIHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &APIHandler{progress: store, ranker: ranker, log: log}
}

// Register mounts the API routes on the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/api/progress", h.handleProgress)
	mux.HandleFunc("/api/activity", h.handleActivity)
	mux.HandleFunc("/api/calc", h.handleCalc)
}

func (h *APIHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.ranker.GetTopN(r.Context(), limit)
	if err != nil {
		http.Error(w, "leaderboard unavailable", http.StatusServiceUnavailable)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	up, err := h.progress.GetProgress(r.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "no progress for user", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "progress unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

type activityRequest struct {
	UserID  string                 `json:"userId"`
	Kind    domain.ActivityKind    `json:"kind"`
	Payload domain.ActivityPayload `json:"payload"`
}

func (h *APIHandler) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "invalid activity payload", http.StatusBadRequest)
		return
	}

	if err := h.progress.RecordActivity(r.Context(), req.UserID, req.Kind, req.Payload); err != nil {
		http.Error(w, "activity not recorded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type calcResponse struct {
	Volume      float64 `json:"volume"`
	SurfaceArea float64 `json:"surfaceArea"`
}

// handleCalc backs the calculator page. Values are rounded to two decimal
// places here, at the presentation boundary; the engine stays full
// precision.
func (h *APIHandler) handleCalc(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var spec domain.ShapeSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "invalid shape payload", http.StatusBadRequest)
		return
	}

	volume, area, err := geometry.Measure(spec)
	if errors.Is(err, domain.ErrInvalidDimension) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		http.Error(w, "calculation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, calcResponse{
		Volume:      geometry.Round2(volume),
		SurfaceArea: geometry.Round2(area),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
