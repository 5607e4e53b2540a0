// Package handlers provides HTTP handlers for dashboard overview operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/tipster/internal/modules/overview"
	"github.com/rs/zerolog"
)

// Handler handles overview HTTP requests
type Handler struct {
	service *overview.Service
	log     zerolog.Logger
}

// NewHandler creates a new overview handler
func NewHandler(service *overview.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "overview").Logger(),
	}
}

// HandleGetSummary handles GET /api/overview
// Returns the headline aggregates for the current dataset
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary()
	if err != nil {
		h.respondError(w, err, "Failed to build summary")
		return
	}
	h.respondData(w, summary)
}

// HandleGetGames handles GET /api/overview/games
// Returns upcoming fixtures, optionally filtered by league
func (h *Handler) HandleGetGames(w http.ResponseWriter, r *http.Request) {
	league := r.URL.Query().Get("league")
	limit := parseLimit(r.URL.Query().Get("limit"))

	games, err := h.service.UpcomingGames(league, limit)
	if err != nil {
		h.respondError(w, err, "Failed to list games")
		return
	}
	h.respondData(w, map[string]interface{}{
		"games": games,
		"count": len(games),
	})
}

// HandleGetBets handles GET /api/overview/bets
// Returns settled bets, newest first
func (h *Handler) HandleGetBets(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))

	bets, err := h.service.RecentResults(limit)
	if err != nil {
		h.respondError(w, err, "Failed to list bets")
		return
	}
	h.respondData(w, map[string]interface{}{
		"bets":  bets,
		"count": len(bets),
	})
}

// HandleGetRecommendations handles GET /api/overview/recommendations
// Returns current picks joined with their games' derived lines
func (h *Handler) HandleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.Recommendations()
	if err != nil {
		h.respondError(w, err, "Failed to list recommendations")
		return
	}
	h.respondData(w, map[string]interface{}{
		"recommendations": recs,
		"count":           len(recs),
	})
}

// HandleGetParlays handles GET /api/overview/parlays
// Returns winning parlay tickets, latest window first
func (h *Handler) HandleGetParlays(w http.ResponseWriter, r *http.Request) {
	parlays, err := h.service.Parlays()
	if err != nil {
		h.respondError(w, err, "Failed to list parlays")
		return
	}
	h.respondData(w, map[string]interface{}{
		"parlays": parlays,
		"count":   len(parlays),
	})
}

// HandleGetSegments handles GET /api/overview/segments
// Returns the per-segment ROI tables
func (h *Handler) HandleGetSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := h.service.Segments()
	if err != nil {
		h.respondError(w, err, "Failed to list segments")
		return
	}
	h.respondData(w, segments)
}

// HandleGetParlayCandidates handles GET /api/parlays/candidates
// Returns a hypothetical slip built from the open picks
func (h *Handler) HandleGetParlayCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.service.ParlayCandidates()
	if err != nil {
		h.respondError(w, err, "Failed to build parlay candidates")
		return
	}
	h.respondData(w, candidates)
}

// respondData wraps a payload in the standard response envelope
func (h *Handler) respondData(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// respondError maps service errors onto HTTP statuses
func (h *Handler) respondError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, overview.ErrNoDataset) {
		http.Error(w, "Dataset not loaded yet", http.StatusServiceUnavailable)
		return
	}
	h.log.Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// parseLimit reads a list limit query value, leaving the service's
// default when absent or malformed.
func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
