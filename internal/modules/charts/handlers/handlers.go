// Package handlers provides HTTP handlers for chart operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/tipster/internal/geometry"
	"github.com/aristath/tipster/internal/modules/charts"
	"github.com/rs/zerolog"
)

// Handler handles chart HTTP requests
type Handler struct {
	service *charts.Service
	log     zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(service *charts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

// HandleGetChart handles GET /api/charts/{name}
// Returns the laid-out scene for one dashboard chart
func (h *Handler) HandleGetChart(w http.ResponseWriter, r *http.Request, name string) {
	scene, err := h.service.Chart(name)
	if err != nil {
		h.respondChartError(w, err, name)
		return
	}

	response := map[string]interface{}{
		"data": scene,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetChartSVG handles GET /api/charts/{name}/svg
// Returns the chart rendered as a standalone SVG document
func (h *Handler) HandleGetChartSVG(w http.ResponseWriter, r *http.Request, name string) {
	scene, err := h.service.Chart(name)
	if err != nil {
		h.respondChartError(w, err, name)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(geometry.RenderSVG(scene)); err != nil {
		h.log.Error().Err(err).Str("chart", name).Msg("Failed to write SVG response")
	}
}

// HandleGetSparklines handles GET /api/charts/sparklines
// Returns per-league profit sparklines for the requested period
func (h *Handler) HandleGetSparklines(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "3M"
	}

	sparklines, err := h.service.LeagueSparklines(period)
	if err != nil {
		if errors.Is(err, charts.ErrNoDataset) {
			http.Error(w, "Dataset not loaded yet", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"period":     period,
			"sparklines": sparklines,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// respondChartError maps service errors onto HTTP statuses
func (h *Handler) respondChartError(w http.ResponseWriter, err error, name string) {
	switch {
	case errors.Is(err, charts.ErrNoDataset):
		http.Error(w, "Dataset not loaded yet", http.StatusServiceUnavailable)
	case errors.Is(err, charts.ErrUnknownChart):
		http.Error(w, "Unknown chart: "+name, http.StatusNotFound)
	default:
		h.log.Error().Err(err).Str("chart", name).Msg("Failed to lay out chart")
		http.Error(w, "Failed to lay out chart", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
