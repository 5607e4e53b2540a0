package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all chart routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/charts", func(r chi.Router) {
		r.Get("/sparklines", h.HandleGetSparklines)
		r.Get("/{name}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetChart(w, r, chi.URLParam(r, "name"))
		})
		r.Get("/{name}/svg", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetChartSVG(w, r, chi.URLParam(r, "name"))
		})
	})
}
