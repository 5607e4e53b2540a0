package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all overview routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/overview", func(r chi.Router) {
		r.Get("/", h.HandleGetSummary)
		r.Get("/summary", h.HandleGetSummary)
		r.Get("/games", h.HandleGetGames)
		r.Get("/bets", h.HandleGetBets)
		r.Get("/recommendations", h.HandleGetRecommendations)
		r.Get("/parlays", h.HandleGetParlays)
		r.Get("/segments", h.HandleGetSegments)
	})
	r.Route("/parlays", func(r chi.Router) {
		r.Get("/candidates", h.HandleGetParlayCandidates)
	})
}
