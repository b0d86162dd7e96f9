package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio/{owner}", func(r chi.Router) {
		r.Get("/", h.HandleGetPortfolio)
		r.Post("/lots", h.HandleAddLot)
	})
}
