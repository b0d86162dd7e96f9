package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers order and engine routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.HandleListOrders)
		r.Post("/", h.HandlePlaceOrder)
		r.Get("/stats", h.HandleGetStats)

		r.Get("/executions/recent", h.HandleRecentExecutions)
		if h.executionFeed != nil {
			r.Handle("/executions/ws", h.executionFeed)
		}

		r.Get("/engine/status", h.HandleEngineStatus)
		r.Post("/engine/check", h.HandleEngineCheck)

		r.Get("/{id}", h.HandleGetOrder)
		r.Post("/{id}/cancel", h.HandleCancelOrder)
	})
}
