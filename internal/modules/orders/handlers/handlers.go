// Package handlers provides HTTP handlers for conditional orders and the order engine.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/aristath/portfoliobot/internal/modules/orders"
	"github.com/aristath/portfoliobot/internal/services"
	"github.com/aristath/portfoliobot/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Engine is the order engine surface used by the handlers
type Engine interface {
	RunPass(ctx context.Context, trigger string) (*services.PassResult, error)
	Status() services.EngineStatus
	DrainExecutions() []domain.Execution
}

// Handler handles order HTTP requests
type Handler struct {
	service       *orders.Service
	engine        Engine
	executionFeed http.Handler
	log           zerolog.Logger
	checkInterval time.Duration
}

// NewHandler creates a new orders handler
func NewHandler(service *orders.Service, engine Engine, checkInterval time.Duration, log zerolog.Logger) *Handler {
	return &Handler{
		service:       service,
		engine:        engine,
		checkInterval: checkInterval,
		log:           log.With().Str("handler", "orders").Logger(),
	}
}

// SetExecutionFeed mounts a push feed of executions at /orders/executions/ws
func (h *Handler) SetExecutionFeed(feed http.Handler) {
	h.executionFeed = feed
}

// HandlePlaceOrder places a conditional order
// POST /api/orders
func (h *Handler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err, "Failed to place order")
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

// HandleListOrders lists orders newest first
// GET /api/orders?owner=&status=
func (h *Handler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.service.ListOrders(r.Context(), q.Get("owner"), q.Get("status"))
	if err != nil {
		h.writeDomainError(w, err, "Failed to list orders")
		return
	}

	h.writeJSON(w, http.StatusOK, list)
}

// HandleGetOrder returns a single order
// GET /api/orders/{id}
func (h *Handler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err, "Failed to get order")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// HandleCancelOrder cancels a PENDING order on behalf of its owner
// POST /api/orders/{id}/cancel
func (h *Handler) HandleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Owner == "" {
		h.writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	order, err := h.service.CancelOrder(r.Context(), req.Owner, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err, "Failed to cancel order")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// HandleGetStats returns slippage statistics over executed orders
// GET /api/orders/stats?owner=
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		h.writeDomainError(w, err, "Failed to compute order statistics")
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// HandleRecentExecutions returns executions since the previous call and clears them
// GET /api/orders/executions/recent
func (h *Handler) HandleRecentExecutions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.DrainExecutions())
}

// HandleEngineStatus reports the engine state and order counts
// GET /api/orders/engine/status
func (h *Handler) HandleEngineStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.CountByStatus(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "Failed to count orders")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"engine":         h.engine.Status(),
		"check_interval": h.checkInterval.String(),
		"orders":         counts,
	})
}

// HandleEngineCheck runs an evaluation pass now
// POST /api/orders/engine/check
func (h *Handler) HandleEngineCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.RunPass(r.Context(), services.TriggerManual)
	if errors.Is(err, services.ErrPassInProgress) {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.writeDomainError(w, err, "Order check failed")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error, context string) {
	status := utils.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg(context)
		if status == http.StatusBadGateway {
			h.writeError(w, status, err.Error())
			return
		}
		h.writeError(w, status, context)
		return
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
