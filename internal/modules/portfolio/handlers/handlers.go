// Package handlers provides HTTP handlers for portfolio views and manual lots.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/portfoliobot/internal/modules/portfolio"
	"github.com/aristath/portfoliobot/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// AddLotRequest is the body of POST /api/portfolio/{owner}/lots
type AddLotRequest struct {
	Ticker       string          `json:"ticker"`
	PurchaseDate string          `json:"purchase_date"`
	Shares       decimal.Decimal `json:"shares"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
}

// HandleGetPortfolio returns lots and holdings for an owner
// GET /api/portfolio/{owner}
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetPortfolio(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		h.writeDomainError(w, err, "Failed to get portfolio")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// HandleAddLot records a manual lot
// POST /api/portfolio/{owner}/lots
func (h *Handler) HandleAddLot(w http.ResponseWriter, r *http.Request) {
	var req AddLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	purchaseDate, err := parseDate(req.PurchaseDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "purchase_date must be YYYY-MM-DD or RFC3339")
		return
	}

	lot, err := h.service.AddManualLot(r.Context(), chi.URLParam(r, "owner"),
		req.Ticker, req.Shares, req.EntryPrice, purchaseDate)
	if err != nil {
		h.writeDomainError(w, err, "Failed to add lot")
		return
	}

	h.writeJSON(w, http.StatusCreated, lot)
}

// parseDate accepts a calendar date or a full timestamp; empty means now
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error, context string) {
	status := utils.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg(context)
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
