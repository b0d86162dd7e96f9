// Package handlers provides HTTP handlers for account registration.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/portfoliobot/internal/modules/accounts"
	"github.com/aristath/portfoliobot/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles account HTTP requests
type Handler struct {
	repo *accounts.Repository
	log  zerolog.Logger
}

// NewHandler creates a new accounts handler
func NewHandler(repo *accounts.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "accounts").Logger(),
	}
}

// HandleRegister registers a new account
// POST /api/accounts
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.repo.Register(r.Context(), req.Username)
	if err != nil {
		h.writeDomainError(w, err, "Failed to register account")
		return
	}

	h.writeJSON(w, http.StatusCreated, account)
}

// HandleGet returns a single account
// GET /api/accounts/{username}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	account, err := h.repo.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.writeDomainError(w, err, "Failed to get account")
		return
	}

	h.writeJSON(w, http.StatusOK, account)
}

// HandleList returns all accounts
// GET /api/accounts
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "Failed to list accounts")
		return
	}

	h.writeJSON(w, http.StatusOK, list)
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
