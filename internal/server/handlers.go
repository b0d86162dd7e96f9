package server

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/portfoliobot/internal/utils"
	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes {"error": message}
func writeError(w http.ResponseWriter, log zerolog.Logger, status int, message string) {
	writeJSON(w, log, status, map[string]string{"error": message})
}

// writeDomainError maps err to a status code; internal errors are not echoed
func writeDomainError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := utils.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		writeError(w, log, status, "internal error")
		return
	}
	writeError(w, log, status, err.Error())
}
