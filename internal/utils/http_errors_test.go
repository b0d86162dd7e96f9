package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", &domain.ValidationError{Field: "quantity", Message: "must be positive"}, http.StatusBadRequest},
		{"insufficient shares", &domain.InsufficientSharesError{}, http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("get: %w", &domain.NotFoundError{Resource: "order", ID: "x"}), http.StatusNotFound},
		{"invalid transition", &domain.InvalidTransitionError{}, http.StatusConflict},
		{"market data", &domain.MarketDataError{Ticker: "AAPL", Err: errors.New("timeout")}, http.StatusBadGateway},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}
