package utils

import (
	"errors"
	"net/http"

	"github.com/aristath/portfoliobot/internal/domain"
)

// HTTPStatus maps domain errors to response status codes
func HTTPStatus(err error) int {
	var (
		validation   *domain.ValidationError
		transition   *domain.InvalidTransitionError
		marketData   *domain.MarketDataError
		insufficient *domain.InsufficientSharesError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation), errors.As(err, &insufficient):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &marketData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
