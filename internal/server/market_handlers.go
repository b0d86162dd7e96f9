package server

import (
	"net/http"

	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/aristath/portfoliobot/internal/utils"
	"github.com/rs/zerolog"
)

// maxHistoryTickers bounds a single history request
const maxHistoryTickers = 50

var validPeriods = map[string]bool{
	"5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "ytd": true, "max": true,
}

// MarketHandlers serves market data lookups
type MarketHandlers struct {
	provider domain.MarketDataProvider
	log      zerolog.Logger
}

// NewMarketHandlers creates market handlers
func NewMarketHandlers(provider domain.MarketDataProvider, log zerolog.Logger) *MarketHandlers {
	return &MarketHandlers{
		provider: provider,
		log:      log.With().Str("handler", "market").Logger(),
	}
}

// HandleHistory returns daily closes per ticker
// GET /api/market/history?tickers=AAPL,MSFT&period=1mo
func (h *MarketHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeError(w, h.log, http.StatusServiceUnavailable, "market data not configured")
		return
	}

	tickers := utils.ParseTickerList(r.URL.Query().Get("tickers"))
	if len(tickers) == 0 {
		writeError(w, h.log, http.StatusBadRequest, "tickers is required")
		return
	}
	if len(tickers) > maxHistoryTickers {
		writeError(w, h.log, http.StatusBadRequest, "too many tickers")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1mo"
	}
	if !validPeriods[period] {
		writeError(w, h.log, http.StatusBadRequest, "invalid period")
		return
	}

	closes, err := h.provider.GetHistoricalCloses(r.Context(), tickers, period)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"period": period,
		"closes": closes,
	})
}
