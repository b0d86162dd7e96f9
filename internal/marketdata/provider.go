// Package marketdata selects the configured quote provider and wraps it with the persistent cache.
package marketdata

import (
	"fmt"

	"github.com/aristath/portfoliobot/internal/clients/alpaca"
	"github.com/aristath/portfoliobot/internal/clients/yahoo"
	"github.com/aristath/portfoliobot/internal/config"
	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/rs/zerolog"
)

// NewProvider builds the upstream provider named in cfg
func NewProvider(cfg *config.Config, log zerolog.Logger) (domain.MarketDataProvider, error) {
	switch cfg.MarketDataProvider {
	case config.ProviderYahoo:
		return yahoo.NewClient(cfg.PriceFetchRetries, log), nil
	case config.ProviderAlpaca:
		return alpaca.NewClient(cfg.AlpacaAPIKey, cfg.AlpacaAPISecret, cfg.AlpacaDataURL, cfg.PriceFetchRetries, log), nil
	default:
		return nil, fmt.Errorf("unknown market data provider: %q", cfg.MarketDataProvider)
	}
}
