// Package yahoo provides a Yahoo Finance market data client built on go-yfinance.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrUnknownTicker is returned by a Source when Yahoo has no such symbol
var ErrUnknownTicker = errors.New("unknown ticker")

// Bar is one daily close as returned by the upstream source
type Bar struct {
	Date  time.Time
	Close float64
}

// Source is the raw Yahoo access used by Client.
// Quote returns ErrUnknownTicker (possibly wrapped) for symbols Yahoo does not know.
type Source interface {
	Quote(symbol string) (float64, error)
	History(symbol, period string) ([]Bar, error)
}

// Client implements domain.MarketDataProvider against Yahoo Finance
type Client struct {
	source     Source
	log        zerolog.Logger
	maxRetries int
	backoff    time.Duration
}

// NewClient creates a new Yahoo Finance client.
// Quote fetches are retried maxRetries times with exponential backoff (1s, 2s, 4s...).
func NewClient(maxRetries int, log zerolog.Logger) *Client {
	return NewClientWithSource(newYFinanceSource(), maxRetries, time.Second, log)
}

// NewClientWithSource creates a client over a custom source
func NewClientWithSource(source Source, maxRetries int, backoff time.Duration, log zerolog.Logger) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		source:     source,
		maxRetries: maxRetries,
		backoff:    backoff,
		log:        log.With().Str("client", "yahoo").Logger(),
	}
}

// GetCurrentPrice returns the latest price for ticker.
// Failures and non-positive or non-finite quotes are reported as *domain.MarketDataError.
func (c *Client) GetCurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			waitTime := c.backoff * time.Duration(1<<uint(attempt-1))
			c.log.Warn().
				Err(lastErr).
				Str("ticker", ticker).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Failed to get price, retrying")

			select {
			case <-ctx.Done():
				return decimal.Zero, &domain.MarketDataError{Ticker: ticker, Err: ctx.Err()}
			case <-time.After(waitTime):
			}
		}

		price, err := c.source.Quote(ticker)
		if err != nil {
			lastErr = err
			continue
		}
		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			lastErr = fmt.Errorf("invalid price %v", price)
			continue
		}

		return decimal.NewFromFloat(price), nil
	}

	return decimal.Zero, &domain.MarketDataError{
		Ticker: ticker,
		Err:    fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr),
	}
}

// ValidateTicker reports whether Yahoo returns a positive quote for ticker.
// Symbols Yahoo does not know are false; outages are *domain.MarketDataError.
func (c *Client) ValidateTicker(ctx context.Context, ticker string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	price, err := c.source.Quote(ticker)
	if errors.Is(err, ErrUnknownTicker) {
		c.log.Debug().Err(err).Str("ticker", ticker).Msg("Unknown ticker")
		return false, nil
	}
	if err != nil {
		return false, &domain.MarketDataError{Ticker: ticker, Err: err}
	}
	return price > 0 && !math.IsNaN(price) && !math.IsInf(price, 0), nil
}

// GetHistoricalCloses returns daily closes per ticker for period ("5d", "1mo", "1y", ...).
// Tickers whose history cannot be fetched are omitted and logged.
func (c *Client) GetHistoricalCloses(ctx context.Context, tickers []string, period string) (map[string][]domain.PricePoint, error) {
	result := make(map[string][]domain.PricePoint, len(tickers))

	for _, t := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bars, err := c.source.History(t, period)
		if err != nil {
			c.log.Warn().Err(err).Str("ticker", t).Str("period", period).Msg("Failed to get historical closes")
			continue
		}

		points := make([]domain.PricePoint, 0, len(bars))
		for _, bar := range bars {
			if bar.Close <= 0 || math.IsNaN(bar.Close) {
				continue
			}
			points = append(points, domain.PricePoint{
				Date:  bar.Date.UTC(),
				Close: decimal.NewFromFloat(bar.Close),
			})
		}
		result[t] = points
	}

	if len(tickers) > 0 && len(result) == 0 {
		return nil, &domain.MarketDataError{Ticker: tickers[0], Err: errors.New("no historical data for any ticker")}
	}

	return result, nil
}
