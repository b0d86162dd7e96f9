// Package alpaca provides a market data client backed by the Alpaca data API.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// sdkRetryDelay is the SDK's own sleep between 429/500 retries. That sleep ignores
// the context, so the SDK retries once and the client's backoff does the rest.
const sdkRetryDelay = 100 * time.Millisecond

// errNoTrade means Alpaca returned no trade for the symbol
var errNoTrade = errors.New("no latest trade")

// Client implements domain.MarketDataProvider against Alpaca market data
type Client struct {
	md         *marketdata.Client
	log        zerolog.Logger
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

// NewClient creates a new Alpaca market data client.
// dataURL is optional and overrides the default data endpoint.
func NewClient(apiKey, apiSecret, dataURL string, maxRetries int, log zerolog.Logger) *Client {
	return newClient(apiKey, apiSecret, dataURL, maxRetries, time.Second, log)
}

func newClient(apiKey, apiSecret, dataURL string, maxRetries int, backoff time.Duration, log zerolog.Logger) *Client {
	opts := marketdata.ClientOpts{
		APIKey:     apiKey,
		APISecret:  apiSecret,
		RetryLimit: 1,
		RetryDelay: sdkRetryDelay,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &Client{
		md:         marketdata.NewClient(opts),
		log:        log.With().Str("client", "alpaca").Logger(),
		maxRetries: maxRetries,
		backoff:    backoff,
		now:        time.Now,
	}
}

// GetCurrentPrice returns the price of the latest trade for ticker
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
				Msg("Failed to get latest trade, retrying")

			select {
			case <-ctx.Done():
				return decimal.Zero, &domain.MarketDataError{Ticker: ticker, Err: ctx.Err()}
			case <-time.After(waitTime):
			}
		}

		price, err := c.latestTradePrice(ticker)
		if err != nil {
			lastErr = err
			continue
		}
		return decimal.NewFromFloat(price), nil
	}

	return decimal.Zero, &domain.MarketDataError{
		Ticker: ticker,
		Err:    fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr),
	}
}

func (c *Client) latestTradePrice(ticker string) (float64, error) {
	trade, err := c.md.GetLatestTrade(ticker, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return 0, err
	}
	if trade == nil {
		return 0, errNoTrade
	}
	if math.IsNaN(trade.Price) || math.IsInf(trade.Price, 0) || trade.Price <= 0 {
		return 0, fmt.Errorf("%w: invalid price %v", errNoTrade, trade.Price)
	}
	return trade.Price, nil
}

// ValidateTicker reports whether Alpaca has a latest trade for ticker.
// Rejected symbols are false; transport failures, 429 and 5xx are *domain.MarketDataError.
func (c *Client) ValidateTicker(ctx context.Context, ticker string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := c.latestTradePrice(ticker)
	if err == nil {
		return true, nil
	}
	if isUnknownSymbol(err) {
		c.log.Debug().Err(err).Str("ticker", ticker).Msg("Unknown ticker")
		return false, nil
	}
	return false, &domain.MarketDataError{Ticker: ticker, Err: err}
}

// isUnknownSymbol is true for an empty trade or a 4xx other than 429
func isUnknownSymbol(err error) bool {
	if errors.Is(err, errNoTrade) {
		return true
	}
	var apiErr *alpacaapi.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= http.StatusBadRequest &&
		apiErr.StatusCode < http.StatusInternalServerError &&
		apiErr.StatusCode != http.StatusTooManyRequests
}

// GetHistoricalCloses fetches daily bars for all tickers in one request
func (c *Client) GetHistoricalCloses(ctx context.Context, tickers []string, period string) (map[string][]domain.PricePoint, error) {
	if len(tickers) == 0 {
		return map[string][]domain.PricePoint{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := c.now().UTC()
	start, err := PeriodStart(period, end)
	if err != nil {
		return nil, &domain.ValidationError{Field: "period", Message: err.Error()}
	}

	multiBars, err := c.md.GetMultiBars(tickers, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, &domain.MarketDataError{Ticker: strings.Join(tickers, ","), Err: fmt.Errorf("GetMultiBars: %w", err)}
	}

	result := make(map[string][]domain.PricePoint, len(multiBars))
	for symbol, bars := range multiBars {
		points := make([]domain.PricePoint, 0, len(bars))
		for _, bar := range bars {
			if bar.Close <= 0 {
				continue
			}
			points = append(points, domain.PricePoint{
				Date:  bar.Timestamp.UTC(),
				Close: decimal.NewFromFloat(bar.Close),
			})
		}
		result[strings.ToUpper(symbol)] = points
	}

	return result, nil
}

// PeriodStart converts a Yahoo style period ("5d", "1mo", "1y", "ytd", "max") into a start time
func PeriodStart(period string, end time.Time) (time.Time, error) {
	switch period {
	case "ytd":
		return time.Date(end.Year(), 1, 1, 0, 0, 0, 0, time.UTC), nil
	case "max":
		return time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC), nil
	}

	var unit string
	switch {
	case strings.HasSuffix(period, "mo"):
		unit = "mo"
	case strings.HasSuffix(period, "d"):
		unit = "d"
	case strings.HasSuffix(period, "y"):
		unit = "y"
	default:
		return time.Time{}, fmt.Errorf("unsupported period %q", period)
	}

	n, err := strconv.Atoi(strings.TrimSuffix(period, unit))
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("unsupported period %q", period)
	}

	switch unit {
	case "d":
		return end.AddDate(0, 0, -n), nil
	case "mo":
		return end.AddDate(0, -n, 0), nil
	default:
		return end.AddDate(-n, 0, 0), nil
	}
}
