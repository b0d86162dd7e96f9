package marketdata

import (
	"context"
	"strings"
	"time"

	"github.com/aristath/portfoliobot/internal/clientdata"
	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// cachedValidation is the structure stored in ticker_validation
type cachedValidation struct {
	Valid bool `msgpack:"valid"`
}

// cachedCloses is the structure stored in historical_closes
type cachedCloses struct {
	Dates  []int64  `msgpack:"dates"`
	Closes []string `msgpack:"closes"`
}

// CachedProvider decorates a provider with the persistent cache.
// Current prices always go upstream.
type CachedProvider struct {
	upstream domain.MarketDataProvider
	cache    *clientdata.Repository
	log      zerolog.Logger
}

// NewCachedProvider wraps upstream. cache is optional; nil disables caching.
func NewCachedProvider(upstream domain.MarketDataProvider, cache *clientdata.Repository, log zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		upstream: upstream,
		cache:    cache,
		log:      log.With().Str("component", "market_data").Logger(),
	}
}

// GetCurrentPrice passes straight through to the upstream provider
func (p *CachedProvider) GetCurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	return p.upstream.GetCurrentPrice(ctx, ticker)
}

// ValidateTicker answers from cache when possible.
// Positive results are kept longer than negative ones.
func (p *CachedProvider) ValidateTicker(ctx context.Context, ticker string) (bool, error) {
	key := strings.ToUpper(ticker)

	if p.cache != nil {
		var cached cachedValidation
		found, err := p.cache.GetIfFresh(clientdata.TableTickerValidation, key, &cached)
		if err != nil {
			p.log.Warn().Err(err).Str("ticker", key).Msg("Failed to read ticker validation cache")
		} else if found {
			p.log.Debug().Str("ticker", key).Bool("valid", cached.Valid).Msg("Cache hit")
			return cached.Valid, nil
		}
	}

	valid, err := p.upstream.ValidateTicker(ctx, ticker)
	if err != nil {
		return false, err
	}

	if p.cache != nil {
		ttl := clientdata.TTLTickerInvalid
		if valid {
			ttl = clientdata.TTLTickerValid
		}
		if err := p.cache.Store(clientdata.TableTickerValidation, key, cachedValidation{Valid: valid}, ttl); err != nil {
			p.log.Warn().Err(err).Str("ticker", key).Msg("Failed to cache ticker validation")
		}
	}

	return valid, nil
}

// GetHistoricalCloses serves fresh cache entries and fetches the rest in one upstream call.
// If the upstream call fails, stale entries are used where present.
func (p *CachedProvider) GetHistoricalCloses(ctx context.Context, tickers []string, period string) (map[string][]domain.PricePoint, error) {
	if p.cache == nil {
		return p.upstream.GetHistoricalCloses(ctx, tickers, period)
	}

	result := make(map[string][]domain.PricePoint, len(tickers))
	var misses []string
	for _, ticker := range tickers {
		var cached cachedCloses
		found, err := p.cache.GetIfFresh(clientdata.TableHistoricalCloses, historyKey(ticker, period), &cached)
		if err != nil {
			p.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to read history cache")
		}
		if found {
			result[ticker] = cached.points()
			continue
		}
		misses = append(misses, ticker)
	}

	if len(misses) == 0 {
		return result, nil
	}

	fetched, err := p.upstream.GetHistoricalCloses(ctx, misses, period)
	if err != nil {
		usedStale := false
		for _, ticker := range misses {
			var cached cachedCloses
			if found, _ := p.cache.Get(clientdata.TableHistoricalCloses, historyKey(ticker, period), &cached); found {
				result[ticker] = cached.points()
				usedStale = true
			}
		}
		if !usedStale && len(result) == 0 {
			return nil, err
		}
		p.log.Warn().Err(err).Strs("tickers", misses).Msg("History fetch failed, using cached data")
		return result, nil
	}

	for ticker, points := range fetched {
		result[ticker] = points
		if err := p.cache.Store(clientdata.TableHistoricalCloses, historyKey(ticker, period), newCachedCloses(points), clientdata.TTLHistory); err != nil {
			p.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache history")
		}
	}

	return result, nil
}

func historyKey(ticker, period string) string {
	return strings.ToUpper(ticker) + "|" + period
}

func newCachedCloses(points []domain.PricePoint) cachedCloses {
	c := cachedCloses{
		Dates:  make([]int64, len(points)),
		Closes: make([]string, len(points)),
	}
	for i, p := range points {
		c.Dates[i] = p.Date.Unix()
		c.Closes[i] = p.Close.String()
	}
	return c
}

func (c cachedCloses) points() []domain.PricePoint {
	points := make([]domain.PricePoint, 0, len(c.Dates))
	for i := range c.Dates {
		if i >= len(c.Closes) {
			break
		}
		price, err := decimal.NewFromString(c.Closes[i])
		if err != nil {
			continue
		}
		points = append(points, domain.PricePoint{
			Date:  time.Unix(c.Dates[i], 0).UTC(),
			Close: price,
		})
	}
	return points
}
