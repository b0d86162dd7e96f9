package testing

import (
	"context"
	"errors"
	"sync"

	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/shopspring/decimal"
)

// MockMarketDataProvider is an in-memory domain.MarketDataProvider
type MockMarketDataProvider struct {
	mu         sync.RWMutex
	prices     map[string]decimal.Decimal
	failures   map[string]error
	history    map[string][]domain.PricePoint
	priceCalls map[string]int
	onFetch    func(ticker string)
}

// NewMockMarketDataProvider creates an empty mock provider
func NewMockMarketDataProvider() *MockMarketDataProvider {
	return &MockMarketDataProvider{
		prices:     make(map[string]decimal.Decimal),
		failures:   make(map[string]error),
		history:    make(map[string][]domain.PricePoint),
		priceCalls: make(map[string]int),
	}
}

// SetPrice sets the current price of ticker and clears any failure
func (m *MockMarketDataProvider) SetPrice(ticker string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[ticker] = price
	delete(m.failures, ticker)
}

// SetFailure makes price fetches for ticker fail with err
func (m *MockMarketDataProvider) SetFailure(ticker string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[ticker] = err
}

// SetHistory sets the closes returned for ticker
func (m *MockMarketDataProvider) SetHistory(ticker string, points []domain.PricePoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[ticker] = points
}

// OnFetch registers a hook invoked at the start of every GetCurrentPrice call
func (m *MockMarketDataProvider) OnFetch(fn func(ticker string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFetch = fn
}

// PriceCalls returns how many times GetCurrentPrice was called for ticker
func (m *MockMarketDataProvider) PriceCalls(ticker string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.priceCalls[ticker]
}

// GetCurrentPrice implements domain.MarketDataProvider
func (m *MockMarketDataProvider) GetCurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	m.mu.Lock()
	m.priceCalls[ticker]++
	hook := m.onFetch
	m.mu.Unlock()

	if hook != nil {
		hook(ticker)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.failures[ticker]; ok {
		return decimal.Zero, &domain.MarketDataError{Ticker: ticker, Err: err}
	}
	price, ok := m.prices[ticker]
	if !ok {
		return decimal.Zero, &domain.MarketDataError{Ticker: ticker, Err: errors.New("no quote")}
	}
	return price, nil
}

// ValidateTicker implements domain.MarketDataProvider
func (m *MockMarketDataProvider) ValidateTicker(ctx context.Context, ticker string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.failures[ticker]; ok {
		return false, &domain.MarketDataError{Ticker: ticker, Err: err}
	}
	_, ok := m.prices[ticker]
	return ok, nil
}

// GetHistoricalCloses implements domain.MarketDataProvider
func (m *MockMarketDataProvider) GetHistoricalCloses(ctx context.Context, tickers []string, period string) (map[string][]domain.PricePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string][]domain.PricePoint, len(tickers))
	for _, ticker := range tickers {
		result[ticker] = m.history[ticker]
	}
	return result, nil
}
