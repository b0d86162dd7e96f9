package yahoo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource replays quote results in order, repeating the last one
type scriptedSource struct {
	mu      sync.Mutex
	quotes  []quoteResult
	calls   int
	history map[string][]Bar
}

type quoteResult struct {
	price float64
	err   error
}

func (s *scriptedSource) Quote(symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.quotes) {
		i = len(s.quotes) - 1
	}
	s.calls++
	return s.quotes[i].price, s.quotes[i].err
}

func (s *scriptedSource) History(symbol, period string) ([]Bar, error) {
	bars, ok := s.history[symbol]
	if !ok {
		return nil, errors.New("404")
	}
	return bars, nil
}

func newTestClient(source Source, retries int) *Client {
	return NewClientWithSource(source, retries, time.Millisecond, zerolog.Nop())
}

func TestGetCurrentPrice(t *testing.T) {
	source := &scriptedSource{quotes: []quoteResult{{price: 187.42}}}
	client := newTestClient(source, 3)

	price, err := client.GetCurrentPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "187.42", price.String())
	assert.Equal(t, 1, source.calls)
}

func TestGetCurrentPrice_RetriesThenSucceeds(t *testing.T) {
	source := &scriptedSource{quotes: []quoteResult{
		{err: errors.New("timeout")},
		{price: 0},
		{price: 12.5},
	}}
	client := newTestClient(source, 3)

	price, err := client.GetCurrentPrice(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Equal(t, "12.5", price.String())
	assert.Equal(t, 3, source.calls)
}

func TestGetCurrentPrice_InvalidValuesAreMarketDataErrors(t *testing.T) {
	testCases := []struct {
		name   string
		result quoteResult
	}{
		{"error", quoteResult{err: errors.New("delisted")}},
		{"zero", quoteResult{price: 0}},
		{"negative", quoteResult{price: -3}},
		{"nan", quoteResult{price: math.NaN()}},
		{"inf", quoteResult{price: math.Inf(1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			source := &scriptedSource{quotes: []quoteResult{tc.result}}
			client := newTestClient(source, 2)

			_, err := client.GetCurrentPrice(context.Background(), "BAD")
			require.Error(t, err)
			assert.True(t, domain.IsMarketDataError(err))
			assert.Equal(t, 2, source.calls)
		})
	}
}

func TestGetCurrentPrice_ContextCancelledDuringBackoff(t *testing.T) {
	source := &scriptedSource{quotes: []quoteResult{{err: errors.New("down")}}}
	client := NewClientWithSource(source, 5, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetCurrentPrice(ctx, "AAPL")
	require.Error(t, err)
	assert.True(t, domain.IsMarketDataError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, source.calls)
}

func TestValidateTicker(t *testing.T) {
	client := newTestClient(&scriptedSource{quotes: []quoteResult{{price: 10}}}, 1)
	ok, err := client.ValidateTicker(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, ok)

	client = newTestClient(&scriptedSource{quotes: []quoteResult{{err: fmt.Errorf("failed to get quote: %w", ErrUnknownTicker)}}}, 1)
	ok, err = client.ValidateTicker(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateTicker_OutageIsMarketDataError(t *testing.T) {
	client := newTestClient(&scriptedSource{quotes: []quoteResult{{err: errors.New("connection refused")}}}, 1)

	ok, err := client.ValidateTicker(context.Background(), "AAPL")
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, domain.IsMarketDataError(err))
}

func TestGetHistoricalCloses(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	source := &scriptedSource{history: map[string][]Bar{
		"AAPL": {
			{Date: day, Close: 180.5},
			{Date: day.Add(24 * time.Hour), Close: 0},
			{Date: day.Add(48 * time.Hour), Close: 182},
		},
	}}
	client := newTestClient(source, 1)

	closes, err := client.GetHistoricalCloses(context.Background(), []string{"AAPL", "GONE"}, "1mo")
	require.NoError(t, err)
	require.Contains(t, closes, "AAPL")
	assert.NotContains(t, closes, "GONE")
	require.Len(t, closes["AAPL"], 2)
	assert.Equal(t, "180.5", closes["AAPL"][0].Close.String())

	_, err = client.GetHistoricalCloses(context.Background(), []string{"GONE"}, "1mo")
	assert.True(t, domain.IsMarketDataError(err))
}
