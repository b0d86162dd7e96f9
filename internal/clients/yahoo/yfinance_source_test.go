package yahoo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnjoon/go-yfinance/pkg/client"
	"github.com/wnjoon/go-yfinance/pkg/models"
)

type fakeTicker struct {
	quote    *models.Quote
	quoteErr error
	info     *models.Info
	infoErr  error
	bars     []models.Bar
	closed   bool
}

func (f *fakeTicker) Quote() (*models.Quote, error) { return f.quote, f.quoteErr }
func (f *fakeTicker) Info() (*models.Info, error) { return f.info, f.infoErr }
func (f *fakeTicker) History(models.HistoryParams) ([]models.Bar, error) {
	return f.bars, nil
}
func (f *fakeTicker) Close() { f.closed = true }

func sourceFor(tk *fakeTicker) yfinanceSource {
	return yfinanceSource{open: func(string) (yfTicker, error) { return tk, nil }}
}

func TestYFinanceSource_QuotePriceSelection(t *testing.T) {
	testCases := []struct {
		name     string
		ticker   *fakeTicker
		expected float64
	}{
		{
			name:     "regular market price",
			ticker:   &fakeTicker{quote: &models.Quote{RegularMarketPrice: 187.42, PreMarketPrice: 186}},
			expected: 187.42,
		},
		{
			name:     "pre market price",
			ticker:   &fakeTicker{quote: &models.Quote{PreMarketPrice: 186}},
			expected: 186,
		},
		{
			name:     "post market price",
			ticker:   &fakeTicker{quote: &models.Quote{PostMarketPrice: 188.1}},
			expected: 188.1,
		},
		{
			name: "info current price",
			ticker: &fakeTicker{
				quoteErr: errors.New("quote unavailable"),
				info:     &models.Info{CurrentPrice: 185.5},
			},
			expected: 185.5,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			price, err := sourceFor(tc.ticker).Quote("AAPL")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, price)
			assert.True(t, tc.ticker.closed)
		})
	}
}

func TestYFinanceSource_PreviousCloseIsNotAPrice(t *testing.T) {
	tk := &fakeTicker{
		quote: &models.Quote{RegularMarketPreviousClose: 180},
		info:  &models.Info{RegularMarketPreviousClose: 180},
	}
	c := NewClientWithSource(sourceFor(tk), 2, time.Millisecond, zerolog.Nop())

	price, err := c.GetCurrentPrice(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, domain.IsMarketDataError(err))
	assert.True(t, price.IsZero())
}

func TestYFinanceSource_UnknownSymbol(t *testing.T) {
	testCases := []struct {
		name   string
		ticker *fakeTicker
	}{
		{
			name:   "not found",
			ticker: &fakeTicker{quoteErr: client.WrapNotFoundError("NOPE"), infoErr: client.WrapNotFoundError("NOPE")},
		},
		{
			name:   "invalid symbol",
			ticker: &fakeTicker{quoteErr: client.WrapInvalidSymbolError("NOPE"), infoErr: client.WrapInvalidSymbolError("NOPE")},
		},
		{
			name:   "empty quote",
			ticker: &fakeTicker{quote: &models.Quote{}, info: &models.Info{}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewClientWithSource(sourceFor(tc.ticker), 1, time.Millisecond, zerolog.Nop())
			ok, err := c.ValidateTicker(context.Background(), "NOPE")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestYFinanceSource_NetworkFailureIsNotUnknown(t *testing.T) {
	netErr := client.WrapNetworkError(errors.New("dial tcp: connection refused"))
	tk := &fakeTicker{quoteErr: netErr, infoErr: netErr}

	_, err := sourceFor(tk).Quote("AAPL")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownTicker)

	c := NewClientWithSource(sourceFor(tk), 1, time.Millisecond, zerolog.Nop())
	ok, err := c.ValidateTicker(context.Background(), "AAPL")
	assert.False(t, ok)
	assert.True(t, domain.IsMarketDataError(err))
}

func TestYFinanceSource_History(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tk := &fakeTicker{bars: []models.Bar{{Date: day, Close: 180.5}}}

	bars, err := sourceFor(tk).History("AAPL", "5d")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, day, bars[0].Date)
	assert.Equal(t, 180.5, bars[0].Close)
}
