package yahoo

import (
	"fmt"

	"github.com/wnjoon/go-yfinance/pkg/client"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// yfTicker is the subset of *ticker.Ticker used here
type yfTicker interface {
	Quote() (*models.Quote, error)
	Info() (*models.Info, error)
	History(params models.HistoryParams) ([]models.Bar, error)
	Close()
}

// yfinanceSource is the production Source
type yfinanceSource struct {
	open func(symbol string) (yfTicker, error)
}

func newYFinanceSource() yfinanceSource {
	return yfinanceSource{
		open: func(symbol string) (yfTicker, error) {
			t, err := ticker.New(symbol)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
	}
}

// Quote returns a live price only. A previous close is never a current price.
func (s yfinanceSource) Quote(symbol string) (float64, error) {
	t, err := s.open(symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to create ticker: %w", classify(err))
	}
	defer t.Close()

	quote, err := t.Quote()
	if err == nil && quote != nil {
		if price := livePrice(quote); price > 0 {
			return price, nil
		}
	}

	info, infoErr := t.Info()
	if infoErr == nil && info != nil && info.CurrentPrice > 0 {
		return info.CurrentPrice, nil
	}

	switch {
	case err != nil:
		return 0, fmt.Errorf("failed to get quote: %w", classify(err))
	case infoErr != nil:
		return 0, fmt.Errorf("failed to get info: %w", classify(infoErr))
	default:
		return 0, fmt.Errorf("%w: no live price in quote", ErrUnknownTicker)
	}
}

func (s yfinanceSource) History(symbol, period string) ([]Bar, error) {
	t, err := s.open(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", classify(err))
	}
	defer t.Close()

	bars, err := t.History(models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get historical prices: %w", classify(err))
	}

	out := make([]Bar, 0, len(bars))
	for _, bar := range bars {
		out = append(out, Bar{Date: bar.Date, Close: bar.Close})
	}
	return out, nil
}

// livePrice picks the regular session price, then the extended hours ones
func livePrice(quote *models.Quote) float64 {
	for _, price := range []float64{quote.RegularMarketPrice, quote.PreMarketPrice, quote.PostMarketPrice} {
		if price > 0 {
			return price
		}
	}
	return 0
}

// classify marks symbol lookup failures with ErrUnknownTicker
func classify(err error) error {
	if client.IsNotFoundError(err) || client.IsInvalidSymbolError(err) || client.IsNoDataError(err) {
		return fmt.Errorf("%w: %w", ErrUnknownTicker, err)
	}
	return err
}
