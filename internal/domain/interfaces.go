package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MarketDataProvider supplies quotes and symbol validation.
// Implementations: yahoo and alpaca clients, and the caching decorator in marketdata.
type MarketDataProvider interface {
	// GetCurrentPrice returns a positive price or a *MarketDataError
	GetCurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error)

	// ValidateTicker reports whether the provider knows the symbol
	ValidateTicker(ctx context.Context, ticker string) (bool, error)

	// GetHistoricalCloses returns daily closes per ticker for a period such as "1mo"
	GetHistoricalCloses(ctx context.Context, tickers []string, period string) (map[string][]PricePoint, error)
}

// PortfolioStore is the durable per-owner lot store
type PortfolioStore interface {
	AddLot(ctx context.Context, owner, ticker string, shares, price decimal.Decimal, date time.Time) (*Lot, error)

	// ReduceShares consumes lots FIFO; returns *InsufficientSharesError without changes when short
	ReduceShares(ctx context.Context, owner, ticker string, quantity decimal.Decimal) error

	// GetHoldings returns the total shares of ticker held by owner
	GetHoldings(ctx context.Context, owner, ticker string) (decimal.Decimal, error)
}

// AccountDirectory answers whether an owner identifier refers to an existing account
type AccountDirectory interface {
	Exists(ctx context.Context, username string) (bool, error)
}
