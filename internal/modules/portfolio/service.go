package portfolio

import (
	"context"
	"sort"
	"time"

	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Summary is an owner's portfolio: raw lots plus per-ticker totals
type Summary struct {
	Owner     string           `json:"owner"`
	Holdings  []domain.Holding `json:"holdings"`
	Lots      []domain.Lot     `json:"lots"`
	CostBasis decimal.Decimal  `json:"cost_basis"`
}

// Service handles portfolio views and manual lot entry
type Service struct {
	lots     *LotRepository
	accounts domain.AccountDirectory
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a new portfolio service
func NewService(lots *LotRepository, accounts domain.AccountDirectory, log zerolog.Logger) *Service {
	return &Service{
		lots:     lots,
		accounts: accounts,
		log:      log.With().Str("service", "portfolio").Logger(),
		now:      time.Now,
	}
}

// AddManualLot records holdings acquired outside the order engine
func (s *Service) AddManualLot(ctx context.Context, owner, ticker string, shares, price decimal.Decimal, purchaseDate time.Time) (*domain.Lot, error) {
	if err := s.requireOwner(ctx, owner); err != nil {
		return nil, err
	}
	if domain.NormalizeTicker(ticker) == "" {
		return nil, &domain.ValidationError{Field: "ticker", Message: "is required"}
	}
	if purchaseDate.IsZero() {
		purchaseDate = s.now()
	}
	if purchaseDate.After(s.now()) {
		return nil, &domain.ValidationError{Field: "purchase_date", Message: "cannot be in the future"}
	}

	return s.lots.AddLot(ctx, owner, ticker, shares, price, purchaseDate)
}

// GetPortfolio returns owner's lots with aggregated holdings
func (s *Service) GetPortfolio(ctx context.Context, owner string) (*Summary, error) {
	if err := s.requireOwner(ctx, owner); err != nil {
		return nil, err
	}

	lots, err := s.lots.ListLots(ctx, owner, "")
	if err != nil {
		return nil, err
	}

	holdings := AggregateHoldings(lots)
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.CostBasis)
	}

	return &Summary{
		Owner:     owner,
		Holdings:  holdings,
		Lots:      lots,
		CostBasis: total,
	}, nil
}

// AggregateHoldings groups lots per ticker, sorted by ticker.
// AverageEntryPrice is cost basis weighted by shares.
func AggregateHoldings(lots []domain.Lot) []domain.Holding {
	byTicker := make(map[string]*domain.Holding)
	for i := range lots {
		lot := &lots[i]
		h, ok := byTicker[lot.Ticker]
		if !ok {
			h = &domain.Holding{Ticker: lot.Ticker}
			byTicker[lot.Ticker] = h
		}
		h.Shares = h.Shares.Add(lot.Shares)
		h.CostBasis = h.CostBasis.Add(lot.CostBasis())
		h.LotCount++
	}

	holdings := make([]domain.Holding, 0, len(byTicker))
	for _, h := range byTicker {
		if h.Shares.IsPositive() {
			h.AverageEntryPrice = h.CostBasis.DivRound(h.Shares, 4)
		}
		holdings = append(holdings, *h)
	}

	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Ticker < holdings[j].Ticker
	})

	return holdings
}

func (s *Service) requireOwner(ctx context.Context, owner string) error {
	if owner == "" {
		return &domain.ValidationError{Field: "owner", Message: "is required"}
	}
	exists, err := s.accounts.Exists(ctx, owner)
	if err != nil {
		return err
	}
	if !exists {
		return &domain.NotFoundError{Resource: "account", ID: owner}
	}
	return nil
}
