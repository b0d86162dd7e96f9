package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/aristath/portfoliobot/internal/events"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StalenessChecker runs an evaluation pass when the last one is older than maxAge
type StalenessChecker interface {
	CheckIfStale(ctx context.Context, maxAge time.Duration) (bool, error)
}

// PlaceOrderRequest is the input of PlaceOrder
type PlaceOrderRequest struct {
	Owner       string          `json:"owner"`
	Ticker      string          `json:"ticker"`
	Side        string          `json:"side"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// Service is the interactive surface of the order engine: place, cancel, list
type Service struct {
	repo      *OrderRepository
	portfolio domain.PortfolioStore
	accounts  domain.AccountDirectory
	market    domain.MarketDataProvider
	events    *events.Manager
	engine    StalenessChecker
	log       zerolog.Logger
	lazyAfter time.Duration
}

// NewService creates a new order service. eventManager may be nil.
func NewService(
	repo *OrderRepository,
	portfolio domain.PortfolioStore,
	accounts domain.AccountDirectory,
	market domain.MarketDataProvider,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		portfolio: portfolio,
		accounts:  accounts,
		market:    market,
		events:    eventManager,
		log:       log.With().Str("service", "orders").Logger(),
	}
}

// SetEngine enables the lazy check on ListOrders.
// Set after construction since the engine itself depends on the repository.
func (s *Service) SetEngine(engine StalenessChecker, lazyAfter time.Duration) {
	s.engine = engine
	s.lazyAfter = lazyAfter
}

// PlaceOrder validates and stores a new PENDING order.
// Nothing is written unless every check passes.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	side, err := domain.ParseTradeSide(req.Side)
	if err != nil {
		return nil, err
	}
	if !req.TargetPrice.IsPositive() {
		return nil, &domain.ValidationError{Field: "target_price", Message: "must be positive"}
	}
	if !req.Quantity.IsPositive() {
		return nil, &domain.ValidationError{Field: "quantity", Message: "must be positive"}
	}

	ticker := domain.NormalizeTicker(req.Ticker)
	if ticker == "" {
		return nil, &domain.ValidationError{Field: "ticker", Message: "is required"}
	}

	if req.Owner == "" {
		return nil, &domain.ValidationError{Field: "owner", Message: "is required"}
	}
	exists, err := s.accounts.Exists(ctx, req.Owner)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &domain.ValidationError{Field: "owner", Message: fmt.Sprintf("unknown account %q", req.Owner)}
	}

	valid, err := s.market.ValidateTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, &domain.ValidationError{Field: "ticker", Message: fmt.Sprintf("unknown ticker %q", ticker)}
	}

	if side.IsSell() {
		held, err := s.portfolio.GetHoldings(ctx, req.Owner, ticker)
		if err != nil {
			return nil, err
		}
		if held.LessThan(req.Quantity) {
			return nil, &domain.ValidationError{
				Field:   "quantity",
				Message: fmt.Sprintf("exceeds holdings of %s (%s available)", ticker, held.String()),
			}
		}
	}

	order, err := s.repo.Insert(ctx, req.Owner, ticker, side, req.TargetPrice, req.Quantity)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.EmitTyped("orders", &events.OrderPlacedData{
			OrderID:     order.ID,
			Owner:       order.Owner,
			Ticker:      order.Ticker,
			Side:        string(order.Side),
			TargetPrice: order.TargetPrice,
			Quantity:    order.Quantity,
		})
	}

	return order, nil
}

// CancelOrder cancels one of owner's PENDING orders and returns it.
// Another owner's order reads as not found. An order that already reached a
// terminal state (including one the engine executed first) yields *InvalidTransitionError.
func (s *Service) CancelOrder(ctx context.Context, owner, id string) (*domain.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Owner != owner {
		return nil, &domain.NotFoundError{Resource: "order", ID: id}
	}

	if err := s.repo.Transition(ctx, id, domain.OrderStatusCancelled, nil, time.Now()); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusCancelled

	s.log.Info().
		Str("order_id", id).
		Str("owner", owner).
		Str("ticker", order.Ticker).
		Msg("Order cancelled")

	if s.events != nil {
		s.events.EmitTyped("orders", &events.OrderCancelledData{
			OrderID: order.ID,
			Owner:   order.Owner,
			Ticker:  order.Ticker,
		})
	}

	return order, nil
}

// ListOrders returns orders newest first, optionally filtered by owner and status.
// When the last evaluation pass is stale one runs first, so pending orders are current.
func (s *Service) ListOrders(ctx context.Context, owner, status string) ([]domain.Order, error) {
	filter := Filter{Owner: owner}
	if status != "" {
		parsed, err := domain.ParseOrderStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = parsed
	}

	s.refreshIfStale(ctx)

	return s.repo.List(ctx, filter)
}

// GetOrder returns a single order
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.Get(ctx, id)
}

// GetStats returns slippage statistics over executed orders, optionally for one owner
func (s *Service) GetStats(ctx context.Context, owner string) (SlippageStats, error) {
	executed, err := s.repo.List(ctx, Filter{Owner: owner, Status: domain.OrderStatusExecuted})
	if err != nil {
		return SlippageStats{}, err
	}
	return ComputeSlippageStats(executed), nil
}

// CountByStatus exposes order counts for status endpoints
func (s *Service) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	return s.repo.CountByStatus(ctx)
}

func (s *Service) refreshIfStale(ctx context.Context) {
	if s.engine == nil || s.lazyAfter <= 0 {
		return
	}
	if _, err := s.engine.CheckIfStale(ctx, s.lazyAfter); err != nil {
		s.log.Warn().Err(err).Msg("Lazy order check failed")
	}
}
