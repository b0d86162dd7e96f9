// Package services provides the order lifecycle engine shared by the scheduler
// and the interactive order endpoints.
package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/portfoliobot/internal/database"
	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/aristath/portfoliobot/internal/events"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrPassInProgress is returned when an evaluation pass is requested while one is running
var ErrPassInProgress = errors.New("order check already in progress")

// maxBufferedExecutions bounds the undrained notification buffer
const maxBufferedExecutions = 1000

// Pass triggers
const (
	TriggerScheduled = "scheduled"
	TriggerLazy      = "lazy"
	TriggerManual    = "manual"
)

// OrderStore is the part of the order repository the engine needs
type OrderStore interface {
	ListPending(ctx context.Context) ([]domain.Order, error)
	TransitionTx(ctx context.Context, tx *sql.Tx, id string, to domain.OrderStatus, executedPrice *decimal.Decimal, at time.Time) error
}

// LotStore applies execution side effects inside the engine's transaction
type LotStore interface {
	AddLotTx(ctx context.Context, tx *sql.Tx, owner, ticker string, shares, price decimal.Decimal, date time.Time) (*domain.Lot, error)
	ReduceSharesTx(ctx context.Context, tx *sql.Tx, owner, ticker string, quantity decimal.Decimal) error
}

// PassResult describes one evaluation pass
type PassResult struct {
	StartedAt      time.Time          `json:"started_at"`
	CompletedAt    time.Time          `json:"completed_at"`
	Trigger        string             `json:"trigger"`
	TickersChecked []string           `json:"tickers_checked"`
	TickersSkipped []string           `json:"tickers_skipped"`
	Executions     []domain.Execution `json:"executions"`
	Inconsistent   []string           `json:"inconsistent_orders"`
	Failed         []string           `json:"failed_orders"`
	Evaluated      int                `json:"evaluated"`
}

// EngineStatus is a snapshot of the engine for status endpoints
type EngineStatus struct {
	LastCheck         *time.Time  `json:"last_check,omitempty"`
	LastResult        *PassResult `json:"last_result,omitempty"`
	Running           bool        `json:"running"`
	PendingExecutions int         `json:"pending_executions"`
}

// OrderExecutionService evaluates PENDING orders against current prices and executes matches.
//
// Passes never overlap: the scheduled tick, the lazy check and a manual check all go
// through the same guard. Each execution (status transition plus lot mutation) commits
// in a single transaction, so an order is never EXECUTED without its portfolio effect.
type OrderExecutionService struct {
	db           *sql.DB
	orders       OrderStore
	lots         LotStore
	market       domain.MarketDataProvider
	eventManager *events.Manager
	log          zerolog.Logger
	now          func() time.Time

	passLock sync.Mutex
	running  atomic.Bool

	mu         sync.Mutex
	lastCheck  time.Time
	lastResult *PassResult
	executions []domain.Execution
}

// NewOrderExecutionService creates the engine. eventManager may be nil.
func NewOrderExecutionService(
	db *sql.DB,
	orders OrderStore,
	lots LotStore,
	market domain.MarketDataProvider,
	eventManager *events.Manager,
	log zerolog.Logger,
) *OrderExecutionService {
	return &OrderExecutionService{
		db:           db,
		orders:       orders,
		lots:         lots,
		market:       market,
		eventManager: eventManager,
		log:          log.With().Str("service", "order_execution").Logger(),
		now:          time.Now,
	}
}

// RunPass evaluates every PENDING order once.
// Returns ErrPassInProgress without doing anything if another pass is running.
func (s *OrderExecutionService) RunPass(ctx context.Context, trigger string) (*PassResult, error) {
	if !s.passLock.TryLock() {
		return nil, ErrPassInProgress
	}
	defer s.passLock.Unlock()

	s.running.Store(true)
	defer s.running.Store(false)

	// one timestamp for the whole pass
	now := s.now().UTC().Truncate(time.Second)
	result := &PassResult{
		StartedAt:      now,
		Trigger:        trigger,
		TickersChecked: []string{},
		TickersSkipped: []string{},
		Executions:     []domain.Execution{},
		Inconsistent:   []string{},
		Failed:         []string{},
	}

	pending, err := s.orders.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	prices := s.fetchPrices(ctx, pending, result)

	for i := range pending {
		if err := ctx.Err(); err != nil {
			s.log.Warn().Err(err).Msg("Order check interrupted")
			break
		}

		order := &pending[i]
		price, ok := prices[order.Ticker]
		if !ok {
			continue
		}

		result.Evaluated++
		if !order.Matches(price) {
			continue
		}

		s.executeOrder(ctx, order, price, now, result)
	}

	result.CompletedAt = s.now().UTC()
	s.record(result)

	s.log.Info().
		Str("trigger", trigger).
		Int("pending", len(pending)).
		Int("evaluated", result.Evaluated).
		Int("executed", len(result.Executions)).
		Int("tickers_skipped", len(result.TickersSkipped)).
		Dur("duration", result.CompletedAt.Sub(result.StartedAt)).
		Msg("Order check completed")

	if s.eventManager != nil {
		s.eventManager.EmitTyped("order_execution", &events.OrderCheckCompletedData{
			Trigger:        trigger,
			TickersChecked: result.TickersChecked,
			TickersSkipped: result.TickersSkipped,
			Evaluated:      result.Evaluated,
			Executed:       len(result.Executions),
			DurationMs:     result.CompletedAt.Sub(result.StartedAt).Milliseconds(),
		})
	}

	return result, ctx.Err()
}

// CheckIfStale runs a pass when the last completed one is older than maxAge.
// Reports whether a pass ran. A pass already in flight counts as fresh.
func (s *OrderExecutionService) CheckIfStale(ctx context.Context, maxAge time.Duration) (bool, error) {
	last := s.LastCheckTime()
	if !last.IsZero() && s.now().Sub(last) < maxAge {
		return false, nil
	}

	_, err := s.RunPass(ctx, TriggerLazy)
	if errors.Is(err, ErrPassInProgress) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LastCheckTime returns when the last pass completed, or the zero time
func (s *OrderExecutionService) LastCheckTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCheck
}

// IsRunning reports whether a pass is in flight
func (s *OrderExecutionService) IsRunning() bool {
	return s.running.Load()
}

// DrainExecutions returns the executions recorded since the previous drain and clears them
func (s *OrderExecutionService) DrainExecutions() []domain.Execution {
	s.mu.Lock()
	defer s.mu.Unlock()

	drained := s.executions
	s.executions = nil
	if drained == nil {
		drained = []domain.Execution{}
	}
	return drained
}

// Status returns a snapshot for status endpoints
func (s *OrderExecutionService) Status() EngineStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := EngineStatus{
		Running:           s.running.Load(),
		PendingExecutions: len(s.executions),
		LastResult:        s.lastResult,
	}
	if !s.lastCheck.IsZero() {
		last := s.lastCheck
		status.LastCheck = &last
	}
	return status
}

// fetchPrices gets one quote per distinct ticker, in first-seen order.
// Failed or non-positive quotes leave the ticker out of the map.
func (s *OrderExecutionService) fetchPrices(ctx context.Context, pending []domain.Order, result *PassResult) map[string]decimal.Decimal {
	affected := make(map[string]int)
	var tickers []string
	for _, order := range pending {
		if affected[order.Ticker] == 0 {
			tickers = append(tickers, order.Ticker)
		}
		affected[order.Ticker]++
	}

	prices := make(map[string]decimal.Decimal, len(tickers))
	for _, ticker := range tickers {
		if ctx.Err() != nil {
			break
		}

		price, err := s.market.GetCurrentPrice(ctx, ticker)
		if err == nil && !price.IsPositive() {
			err = &domain.MarketDataError{Ticker: ticker, Err: errors.New("non-positive price " + price.String())}
		}
		if err != nil {
			result.TickersSkipped = append(result.TickersSkipped, ticker)
			s.log.Warn().
				Err(err).
				Str("ticker", ticker).
				Int("orders_affected", affected[ticker]).
				Msg("Price fetch failed, orders stay pending")
			if s.eventManager != nil {
				s.eventManager.EmitTyped("order_execution", &events.MarketDataErrorData{
					Ticker:         ticker,
					Error:          err.Error(),
					OrdersAffected: affected[ticker],
				})
			}
			continue
		}

		result.TickersChecked = append(result.TickersChecked, ticker)
		prices[ticker] = price
	}

	return prices
}

// executeOrder applies one matched order and records the outcome in result
func (s *OrderExecutionService) executeOrder(ctx context.Context, order *domain.Order, price decimal.Decimal, now time.Time, result *PassResult) {
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.orders.TransitionTx(ctx, tx, order.ID, domain.OrderStatusExecuted, &price, now); err != nil {
			return err
		}
		if order.Side.IsSell() {
			return s.lots.ReduceSharesTx(ctx, tx, order.Owner, order.Ticker, order.Quantity)
		}
		_, err := s.lots.AddLotTx(ctx, tx, order.Owner, order.Ticker, order.Quantity, price, now)
		return err
	})

	var insufficient *domain.InsufficientSharesError
	switch {
	case err == nil:
		execution := domain.Execution{
			OrderID:       order.ID,
			Owner:         order.Owner,
			Ticker:        order.Ticker,
			Side:          order.Side,
			TargetPrice:   order.TargetPrice,
			ExecutedPrice: price,
			Quantity:      order.Quantity,
			ExecutedAt:    now,
		}
		result.Executions = append(result.Executions, execution)

		s.log.Info().
			Str("order_id", order.ID).
			Str("owner", order.Owner).
			Str("ticker", order.Ticker).
			Str("side", string(order.Side)).
			Str("target_price", order.TargetPrice.String()).
			Str("executed_price", price.String()).
			Str("quantity", order.Quantity.String()).
			Msg("Order executed")

		if s.eventManager != nil {
			s.eventManager.EmitTyped("order_execution", &events.OrderExecutedData{
				OrderID:       execution.OrderID,
				Owner:         execution.Owner,
				Ticker:        execution.Ticker,
				Side:          string(execution.Side),
				TargetPrice:   execution.TargetPrice,
				ExecutedPrice: execution.ExecutedPrice,
				Quantity:      execution.Quantity,
				ExecutedAt:    execution.ExecutedAt,
			})
		}

	case errors.As(err, &insufficient):
		result.Inconsistent = append(result.Inconsistent, order.ID)

		s.log.Error().
			Str("order_id", order.ID).
			Str("owner", order.Owner).
			Str("ticker", order.Ticker).
			Str("requested", insufficient.Requested.String()).
			Str("available", insufficient.Available.String()).
			Msg("SELL order matched but holdings are insufficient, order left pending")

		if s.eventManager != nil {
			s.eventManager.EmitTyped("order_execution", &events.ExecutionInconsistencyData{
				OrderID:   order.ID,
				Owner:     order.Owner,
				Ticker:    order.Ticker,
				Reason:    "insufficient shares at execution",
				Requested: insufficient.Requested,
				Available: insufficient.Available,
			})
		}

	case domain.IsInvalidTransition(err):
		// cancelled between listing and execution
		s.log.Info().
			Str("order_id", order.ID).
			Err(err).
			Msg("Order left PENDING before execution, skipped")

	default:
		result.Failed = append(result.Failed, order.ID)
		s.log.Error().
			Err(err).
			Str("order_id", order.ID).
			Str("ticker", order.Ticker).
			Msg("Order execution failed, order left pending")
	}
}

func (s *OrderExecutionService) record(result *PassResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastCheck = result.CompletedAt
	s.lastResult = result

	s.executions = append(s.executions, result.Executions...)
	if overflow := len(s.executions) - maxBufferedExecutions; overflow > 0 {
		s.log.Warn().Int("dropped", overflow).Msg("Execution buffer full, dropping oldest undrained executions")
		s.executions = append([]domain.Execution(nil), s.executions[overflow:]...)
	}
}
