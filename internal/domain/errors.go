package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound is matched by every NotFoundError
var ErrNotFound = errors.New("not found")

// ValidationError reports bad input at submission time. No state was changed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// NotFoundError reports an unknown order, account or lot
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) hold
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InvalidTransitionError reports an attempt to move an order out of a terminal state
type InvalidTransitionError struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s cannot transition from %s to %s", e.OrderID, e.From, e.To)
}

// MarketDataError is a transient price fetch failure. The affected orders stay PENDING.
type MarketDataError struct {
	Ticker string
	Err    error
}

func (e *MarketDataError) Error() string {
	return fmt.Sprintf("market data unavailable for %s: %v", e.Ticker, e.Err)
}

func (e *MarketDataError) Unwrap() error {
	return e.Err
}

// InsufficientSharesError reports a SELL larger than the owner's holdings
type InsufficientSharesError struct {
	Owner     string
	Ticker    string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares of %s for %s: requested %s, available %s",
		e.Ticker, e.Owner, e.Requested.String(), e.Available.String())
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsInvalidTransition reports whether err is (or wraps) an InvalidTransitionError
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// IsInsufficientShares reports whether err is (or wraps) an InsufficientSharesError
func IsInsufficientShares(err error) bool {
	var target *InsufficientSharesError
	return errors.As(err, &target)
}

// IsMarketDataError reports whether err is (or wraps) a MarketDataError
func IsMarketDataError(err error) bool {
	var target *MarketDataError
	return errors.As(err, &target)
}
