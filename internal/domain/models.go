// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide represents the side of a conditional order
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// IsValid checks if the trade side is valid
func (s TradeSide) IsValid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// IsBuy returns true if this is a buy order
func (s TradeSide) IsBuy() bool {
	return s == TradeSideBuy
}

// IsSell returns true if this is a sell order
func (s TradeSide) IsSell() bool {
	return s == TradeSideSell
}

// ParseTradeSide converts a string to TradeSide (case-insensitive)
func ParseTradeSide(s string) (TradeSide, error) {
	side := TradeSide(strings.ToUpper(strings.TrimSpace(s)))
	if !side.IsValid() {
		return "", &ValidationError{Field: "side", Message: fmt.Sprintf("must be BUY or SELL, got %q", s)}
	}
	return side, nil
}

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusExecuted  OrderStatus = "EXECUTED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a known state
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusExecuted, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusExecuted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether from -> to is allowed.
// Only PENDING -> EXECUTED and PENDING -> CANCELLED are.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	return s == OrderStatusPending && to.IsTerminal()
}

// ParseOrderStatus converts a string to OrderStatus (case-insensitive)
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", s)}
	}
	return status, nil
}

// Order is a conditional buy/sell order evaluated against live prices.
// Everything except Status, ExecutedPrice and ExecutedAt is fixed at creation.
type Order struct {
	CreatedAt     time.Time        `json:"created_at"`
	ExecutedAt    *time.Time       `json:"executed_at,omitempty"`
	ExecutedPrice *decimal.Decimal `json:"executed_price,omitempty"`
	ID            string           `json:"id"`
	Owner         string           `json:"owner"`
	Ticker        string           `json:"ticker"`
	Side          TradeSide        `json:"side"`
	Status        OrderStatus      `json:"status"`
	TargetPrice   decimal.Decimal  `json:"target_price"`
	Quantity      decimal.Decimal  `json:"quantity"`
}

// IsTerminal reports whether the order reached EXECUTED or CANCELLED
func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// Matches applies the execution rule to a current market price.
// BUY matches at or below target, SELL at or above; equality always matches.
func (o *Order) Matches(price decimal.Decimal) bool {
	switch o.Side {
	case TradeSideBuy:
		return price.LessThanOrEqual(o.TargetPrice)
	case TradeSideSell:
		return price.GreaterThanOrEqual(o.TargetPrice)
	}
	return false
}

// Slippage returns executed minus target price, or zero when not executed
func (o *Order) Slippage() decimal.Decimal {
	if o.ExecutedPrice == nil {
		return decimal.Zero
	}
	return o.ExecutedPrice.Sub(o.TargetPrice)
}

// Lot is a discrete purchase record composing a holding
type Lot struct {
	PurchaseDate time.Time       `json:"purchase_date"`
	ID           string          `json:"id"`
	Owner        string          `json:"owner"`
	Ticker       string          `json:"ticker"`
	Shares       decimal.Decimal `json:"shares"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
}

// CostBasis returns shares * entry price
func (l *Lot) CostBasis() decimal.Decimal {
	return l.Shares.Mul(l.EntryPrice)
}

// Holding aggregates all lots of one ticker for one owner
type Holding struct {
	Ticker            string          `json:"ticker"`
	Shares            decimal.Decimal `json:"shares"`
	CostBasis         decimal.Decimal `json:"cost_basis"`
	AverageEntryPrice decimal.Decimal `json:"average_entry_price"`
	LotCount          int             `json:"lot_count"`
}

// Execution is the notification record of an order that moved to EXECUTED
type Execution struct {
	ExecutedAt    time.Time       `json:"executed_at"`
	OrderID       string          `json:"order_id"`
	Owner         string          `json:"owner"`
	Ticker        string          `json:"ticker"`
	Side          TradeSide       `json:"side"`
	TargetPrice   decimal.Decimal `json:"target_price"`
	ExecutedPrice decimal.Decimal `json:"executed_price"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// PricePoint is one daily close
type PricePoint struct {
	Date  time.Time       `json:"date" msgpack:"date"`
	Close decimal.Decimal `json:"close" msgpack:"close"`
}

// NormalizeTicker uppercases and trims a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
