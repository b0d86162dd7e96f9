package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTradeSide(t *testing.T) {
	testCases := []struct {
		input    string
		expected TradeSide
		wantErr  bool
	}{
		{"BUY", TradeSideBuy, false},
		{"buy", TradeSideBuy, false},
		{" Sell ", TradeSideSell, false},
		{"HOLD", "", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			side, err := ParseTradeSide(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, side)
		})
	}
}

func TestOrderStatus_Transitions(t *testing.T) {
	testCases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusExecuted, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatusExecuted, OrderStatusCancelled, false},
		{OrderStatusExecuted, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusExecuted, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}

	assert.False(t, OrderStatusPending.IsTerminal())
	assert.True(t, OrderStatusExecuted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("pending")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPending, status)

	_, err = ParseOrderStatus("filled")
	assert.True(t, IsValidationError(err))
}

func TestOrder_Matches(t *testing.T) {
	d := decimal.RequireFromString

	testCases := []struct {
		name   string
		side   TradeSide
		target string
		price  string
		match  bool
	}{
		{"buy below target", TradeSideBuy, "100", "95", true},
		{"buy at target", TradeSideBuy, "100", "100", true},
		{"buy above target", TradeSideBuy, "100", "105", false},
		{"sell above target", TradeSideSell, "50", "51", true},
		{"sell at target", TradeSideSell, "50", "50", true},
		{"sell just below target", TradeSideSell, "50", "49.99", false},
		{"unknown side never matches", TradeSide("HOLD"), "50", "50", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			order := &Order{Side: tc.side, TargetPrice: d(tc.target)}
			assert.Equal(t, tc.match, order.Matches(d(tc.price)))
		})
	}
}

func TestOrder_Slippage(t *testing.T) {
	order := &Order{TargetPrice: decimal.NewFromInt(100)}
	assert.True(t, order.Slippage().IsZero())

	executed := decimal.NewFromInt(95)
	order.ExecutedPrice = &executed
	assert.True(t, order.Slippage().Equal(decimal.NewFromInt(-5)))
}

func TestLot_CostBasis(t *testing.T) {
	lot := &Lot{
		Shares:       decimal.RequireFromString("2.5"),
		EntryPrice:   decimal.NewFromInt(40),
		PurchaseDate: time.Now(),
	}
	assert.True(t, lot.CostBasis().Equal(decimal.NewFromInt(100)))
}

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeTicker("  aapl "))
	assert.Equal(t, "BRK.B", NormalizeTicker("brk.b"))
}
