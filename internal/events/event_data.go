package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// OrderPlacedData contains data for OrderPlaced events
type OrderPlacedData struct {
	OrderID     string          `json:"order_id"`
	Owner       string          `json:"owner"`
	Ticker      string          `json:"ticker"`
	Side        string          `json:"side"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// EventType returns the event type for OrderPlacedData
func (d *OrderPlacedData) EventType() EventType {
	return OrderPlaced
}

// OrderExecutedData contains data for OrderExecuted events
type OrderExecutedData struct {
	ExecutedAt    time.Time       `json:"executed_at"`
	OrderID       string          `json:"order_id"`
	Owner         string          `json:"owner"`
	Ticker        string          `json:"ticker"`
	Side          string          `json:"side"`
	TargetPrice   decimal.Decimal `json:"target_price"`
	ExecutedPrice decimal.Decimal `json:"executed_price"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// EventType returns the event type for OrderExecutedData
func (d *OrderExecutedData) EventType() EventType {
	return OrderExecuted
}

// OrderCancelledData contains data for OrderCancelled events
type OrderCancelledData struct {
	OrderID string `json:"order_id"`
	Owner   string `json:"owner"`
	Ticker  string `json:"ticker"`
}

// EventType returns the event type for OrderCancelledData
func (d *OrderCancelledData) EventType() EventType {
	return OrderCancelled
}

// OrderCheckCompletedData summarises one engine pass
type OrderCheckCompletedData struct {
	Trigger        string   `json:"trigger"`
	TickersChecked []string `json:"tickers_checked"`
	TickersSkipped []string `json:"tickers_skipped"`
	Evaluated      int      `json:"evaluated"`
	Executed       int      `json:"executed"`
	DurationMs     int64    `json:"duration_ms"`
}

// EventType returns the event type for OrderCheckCompletedData
func (d *OrderCheckCompletedData) EventType() EventType {
	return OrderCheckCompleted
}

// ExecutionInconsistencyData reports a matched order that could not be applied.
// The order is still PENDING.
type ExecutionInconsistencyData struct {
	OrderID   string          `json:"order_id"`
	Owner     string          `json:"owner"`
	Ticker    string          `json:"ticker"`
	Reason    string          `json:"reason"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}

// EventType returns the event type for ExecutionInconsistencyData
func (d *ExecutionInconsistencyData) EventType() EventType {
	return ExecutionInconsistency
}

// MarketDataErrorData reports a ticker skipped for one pass
type MarketDataErrorData struct {
	Ticker         string `json:"ticker"`
	Error          string `json:"error"`
	OrdersAffected int    `json:"orders_affected"`
}

// EventType returns the event type for MarketDataErrorData
func (d *MarketDataErrorData) EventType() EventType {
	return MarketDataFailed
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Location  string `json:"location"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// GetTypedData converts the event's Data map back to its typed payload.
// Returns nil for unknown types or undecodable data.
func (e *Event) GetTypedData() EventData {
	if e.Data == nil {
		return nil
	}

	var data EventData
	switch e.Type {
	case OrderPlaced:
		data = &OrderPlacedData{}
	case OrderExecuted:
		data = &OrderExecutedData{}
	case OrderCancelled:
		data = &OrderCancelledData{}
	case OrderCheckCompleted:
		data = &OrderCheckCompletedData{}
	case ExecutionInconsistency:
		data = &ExecutionInconsistencyData{}
	case MarketDataFailed:
		data = &MarketDataErrorData{}
	case BackupCompleted:
		data = &BackupCompletedData{}
	case ErrorOccurred:
		data = &ErrorEventData{}
	default:
		return nil
	}

	if err := convertMapToStruct(e.Data, data); err != nil {
		return nil
	}
	return data
}
