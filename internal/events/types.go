// Package events provides the in-process event bus and typed event payloads.
package events

import (
	"time"
)

// EventType represents different event types
type EventType string

const (
	// Order lifecycle
	OrderPlaced    EventType = "ORDER_PLACED"
	OrderExecuted  EventType = "ORDER_EXECUTED"
	OrderCancelled EventType = "ORDER_CANCELLED"

	// Engine passes
	OrderCheckCompleted    EventType = "ORDER_CHECK_COMPLETED"
	ExecutionInconsistency EventType = "EXECUTION_INCONSISTENCY"
	MarketDataFailed       EventType = "MARKET_DATA_ERROR"

	// Maintenance
	BackupCompleted EventType = "BACKUP_COMPLETED"
	ErrorOccurred   EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every type a stream client may subscribe to
var AllEventTypes = []EventType{
	OrderPlaced,
	OrderExecuted,
	OrderCancelled,
	OrderCheckCompleted,
	ExecutionInconsistency,
	MarketDataFailed,
	BackupCompleted,
	ErrorOccurred,
}

// Event is a published system event.
// Data holds the JSON form of the typed payload; use GetTypedData to recover it.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Type      EventType              `json:"type"`
	Module    string                 `json:"module"`
}
