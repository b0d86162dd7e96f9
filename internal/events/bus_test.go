package events

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("expected event not received")
		return nil
	}
}

func TestBus_EmitReachesSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	ch := make(chan *Event, 4)

	bus.Subscribe(OrderPlaced, func(e *Event) { ch <- e })
	bus.Subscribe(OrderPlaced, func(e *Event) { ch <- e })
	bus.Subscribe(OrderCancelled, func(e *Event) { ch <- e })

	bus.Emit(OrderPlaced, "orders", map[string]interface{}{"order_id": "o-1"})

	for i := 0; i < 2; i++ {
		e := receive(t, ch)
		assert.Equal(t, OrderPlaced, e.Type)
		assert.Equal(t, "orders", e.Module)
		assert.Equal(t, "o-1", e.Data["order_id"])
	}

	select {
	case e := <-ch:
		t.Fatalf("unexpected event %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	ch := make(chan *Event, 1)

	id := bus.Subscribe(OrderExecuted, func(e *Event) { ch <- e })
	require.Equal(t, 1, bus.SubscriberCount(OrderExecuted))

	bus.Unsubscribe(OrderExecuted, id)
	bus.Unsubscribe(OrderExecuted, id)
	assert.Equal(t, 0, bus.SubscriberCount(OrderExecuted))

	bus.Emit(OrderExecuted, "engine", nil)
	select {
	case <-ch:
		t.Fatal("unsubscribed handler was called")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	ch := make(chan *Event, 1)

	bus.Subscribe(ErrorOccurred, func(e *Event) { panic("handler bug") })
	bus.Subscribe(ErrorOccurred, func(e *Event) { ch <- e })

	bus.Emit(ErrorOccurred, "test", nil)
	assert.Equal(t, ErrorOccurred, receive(t, ch).Type)
}

func TestManager_EmitTyped(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	manager := NewManager(bus, zerolog.Nop())
	ch := make(chan *Event, 1)
	bus.Subscribe(OrderCancelled, func(e *Event) { ch <- e })

	manager.EmitTyped("orders", &OrderCancelledData{OrderID: "o-9", Owner: "bob", Ticker: "MSFT"})

	e := receive(t, ch)
	data, ok := e.GetTypedData().(*OrderCancelledData)
	require.True(t, ok)
	assert.Equal(t, "o-9", data.OrderID)
	assert.Equal(t, "bob", data.Owner)
}

func TestManager_EmitError(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	manager := NewManager(bus, zerolog.Nop())
	ch := make(chan *Event, 1)
	bus.Subscribe(ErrorOccurred, func(e *Event) { ch <- e })

	manager.EmitError("backup", assert.AnError, map[string]interface{}{"db": "portfolio"})

	data, ok := receive(t, ch).GetTypedData().(*ErrorEventData)
	require.True(t, ok)
	assert.Equal(t, assert.AnError.Error(), data.Error)
	assert.Equal(t, "portfolio", data.Context["db"])
}
