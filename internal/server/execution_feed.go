package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/portfoliobot/internal/events"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	feedWriteTimeout = 5 * time.Second
	feedBuffer       = 32
)

// ExecutionFeed pushes ORDER_EXECUTED events to websocket clients as JSON text frames
type ExecutionFeed struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewExecutionFeed creates a new execution feed
func NewExecutionFeed(eventBus *events.Bus, log zerolog.Logger) *ExecutionFeed {
	return &ExecutionFeed{
		eventBus: eventBus,
		log:      log.With().Str("component", "execution_feed").Logger(),
	}
}

// ServeHTTP upgrades the connection and streams executions until the client leaves
func (f *ExecutionFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		f.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Clients only listen; CloseRead handles control frames and cancels ctx on close
	ctx := conn.CloseRead(r.Context())

	frames := make(chan []byte, feedBuffer)
	id := f.eventBus.Subscribe(events.OrderExecuted, func(event *events.Event) {
		data, err := json.Marshal(event.Data)
		if err != nil {
			f.log.Error().Err(err).Msg("Failed to marshal execution")
			return
		}
		select {
		case frames <- data:
		default:
			f.log.Warn().Msg("Execution feed client too slow, dropping frame")
		}
	})
	defer f.eventBus.Unsubscribe(events.OrderExecuted, id)

	f.log.Debug().Msg("Execution feed client connected")

	for {
		select {
		case <-ctx.Done():
			f.log.Debug().Msg("Execution feed client disconnected")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case data := <-frames:
			if err := f.write(ctx, conn, data); err != nil {
				f.log.Debug().Err(err).Msg("Execution feed write failed")
				return
			}
		}
	}
}

func (f *ExecutionFeed) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
