package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/portfoliobot/internal/events"
	"github.com/rs/zerolog"
)

// sseHeartbeat keeps idle connections open through proxies
const sseHeartbeat = 30 * time.Second

// EventsStreamHandler streams bus events as Server-Sent Events.
type EventsStreamHandler struct {
	eventBus  *events.Bus
	log       zerolog.Logger
	heartbeat time.Duration
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus:  eventBus,
		log:       log.With().Str("component", "events_stream").Logger(),
		heartbeat: sseHeartbeat,
	}
}

// ServeHTTP handles GET /api/events/stream?types=ORDER_EXECUTED,ORDER_PLACED
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	eventTypes, err := parseEventTypes(r.URL.Query().Get("types"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Buffered so a slow client never blocks the bus
	eventChan := make(chan *events.Event, 100)
	handler := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	subscriptions := make(map[events.EventType]events.SubscriptionID, len(eventTypes))
	for _, eventType := range eventTypes {
		subscriptions[eventType] = h.eventBus.Subscribe(eventType, handler)
	}
	defer func() {
		for eventType, id := range subscriptions {
			h.eventBus.Unsubscribe(eventType, id)
		}
	}()

	h.log.Debug().Int("types", len(eventTypes)).Msg("Client connected to event stream")

	h.write(w, map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event stream",
	})
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Debug().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			h.write(w, map[string]interface{}{
				"type":      string(event.Type),
				"module":    event.Module,
				"timestamp": event.Timestamp.Format(time.RFC3339),
				"data":      event.Data,
			})
			flusher.Flush()

		case <-heartbeat.C:
			h.write(w, map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			})
			flusher.Flush()
		}
	}
}

func (h *EventsStreamHandler) write(w http.ResponseWriter, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		data = []byte(`{"error":"failed to encode event"}`)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// parseEventTypes returns all known types for an empty filter
func parseEventTypes(filter string) ([]events.EventType, error) {
	if strings.TrimSpace(filter) == "" {
		return events.AllEventTypes, nil
	}

	known := make(map[events.EventType]bool, len(events.AllEventTypes))
	for _, t := range events.AllEventTypes {
		known[t] = true
	}

	var types []events.EventType
	seen := make(map[events.EventType]bool)
	for _, raw := range strings.Split(filter, ",") {
		eventType := events.EventType(strings.ToUpper(strings.TrimSpace(raw)))
		if eventType == "" || seen[eventType] {
			continue
		}
		if !known[eventType] {
			return nil, fmt.Errorf("unknown event type: %s", eventType)
		}
		seen[eventType] = true
		types = append(types, eventType)
	}
	return types, nil
}
