package observer

import (
	"context"

	"github.com/Yuliya3k/spacegame-sub000/logging"
)

const (
	// EventClientConnected is emitted when a websocket observer subscribes.
	EventClientConnected logging.EventType = "observer.client_connected"
	// EventClientDisconnected is emitted when an observer leaves or is dropped.
	EventClientDisconnected logging.EventType = "observer.client_disconnected"
)

// ClientPayload identifies an observer connection.
type ClientPayload struct {
	Remote  string `json:"remote,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Clients int    `json:"clients"`
}

func ClientConnected(ctx context.Context, pub logging.Publisher, tick uint64, client logging.EntityRef, payload ClientPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClientConnected,
		Tick:     tick,
		Actor:    client,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryObserver,
		Payload:  payload,
		Extra:    extra,
	})
}

// ClientDisconnected publishes a debug event; write failures surface here too.
func ClientDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, client logging.EntityRef, payload ClientPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClientDisconnected,
		Tick:     tick,
		Actor:    client,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryObserver,
		Payload:  payload,
		Extra:    extra,
	})
}
