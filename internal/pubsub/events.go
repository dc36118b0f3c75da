// Package pubsub provides a small generic publish/subscribe broker.
// The engine publishes session lifecycle events on one; the logger
// republishes log entries on another so the daemon can stream them.
package pubsub

import (
	"context"
	"time"
)

// Event wraps a published payload with its publication time. Payloads carry
// their own discriminator (the engine's event kind, a log line); the broker
// does not classify them.
type Event[T any] struct {
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(payload T)
}
