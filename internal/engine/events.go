package engine

import (
	"github.com/pomobot/pomobot/internal/pubsub"
	"github.com/pomobot/pomobot/internal/session"
)

// EventKind identifies a session lifecycle event.
type EventKind string

const (
	EventSessionStarted    EventKind = "session_started"
	EventPhaseChanged      EventKind = "phase_changed"
	EventSessionEnded      EventKind = "session_ended"
	EventSessionRecovered  EventKind = "session_recovered"
	EventSessionIdleKilled EventKind = "session_idle_killed"
)

// Event is published on the engine broker at every session lifecycle change.
type Event struct {
	Kind      EventKind
	GuildID   string
	SessionID string
	Phase     session.Phase
}

// EventStream is a subscription channel of engine events.
type EventStream = <-chan pubsub.Event[Event]
