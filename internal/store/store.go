// Package store defines the persistence boundary for session snapshots.
//
// A snapshot is a serializable projection of a live session, keyed by guild.
// The registry writes one on activation, the controller refreshes it at every
// phase boundary, and deactivation deletes it. Persistence is best-effort
// relative to the in-memory source of truth: callers log failures and carry
// on, so the engine keeps running through transient storage trouble.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/pomobot/pomobot/internal/session"
)

// SchemaVersion is the current snapshot schema version. Rows with an
// unknown version are treated as absent during loads so one bad record
// cannot block recovery of the rest.
const SchemaVersion = 1

// ErrNotFound indicates no snapshot exists for the requested guild.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is the persisted projection of a session, sufficient to
// reconstruct it after a process restart.
type Snapshot struct {
	GuildID   string
	SessionID string
	Phase     session.Phase
	Settings  session.Settings
	Stats     session.Stats

	// Timer fields. End is meaningful only while Running.
	TimerRemaining time.Duration
	TimerRunning   bool
	TimerEnd       time.Time

	IdleDeadline time.Time

	// Epoch is the activation generation counter; recovery bumps it so a
	// loop from a previous process can never pass a staleness check.
	Epoch int64

	SavedAt time.Time
	Version int
}

// SnapshotStore persists session snapshots keyed by guild.
// Implementations must tolerate corrupted records: a row that cannot be
// decoded is skipped, never surfaced as an error from LoadAll.
type SnapshotStore interface {
	// Save writes or replaces the snapshot for its guild.
	Save(ctx context.Context, snap Snapshot) error

	// Load fetches the snapshot for a guild. Returns ErrNotFound when the
	// guild has no snapshot or its record cannot be decoded.
	Load(ctx context.Context, guildID string) (Snapshot, error)

	// LoadAll returns every decodable snapshot in the store.
	LoadAll(ctx context.Context) ([]Snapshot, error)

	// Delete removes the snapshot for a guild. Deleting an absent guild is
	// not an error.
	Delete(ctx context.Context, guildID string) error

	// CleanupExpired deletes snapshots older than maxAge, returning how
	// many were removed.
	CleanupExpired(ctx context.Context, maxAge time.Duration) (int, error)

	// Count returns the number of persisted snapshots.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
