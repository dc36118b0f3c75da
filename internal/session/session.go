package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CommandContext is the live interactive context a session was started from.
// Two platform adapters implement it (prefix commands and slash commands);
// sessions reconstructed from a snapshot carry nil until a new command
// reattaches one, and context-dependent side effects are skipped meanwhile.
type CommandContext interface {
	// Reply sends a message to the channel the session was started from.
	Reply(ctx context.Context, content string) error
	// ChannelID identifies the originating text channel.
	ChannelID() string
	// UserID identifies the invoking user.
	UserID() string
}

// Session is the per-guild mutable record driven by the engine. A session is
// owned by exactly one tick loop at a time; the registry is the single point
// of truth for which Session object is current for a guild. Once activated,
// mutable fields are read and written only under the guild's registry mutex.
type Session struct {
	// ID uniquely identifies this session instance.
	ID string
	// GuildID scopes the session; one session per guild.
	GuildID string

	Phase    Phase
	Settings Settings
	Timer    Timer
	Stats    Stats

	// IdleDeadline is the soft deadline after which the idle sweep probes
	// for liveness before killing the session.
	IdleDeadline time.Time

	// StatusMessageID is the opaque handle of the pinned status message,
	// owned by the messaging collaborator. Empty when no message exists.
	StatusMessageID string

	// Epoch is a generation counter bumped on every activation and carried
	// in the snapshot. A loop from a previous activation can never satisfy
	// the current epoch, which makes recovery races detectable.
	Epoch int64

	// Recovered is true when the session was reconstructed from a snapshot
	// without a live command context.
	Recovered bool

	// MutedConnection marks a countdown running in detached-audio mode;
	// the end-of-countdown unmute is skipped for these.
	MutedConnection bool

	// Ctx is the live command context, nil for recovered sessions.
	Ctx CommandContext
}

// New creates a session in the given phase with its timer armed to the
// phase's configured duration.
func New(guildID string, phase Phase, settings Settings) *Session {
	return &Session{
		ID:       uuid.New().String(),
		GuildID:  guildID,
		Phase:    phase,
		Settings: settings,
		Timer:    NewTimer(settings.PhaseDuration(phase)),
	}
}

// RefreshIdleDeadline pushes the soft-idle deadline out by timeout.
func (s *Session) RefreshIdleDeadline(timeout time.Duration, now time.Time) {
	s.IdleDeadline = now.Add(timeout)
}
