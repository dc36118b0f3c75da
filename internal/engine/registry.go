// Package engine drives timed group-activity sessions: the per-guild
// registry, the tick-loop controller, the idle sweep, and crash recovery.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pomobot/pomobot/internal/log"
	"github.com/pomobot/pomobot/internal/platform"
	"github.com/pomobot/pomobot/internal/session"
	"github.com/pomobot/pomobot/internal/store"
)

// IdleTimeouts configures the idle sweep.
type IdleTimeouts struct {
	// Active extends the deadline when the timer is running.
	Active time.Duration
	// Paused extends the deadline when the timer is stopped.
	Paused time.Duration
	// Probe bounds the liveness-prompt wait.
	Probe time.Duration
}

// Registry is the process-wide map of guild to live session. A per-guild
// mutex serializes activate/deactivate and guards every read and write of a
// live session's mutable fields; Get is a lock-free map lookup only. The
// guild-id space is bounded by platform size, so mutexes are created lazily
// and never removed.
type Registry struct {
	sessions sync.Map // guildID → *session.Session

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	store    store.SnapshotStore
	client   platform.Client
	timeouts IdleTimeouts

	epoch atomic.Int64
	clock func() time.Time
}

// NewRegistry creates a registry persisting through st and probing voice
// state through client.
func NewRegistry(st store.SnapshotStore, client platform.Client, timeouts IdleTimeouts) *Registry {
	return &Registry{
		locks:    make(map[string]*sync.Mutex),
		store:    st,
		client:   client,
		timeouts: timeouts,
		clock:    time.Now,
	}
}

// SetTimeouts swaps the idle timeouts. Used by config hot reload; live
// sessions pick the new values up on their next deadline extension.
func (r *Registry) SetTimeouts(t IdleTimeouts) {
	r.mu.Lock()
	r.timeouts = t
	r.mu.Unlock()
}

func (r *Registry) timeoutsNow() IdleTimeouts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeouts
}

// guildLock returns the mutex for a guild, creating it on first use.
func (r *Registry) guildLock(guildID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[guildID] = l
	}
	return l
}

// WithSession runs fn on the guild's registered session while holding the
// guild mutex. fn must not call back into registry methods that take the
// same mutex. Returns false when no session is registered.
func (r *Registry) WithSession(guildID string, fn func(*session.Session)) bool {
	l := r.guildLock(guildID)
	l.Lock()
	defer l.Unlock()
	v, ok := r.sessions.Load(guildID)
	if !ok {
		return false
	}
	fn(v.(*session.Session))
	return true
}

// Locked runs fn under the guild mutex, for callers that already hold a
// session pointer and need its fields consistent with the tick loop, which
// reads under the same mutex.
func (r *Registry) Locked(guildID string, fn func()) {
	l := r.guildLock(guildID)
	l.Lock()
	defer l.Unlock()
	fn()
}

// Activate registers the session and persists its first snapshot, holding
// the guild mutex across both so no reader can observe a registered session
// whose snapshot write hasn't at least been attempted. The session's epoch
// is bumped here; a tick loop from any earlier activation can never match it.
func (r *Registry) Activate(ctx context.Context, s *session.Session) {
	l := r.guildLock(s.GuildID)
	l.Lock()
	defer l.Unlock()

	s.Epoch = r.epoch.Add(1)
	r.sessions.Store(s.GuildID, s)
	r.persistLocked(ctx, s)

	log.Info(log.CatRegistry, "session activated",
		"guild", s.GuildID, "session", s.ID, "phase", s.Phase, "epoch", s.Epoch)
}

// Deactivate removes the session and deletes its snapshot. Deactivating a
// guild with no registered session is a warning no-op. When a different
// session instance is registered for the guild, both the registration and
// the snapshot are left alone: the guild-keyed snapshot belongs to the live
// replacement.
func (r *Registry) Deactivate(ctx context.Context, s *session.Session) {
	l := r.guildLock(s.GuildID)
	l.Lock()
	defer l.Unlock()

	current, ok := r.sessions.Load(s.GuildID)
	if !ok {
		log.Warn(log.CatRegistry, "deactivate of unregistered guild", "guild", s.GuildID)
		return
	}
	if current.(*session.Session).ID != s.ID {
		log.Warn(log.CatRegistry, "deactivate of superseded session",
			"guild", s.GuildID, "session", s.ID)
		return
	}

	r.sessions.Delete(s.GuildID)
	if err := r.store.Delete(ctx, s.GuildID); err != nil {
		log.ErrorErr(log.CatRegistry, "snapshot delete failed", err, "guild", s.GuildID)
	}

	log.Info(log.CatRegistry, "session deactivated", "guild", s.GuildID, "session", s.ID)
}

// Get returns the live session for a guild, lock-free.
func (r *Registry) Get(guildID string) (*session.Session, bool) {
	v, ok := r.sessions.Load(guildID)
	if !ok {
		return nil, false
	}
	return v.(*session.Session), true
}

// All returns every registered session.
func (r *Registry) All() []*session.Session {
	var out []*session.Session
	r.sessions.Range(func(_, v any) bool {
		out = append(out, v.(*session.Session))
		return true
	})
	return out
}

// Persist refreshes the guild's snapshot under its mutex. A session that is
// no longer the registered one is skipped, so a superseded loop cannot
// resurrect a deleted snapshot. Failures are logged, never propagated:
// persistence is best-effort relative to the in-memory session.
func (r *Registry) Persist(ctx context.Context, s *session.Session) {
	l := r.guildLock(s.GuildID)
	l.Lock()
	defer l.Unlock()
	cur, ok := r.sessions.Load(s.GuildID)
	if !ok || cur.(*session.Session) != s {
		return
	}
	r.persistLocked(ctx, s)
}

func (r *Registry) persistLocked(ctx context.Context, s *session.Session) {
	if err := r.store.Save(ctx, SnapshotOf(s)); err != nil {
		log.ErrorErr(log.CatRegistry, "snapshot save failed", err, "guild", s.GuildID)
	}
}

// SnapshotOf builds the persisted projection of a session.
func SnapshotOf(s *session.Session) store.Snapshot {
	return store.Snapshot{
		GuildID:        s.GuildID,
		SessionID:      s.ID,
		Phase:          s.Phase,
		Settings:       s.Settings,
		Stats:          s.Stats,
		TimerRemaining: s.Timer.Remaining,
		TimerRunning:   s.Timer.Running,
		TimerEnd:       s.Timer.End,
		IdleDeadline:   s.IdleDeadline,
		Epoch:          s.Epoch,
	}
}

// IdleSweep decides whether an apparently idle session should terminate.
// Zero non-bot voice members always terminates. Past the soft deadline a
// liveness prompt is posted; a timeout terminates, an acknowledgement
// extends the deadline by the active or paused timeout depending on whether
// the timer is running. Voice-state errors keep the session alive: an
// unreachable platform is no evidence of abandonment.
func (r *Registry) IdleSweep(ctx context.Context, s *session.Session) bool {
	members, err := r.client.VoiceMembers(ctx, s.GuildID)
	if err != nil {
		log.ErrorErr(log.CatRegistry, "voice member check failed", err, "guild", s.GuildID)
		return false
	}
	if len(members) == 0 {
		log.Info(log.CatRegistry, "voice channel empty, terminating", "guild", s.GuildID)
		return true
	}

	now := r.clock()
	var deadline time.Time
	r.Locked(s.GuildID, func() { deadline = s.IdleDeadline })
	if now.Before(deadline) {
		return false
	}

	// Recovered sessions have no channel to prompt in; give them another
	// grace period instead of killing silently.
	if s.Ctx == nil {
		r.Locked(s.GuildID, func() { s.RefreshIdleDeadline(r.extension(s), now) })
		return false
	}

	acked, err := r.client.PromptAndAwaitAck(ctx, s.GuildID, s.Ctx.ChannelID(), r.timeoutsNow().Probe)
	if err != nil {
		log.ErrorErr(log.CatRegistry, "liveness probe failed", err, "guild", s.GuildID)
		return false
	}
	if !acked {
		log.Info(log.CatRegistry, "liveness probe timed out, terminating", "guild", s.GuildID)
		return true
	}

	r.Locked(s.GuildID, func() { s.RefreshIdleDeadline(r.extension(s), r.clock()) })
	return false
}

func (r *Registry) extension(s *session.Session) time.Duration {
	t := r.timeoutsNow()
	if s.Timer.Running {
		return t.Active
	}
	return t.Paused
}
