package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pomobot/pomobot/internal/goals"
	"github.com/pomobot/pomobot/internal/log"
	"github.com/pomobot/pomobot/internal/platform"
	"github.com/pomobot/pomobot/internal/pubsub"
	"github.com/pomobot/pomobot/internal/session"
)

var tracer = otel.Tracer("pomobot/engine")

// Sentinel errors surfaced to the command layer.
var (
	// ErrSessionExists indicates the guild already has a live session.
	ErrSessionExists = errors.New("session already active for guild")
	// ErrNoActiveSession indicates the guild has no live session.
	ErrNoActiveSession = errors.New("no active session for guild")
)

// tickInterval is the tick loop cadence. One real second in production;
// tests shrink it through the sleep hook.
const tickInterval = time.Second

// Controller drives session tick loops. One controller serves all guilds;
// each live session gets its own goroutine running Resume. Cancellation is
// cooperative: every wakeup re-fetches the session from the registry and
// compares the timer's end instant, so superseding a session (skip, stop,
// restart) makes the old loop terminate itself on its next tick. The
// context is additionally honored for faster daemon shutdown but is never
// required for correctness.
//
// A session's mutable fields are shared between its tick goroutine and
// command goroutines. Both sides read and write them only under the guild's
// registry mutex; platform calls happen outside the mutex using values
// captured inside it.
type Controller struct {
	registry *Registry
	client   platform.Client
	goals    *goals.Tracker
	broker   *pubsub.Broker[Event]

	idle IdleTimeouts

	// clock and sleep are swapped out by tests.
	clock func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool

	// cmdLocks serialize duplicate command submission per guild and kind.
	// Distinct from the registry's lifecycle lock.
	cmdMu    sync.Mutex
	cmdLocks map[string]*sync.Mutex
}

// NewController wires the controller to its collaborators.
func NewController(registry *Registry, client platform.Client, tracker *goals.Tracker, idle IdleTimeouts) *Controller {
	return &Controller{
		registry: registry,
		client:   client,
		goals:    tracker,
		broker:   pubsub.NewBroker[Event](),
		idle:     idle,
		clock:    time.Now,
		sleep:    sleepCtx,
		cmdLocks: make(map[string]*sync.Mutex),
	}
}

// SetIdleTimeouts swaps the idle timeouts. Used by config hot reload.
func (c *Controller) SetIdleTimeouts(t IdleTimeouts) {
	c.cmdMu.Lock()
	c.idle = t
	c.cmdMu.Unlock()
}

// Events subscribes to session lifecycle events.
func (c *Controller) Events(ctx context.Context) EventStream {
	return c.broker.Subscribe(ctx)
}

// lockCommand serializes commands of one kind for one guild. Returns the
// unlock function.
func (c *Controller) lockCommand(guildID, kind string) func() {
	key := guildID + ":" + kind
	c.cmdMu.Lock()
	l, ok := c.cmdLocks[key]
	if !ok {
		l = &sync.Mutex{}
		c.cmdLocks[key] = l
	}
	c.cmdMu.Unlock()
	l.Lock()
	return l.Unlock
}

// StartSession creates, activates, and starts driving a session for the
// guild. The context must outlive the session; the tick loop runs on it.
// A voice-connect failure aborts the start and deactivates any partial
// registration.
func (c *Controller) StartSession(ctx context.Context, guildID string, phase session.Phase, settings session.Settings, cmdCtx session.CommandContext) (*session.Session, error) {
	unlock := c.lockCommand(guildID, "start")
	defer unlock()

	ctx, span := tracer.Start(ctx, "engine.start_session",
		trace.WithAttributes(
			attribute.String("guild.id", guildID),
			attribute.String("session.phase", phase.String()),
		))
	defer span.End()

	if _, ok := c.registry.Get(guildID); ok {
		return nil, ErrSessionExists
	}

	s := session.New(guildID, phase, settings)
	s.Ctx = cmdCtx

	if cmdCtx != nil {
		if err := c.client.ConnectVoice(ctx, guildID, cmdCtx.UserID()); err != nil {
			return nil, fmt.Errorf("connect voice: %w", err)
		}
	}

	c.registry.Activate(ctx, s)

	c.postStatus(ctx, s)
	if s.Phase == session.PhaseCountdown && s.Ctx != nil {
		var msgID string
		c.registry.Locked(guildID, func() { msgID = s.StatusMessageID })
		if msgID != "" {
			if err := c.client.Pin(ctx, guildID, s.Ctx.ChannelID(), msgID); err != nil {
				log.ErrorErr(log.CatSession, "pin failed", err, "guild", guildID)
			}
		}
	}
	c.playAlert(ctx, s, platform.AlertFocusStart)

	c.publish(EventSessionStarted, s, phase)

	go c.Resume(ctx, s)
	return s, nil
}

// SkipCurrentPhase ends the current phase immediately, applying the skip
// correction before the normal transition so cumulative totals are
// unchanged. The running tick loop goes stale on its next wakeup; a fresh
// loop is started for the new phase.
func (c *Controller) SkipCurrentPhase(ctx context.Context, guildID string) error {
	unlock := c.lockCommand(guildID, "skip")
	defer unlock()

	ctx, span := tracer.Start(ctx, "engine.skip_phase",
		trace.WithAttributes(attribute.String("guild.id", guildID)))
	defer span.End()

	now := c.clock()
	var (
		s   *session.Session
		res transitionResult
		err error
	)
	found := c.registry.WithSession(guildID, func(cur *session.Session) {
		s = cur
		cur.Stats = cur.Stats.Apply(session.SkipCorrection(cur.Phase, cur.Settings))
		res, err = applyTransition(cur, now)
	})
	if !found {
		return ErrNoActiveSession
	}
	if err != nil {
		return err
	}

	c.settle(ctx, s, res)
	go c.Resume(ctx, s)
	return nil
}

// StopSession terminates the guild's session: the tick loop goes stale, the
// status message is removed, voice is restored and disconnected, goals are
// purged, and the snapshot is deleted.
func (c *Controller) StopSession(ctx context.Context, guildID string) error {
	unlock := c.lockCommand(guildID, "stop")
	defer unlock()

	s, ok := c.registry.Get(guildID)
	if !ok {
		return ErrNoActiveSession
	}

	ctx, span := tracer.Start(ctx, "engine.stop_session",
		trace.WithAttributes(attribute.String("guild.id", guildID)))
	defer span.End()

	c.terminate(ctx, s, EventSessionEnded)
	return nil
}

// GetActiveSession returns the guild's live session, if any. The pointer is
// shared with the session's tick loop; callers treat it as read-only.
func (c *Controller) GetActiveSession(guildID string) (*session.Session, bool) {
	return c.registry.Get(guildID)
}

// Resume drives a session from its current phase until it ends or is
// superseded. Safe to call for freshly started, skipped, and recovered
// sessions alike. Runs on the calling goroutine.
func (c *Controller) Resume(ctx context.Context, s *session.Session) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatSession, "tick loop panic", "guild", s.GuildID, "panic", fmt.Sprintf("%v", r))
		}
	}()

	var countdown, focus bool
	c.registry.Locked(s.GuildID, func() {
		s.RefreshIdleDeadline(c.extension(s), c.clock())
		countdown = s.Phase == session.PhaseCountdown
		focus = s.Phase.IsFocus()
	})
	c.applyMute(ctx, s, focus)

	if countdown {
		c.runCountdown(ctx, s)
		return
	}

	for c.runPhase(ctx, s) {
	}
}

// runPhase runs one phase to completion. Returns true when the loop should
// continue into the next phase, false when the session ended or this loop
// was superseded.
func (c *Controller) runPhase(ctx context.Context, s *session.Session) bool {
	target, ok := c.tick(ctx, s)
	if !ok {
		return false
	}

	// Boundary: re-validate once more, then sweep and transition.
	if stale(c.registry, s.GuildID, target, s.Epoch) {
		return false
	}
	if c.registry.IdleSweep(ctx, s) {
		c.terminate(ctx, s, EventSessionIdleKilled)
		return false
	}

	// The sweep suspends on platform calls, so ownership is re-checked and
	// the transition applied in one critical section. A skip or stop that
	// landed meanwhile wins; this loop bows out.
	var (
		owned bool
		res   transitionResult
		err   error
	)
	c.registry.WithSession(s.GuildID, func(cur *session.Session) {
		if cur != s || !cur.Timer.Running || !cur.Timer.End.Equal(target) || cur.Epoch != s.Epoch {
			return
		}
		owned = true
		res, err = applyTransition(cur, c.clock())
	})
	if !owned {
		return false
	}
	if err != nil {
		log.ErrorErr(log.CatSession, "phase transition failed", err, "guild", s.GuildID)
		c.terminate(ctx, s, EventSessionEnded)
		return false
	}

	c.settle(ctx, s, res)
	if res.prev == session.PhaseWork || res.prev == session.PhaseClassworkWork {
		c.progressChecks(ctx, s)
	}
	return true
}

// runCountdown runs the countdown sub-loop: same tick shape, one phase,
// ends the session at zero instead of transitioning.
func (c *Controller) runCountdown(ctx context.Context, s *session.Session) {
	target, ok := c.tick(ctx, s)
	if !ok {
		return
	}

	var owned bool
	var msgID string
	c.registry.WithSession(s.GuildID, func(cur *session.Session) {
		if cur != s || !cur.Timer.Running || !cur.Timer.End.Equal(target) || cur.Epoch != s.Epoch {
			return
		}
		owned = true
		cur.Timer.Stop(c.clock())
		msgID = cur.StatusMessageID
		cur.StatusMessageID = ""
	})
	if !owned {
		return
	}

	if s.Ctx != nil {
		if msgID != "" {
			if err := c.client.Unpin(ctx, s.GuildID, s.Ctx.ChannelID(), msgID); err != nil {
				log.ErrorErr(log.CatSession, "unpin failed", err, "guild", s.GuildID)
			}
			if err := c.client.DeleteStatus(ctx, s.GuildID, s.Ctx.ChannelID(), msgID); err != nil {
				log.ErrorErr(log.CatSession, "status delete failed", err, "guild", s.GuildID)
			}
		}
		if err := s.Ctx.Reply(ctx, "Countdown finished!"); err != nil {
			log.ErrorErr(log.CatSession, "countdown reply failed", err, "guild", s.GuildID)
		}
	}
	if !s.MutedConnection {
		c.applyMute(ctx, s, false)
	}
	c.playAlert(ctx, s, platform.AlertForPhase(session.PhaseCountdown))
	if err := c.client.DisconnectVoice(ctx, s.GuildID); err != nil {
		log.ErrorErr(log.CatSession, "voice disconnect failed", err, "guild", s.GuildID)
	}
	c.goals.PurgeGuild(s.GuildID)
	c.registry.Deactivate(ctx, s)
	c.publish(EventSessionEnded, s, session.PhaseCountdown)
}

// tick starts the timer and sleeps in 1-second steps until the phase
// expires. Returns the staleness token and true on natural expiry, false
// when the loop was superseded or the context cancelled. Status updates
// along the way are display-only and never affect timing.
func (c *Controller) tick(ctx context.Context, s *session.Session) (time.Time, bool) {
	now := c.clock()
	var (
		owned  bool
		target time.Time
		epoch  int64
	)
	c.registry.WithSession(s.GuildID, func(cur *session.Session) {
		if cur != s {
			return
		}
		owned = true
		cur.Timer.Start(now)
		target = cur.Timer.End
		epoch = cur.Epoch
	})
	if !owned {
		return time.Time{}, false
	}
	c.registry.Persist(ctx, s)

	lastRem := -1
	for {
		if !c.sleep(ctx, tickInterval) {
			return target, false
		}

		now = c.clock()
		var (
			live bool
			rem  time.Duration
			edit statusEdit
		)
		c.registry.WithSession(s.GuildID, func(cur *session.Session) {
			if !cur.Timer.Running || !cur.Timer.End.Equal(target) || cur.Epoch != epoch {
				return
			}
			live = true
			rem = cur.Timer.RemainingAt(now)
			if rem <= 0 {
				return
			}
			remSec := int(rem.Round(time.Second) / time.Second)
			if remSec != lastRem && shouldUpdateStatus(cur, remSec) {
				lastRem = remSec
				edit = statusEditOf(cur, rem)
			}
		})
		if !live {
			return target, false
		}
		if rem <= 0 {
			return target, true
		}
		if edit.messageID != "" {
			c.editStatus(ctx, s.GuildID, edit)
		}
	}
}

// stale reports whether the loop identified by (target, epoch) no longer
// owns the guild's session. The read happens under the guild mutex so it
// cannot tear against a concurrent command.
func stale(r *Registry, guildID string, target time.Time, epoch int64) bool {
	live := false
	r.WithSession(guildID, func(cur *session.Session) {
		live = cur.Timer.Running && cur.Timer.End.Equal(target) && cur.Epoch == epoch
	})
	return !live
}

// shouldUpdateStatus is the status-update cadence policy. In the final
// configured minute of a focus phase, or under a minute of remaining time,
// updates land on 10/5-second marks; otherwise on 60/30-second marks.
func shouldUpdateStatus(s *session.Session, remSec int) bool {
	finalMinute := false
	if s.Phase == session.PhaseWork || s.Phase == session.PhaseClassworkWork {
		durMin := int(s.Settings.Focus / time.Minute)
		finalMinute = remSec/60 == durMin-1
	}
	if finalMinute || remSec < 60 {
		return remSec%10 == 0 || remSec%10 == 5
	}
	return remSec%60 == 0 || remSec%60 == 30
}

// transitionResult carries everything the boundary side effects need out of
// the critical section, so platform calls run without the guild mutex.
type transitionResult struct {
	prev        session.Phase
	next        session.Phase
	signal      session.Signal
	oldStatusID string
	content     string
	units       int
}

// applyTransition runs the transition table on s under the caller-held
// guild mutex: timer stop, stats, phase, timer rearm. No I/O. When the
// phase has no outgoing transition, s is left untouched.
func applyTransition(s *session.Session, now time.Time) (transitionResult, error) {
	next, delta, signal, err := session.Transition(s.Phase, s.Stats, s.Settings)
	if err != nil {
		return transitionResult{}, err
	}

	s.Timer.Stop(now)
	res := transitionResult{
		prev:        s.Phase,
		next:        next,
		signal:      signal,
		oldStatusID: s.StatusMessageID,
	}
	s.StatusMessageID = ""
	s.Stats = s.Stats.Apply(delta)
	s.Phase = next
	s.Timer.Arm(s.Settings.PhaseDuration(next), now)
	res.content = statusContent(s, s.Timer.Remaining)
	res.units = s.Stats.WorkUnitsCompleted
	return res, nil
}

// settle runs the boundary side effects of a completed transition outside
// the guild mutex: status replacement, voice signal, alert, snapshot
// refresh, event. Platform failures are logged, never propagated.
func (c *Controller) settle(ctx context.Context, s *session.Session, res transitionResult) {
	ctx, span := tracer.Start(ctx, "engine.phase_transition",
		trace.WithAttributes(
			attribute.String("guild.id", s.GuildID),
			attribute.String("phase.from", res.prev.String()),
			attribute.String("phase.to", res.next.String()),
		))
	defer span.End()

	if res.oldStatusID != "" && s.Ctx != nil {
		if err := c.client.DeleteStatus(ctx, s.GuildID, s.Ctx.ChannelID(), res.oldStatusID); err != nil {
			log.ErrorErr(log.CatSession, "status delete failed", err, "guild", s.GuildID)
		}
	}

	c.applyMute(ctx, s, res.signal == session.SignalMute)
	c.sendStatus(ctx, s, res.content)
	c.playAlert(ctx, s, platform.AlertForPhase(res.next))
	c.registry.Persist(ctx, s)

	c.publish(EventPhaseChanged, s, res.next)
	log.Info(log.CatSession, "phase changed",
		"guild", s.GuildID, "phase", res.next, "units", res.units)
}

// progressChecks runs goal check-ins after a completed focus phase, for
// users who hold a goal and are present in the voice channel.
func (c *Controller) progressChecks(ctx context.Context, s *session.Session) {
	c.goals.IncrementWorkCount(s.GuildID)
	if s.Ctx == nil {
		return
	}

	members, err := c.client.VoiceMembers(ctx, s.GuildID)
	if err != nil {
		log.ErrorErr(log.CatGoals, "voice member lookup failed", err, "guild", s.GuildID)
		return
	}

	workMin := int(s.Settings.Focus / time.Minute)
	for _, userID := range members {
		if !c.goals.ShouldCheckProgress(s.GuildID, userID, workMin) {
			continue
		}
		goal, ok := c.goals.Goal(s.GuildID, userID)
		if !ok {
			continue
		}
		msg := fmt.Sprintf("<@%s> How is it going with \"%s\"? React 🏆 😎 👌 or 😇.", userID, goal)
		if err := s.Ctx.Reply(ctx, msg); err != nil {
			log.ErrorErr(log.CatGoals, "progress check failed", err, "guild", s.GuildID, "user", userID)
			continue
		}
		c.goals.IncrementCheckCount(s.GuildID, userID)
	}
}

// terminate ends a session through any path: stop command, idle kill, or a
// failed transition. The timer stop under the guild mutex makes any other
// loop stale on its next wakeup.
func (c *Controller) terminate(ctx context.Context, s *session.Session, kind EventKind) {
	var msgID string
	var phase session.Phase
	c.registry.Locked(s.GuildID, func() {
		s.Timer.Stop(c.clock())
		msgID = s.StatusMessageID
		s.StatusMessageID = ""
		phase = s.Phase
	})

	if msgID != "" && s.Ctx != nil {
		if err := c.client.DeleteStatus(ctx, s.GuildID, s.Ctx.ChannelID(), msgID); err != nil {
			log.ErrorErr(log.CatSession, "status delete failed", err, "guild", s.GuildID)
		}
	}
	if !s.MutedConnection {
		c.applyMute(ctx, s, false)
	}
	if err := c.client.DisconnectVoice(ctx, s.GuildID); err != nil {
		log.ErrorErr(log.CatSession, "voice disconnect failed", err, "guild", s.GuildID)
	}
	c.goals.PurgeGuild(s.GuildID)
	c.registry.Deactivate(ctx, s)
	c.publish(kind, s, phase)
}

// applyMute sets the voice mute state. Permission errors are surfaced to
// the user once and never retried; all other errors are logged. Neither
// aborts the loop. Recovered sessions skip voice side effects entirely.
func (c *Controller) applyMute(ctx context.Context, s *session.Session, muted bool) {
	if s.Ctx == nil && s.Recovered {
		return
	}
	err := c.client.SetMuted(ctx, s.GuildID, muted)
	if err == nil {
		return
	}
	var perm *platform.PermissionError
	if errors.As(err, &perm) && s.Ctx != nil {
		if replyErr := s.Ctx.Reply(ctx, "I don't have permission to mute members. Grant \"Mute Members\" and try again."); replyErr != nil {
			log.ErrorErr(log.CatSession, "permission notice failed", replyErr, "guild", s.GuildID)
		}
		return
	}
	log.ErrorErr(log.CatSession, "mute change failed", err, "guild", s.GuildID, "muted", muted)
}

// postStatus sends a fresh status message for the current phase.
func (c *Controller) postStatus(ctx context.Context, s *session.Session) {
	if s.Ctx == nil {
		return
	}
	var content string
	c.registry.Locked(s.GuildID, func() {
		content = statusContent(s, s.Timer.RemainingAt(c.clock()))
	})
	c.sendStatus(ctx, s, content)
}

// sendStatus posts a status message and records its ID under the guild
// mutex, where the tick loop reads it.
func (c *Controller) sendStatus(ctx context.Context, s *session.Session, content string) {
	if s.Ctx == nil {
		return
	}
	id, err := c.client.SendStatus(ctx, s.GuildID, s.Ctx.ChannelID(), content)
	if err != nil {
		log.ErrorErr(log.CatSession, "status send failed", err, "guild", s.GuildID)
		return
	}
	c.registry.Locked(s.GuildID, func() { s.StatusMessageID = id })
}

// statusEdit captures what a display update needs so the platform call can
// happen outside the guild mutex.
type statusEdit struct {
	channelID string
	messageID string
	content   string
}

func statusEditOf(s *session.Session, rem time.Duration) statusEdit {
	if s.Ctx == nil || s.StatusMessageID == "" {
		return statusEdit{}
	}
	return statusEdit{
		channelID: s.Ctx.ChannelID(),
		messageID: s.StatusMessageID,
		content:   statusContent(s, rem),
	}
}

func (c *Controller) editStatus(ctx context.Context, guildID string, e statusEdit) {
	if err := c.client.EditStatus(ctx, guildID, e.channelID, e.messageID, e.content); err != nil {
		log.ErrorErr(log.CatSession, "status edit failed", err, "guild", guildID)
	}
}

func (c *Controller) playAlert(ctx context.Context, s *session.Session, sound string) {
	if s.Recovered && s.Ctx == nil {
		return
	}
	if err := c.client.PlayAlert(ctx, s.GuildID, sound); err != nil {
		log.ErrorErr(log.CatSession, "alert failed", err, "guild", s.GuildID, "sound", sound)
	}
}

func (c *Controller) publish(kind EventKind, s *session.Session, phase session.Phase) {
	c.broker.Publish(Event{
		Kind:      kind,
		GuildID:   s.GuildID,
		SessionID: s.ID,
		Phase:     phase,
	})
}

// extension returns the idle-deadline extension for s. The caller holds the
// guild mutex.
func (c *Controller) extension(s *session.Session) time.Duration {
	c.cmdMu.Lock()
	idle := c.idle
	c.cmdMu.Unlock()
	if s.Timer.Running {
		return idle.Active
	}
	return idle.Paused
}

// statusContent renders the status line for a phase.
func statusContent(s *session.Session, rem time.Duration) string {
	return fmt.Sprintf("**%s** — %s remaining", s.Phase.DisplayName(), session.FormatRemaining(rem, true))
}

// sleepCtx sleeps for d, returning false if the context was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
