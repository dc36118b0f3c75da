package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pomobot/pomobot/internal/goals"
	"github.com/pomobot/pomobot/internal/platform/mock"
	"github.com/pomobot/pomobot/internal/session"
	"github.com/pomobot/pomobot/internal/store"
)

// TestRecover_DropsLeftGuilds persists two snapshots, one for a guild the
// bot no longer belongs to; only the valid guild comes back and the other
// snapshot is deleted.
func TestRecover_DropsLeftGuilds(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, guild := range []string{"g-stays", "g-gone"} {
		s := newWorkSession(guild)
		s.Epoch = 1
		require.NoError(t, st.Save(ctx, SnapshotOf(s)))
	}

	client := mock.NewClient()
	client.InGuildFunc = func(ctx context.Context, guildID string) (bool, error) {
		return guildID != "g-gone", nil
	}

	reg := NewRegistry(st, client, testTimeouts())
	ctrl := NewController(reg, client, goals.NewTracker(goals.DefaultExpiration, goals.DefaultCleanupInterval), testTimeouts())
	ctrl.sleep = func(ctx context.Context, d time.Duration) bool { return false }

	n, err := Recover(ctx, st, reg, client, ctrl, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	s, ok := reg.Get("g-stays")
	require.True(t, ok, "Valid guild must be re-activated")
	require.True(t, s.Recovered, "Recovered sessions carry no live command context")
	require.Nil(t, s.Ctx)

	_, ok = reg.Get("g-gone")
	require.False(t, ok)

	_, err = st.Load(ctx, "g-stays")
	require.NoError(t, err, "Valid guild's snapshot remains")
	_, err = st.Load(ctx, "g-gone")
	require.ErrorIs(t, err, store.ErrNotFound, "Left guild's snapshot is deleted")
}

// TestRecover_BumpsEpoch verifies a recovered session can never satisfy a
// staleness check from a previous process generation.
func TestRecover_BumpsEpoch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	s := newWorkSession("g1")
	s.Epoch = 7
	require.NoError(t, st.Save(ctx, SnapshotOf(s)))

	client := mock.NewClient()
	reg := NewRegistry(st, client, testTimeouts())
	ctrl := NewController(reg, client, goals.NewTracker(goals.DefaultExpiration, goals.DefaultCleanupInterval), testTimeouts())
	ctrl.sleep = func(ctx context.Context, d time.Duration) bool { return false }

	_, err := Recover(ctx, st, reg, client, ctrl, 24*time.Hour)
	require.NoError(t, err)

	got, ok := reg.Get("g1")
	require.True(t, ok)
	require.NotEqual(t, int64(7), got.Epoch, "Activation must assign a fresh epoch")

	snap, err := st.Load(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, got.Epoch, snap.Epoch, "Fresh epoch is persisted")
}

// TestRecover_RestoresSessionState checks the snapshot fields round-trip
// into a live session.
func TestRecover_RestoresSessionState(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	orig := session.New("g1", session.PhaseShortBreak, session.Settings{
		Focus:      50 * time.Minute,
		ShortBreak: 10 * time.Minute,
		LongBreak:  30 * time.Minute,
		Intervals:  2,
	})
	orig.Stats = session.Stats{WorkUnitsCompleted: 1, WorkUnitsElapsed: 1, WorkSecondsCompleted: 3000}
	orig.Timer.Remaining = 4 * time.Minute
	require.NoError(t, st.Save(ctx, SnapshotOf(orig)))

	client := mock.NewClient()
	reg := NewRegistry(st, client, testTimeouts())
	ctrl := NewController(reg, client, goals.NewTracker(goals.DefaultExpiration, goals.DefaultCleanupInterval), testTimeouts())
	ctrl.sleep = func(ctx context.Context, d time.Duration) bool { return false }

	_, err := Recover(ctx, st, reg, client, ctrl, 24*time.Hour)
	require.NoError(t, err)

	got, ok := reg.Get("g1")
	require.True(t, ok)
	require.Equal(t, orig.ID, got.ID)
	require.Equal(t, session.PhaseShortBreak, got.Phase)
	require.Equal(t, orig.Settings, got.Settings)
	require.Equal(t, orig.Stats, got.Stats)
	require.Equal(t, 4*time.Minute, got.Timer.Remaining)
}

// TestRecover_MembershipErrorKeepsSnapshot leaves the snapshot in place
// when membership cannot be verified.
func TestRecover_MembershipErrorKeepsSnapshot(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	s := newWorkSession("g1")
	s.Epoch = 1
	require.NoError(t, st.Save(ctx, SnapshotOf(s)))

	client := mock.NewClient()
	client.InGuildFunc = func(ctx context.Context, guildID string) (bool, error) {
		return false, context.DeadlineExceeded
	}

	reg := NewRegistry(st, client, testTimeouts())
	ctrl := NewController(reg, client, goals.NewTracker(goals.DefaultExpiration, goals.DefaultCleanupInterval), testTimeouts())

	n, err := Recover(ctx, st, reg, client, ctrl, 24*time.Hour)
	require.NoError(t, err)
	require.Zero(t, n, "Unverifiable guild is not re-activated")

	_, err = st.Load(ctx, "g1")
	require.NoError(t, err, "Snapshot survives for the next start")
}
