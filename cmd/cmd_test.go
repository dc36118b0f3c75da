package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pomobot/pomobot/internal/config"
	"github.com/pomobot/pomobot/internal/session"
	"github.com/pomobot/pomobot/internal/store"
)

func TestWriteSnapshots_JSONShape(t *testing.T) {
	snaps := []store.Snapshot{
		{
			GuildID:   "guild-1",
			SessionID: "sess-1",
			Phase:     session.PhaseWork,
			Settings: session.Settings{
				Focus:      25 * time.Minute,
				ShortBreak: 5 * time.Minute,
				LongBreak:  20 * time.Minute,
				Intervals:  4,
			},
			Stats: session.Stats{
				WorkUnitsCompleted:   2,
				WorkUnitsElapsed:     3,
				WorkSecondsCompleted: 3000,
			},
			TimerRemaining: 90 * time.Second,
			TimerRunning:   true,
			SavedAt:        time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeSnapshots(&buf, snaps))

	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)

	require.Equal(t, "guild-1", out[0]["guild_id"])
	require.Equal(t, "work", out[0]["phase"])
	require.EqualValues(t, 25, out[0]["focus_minutes"])
	require.EqualValues(t, 2, out[0]["work_units_completed"])
	require.Equal(t, "1m30s", out[0]["timer_remaining"])
	require.Equal(t, true, out[0]["timer_running"])
	require.Equal(t, "2026-01-15T09:00:00Z", out[0]["saved_at"])
}

func TestWriteSnapshots_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSnapshots(&buf, nil))
	require.Equal(t, "[]\n", buf.String(), "No snapshots renders an empty array, not null")
}

func TestMergeIdleFlags_OnlyChangedFlagsApply(t *testing.T) {
	current := config.IdleConfig{
		ActiveTimeoutMinutes: 60,
		PausedTimeoutMinutes: 30,
		ProbeTimeoutSeconds:  60,
	}

	require.NoError(t, configIdleCmd.Flags().Set("active-minutes", "90"))
	t.Cleanup(func() {
		configIdleCmd.Flags().Lookup("active-minutes").Changed = false
		idleActiveMinutes = 0
	})

	merged := mergeIdleFlags(current, configIdleCmd)
	require.Equal(t, 90, merged.ActiveTimeoutMinutes)
	require.Equal(t, 30, merged.PausedTimeoutMinutes, "Unset flags keep current values")
	require.Equal(t, 60, merged.ProbeTimeoutSeconds)
}
