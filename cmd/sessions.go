package cmd

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pomobot/pomobot/internal/config"
	"github.com/pomobot/pomobot/internal/infrastructure/sqlite"
	"github.com/pomobot/pomobot/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List persisted session snapshots",
	Long: `List persisted session snapshots from the store as JSON.

Each entry is the last snapshot written for a guild: the phase the session
was in, its interval settings, cumulative stats, and timer state. Snapshots
belong to sessions that were live when the daemon last wrote them; the
daemon recovers them at startup.

Examples:
  # List all snapshots
  pomobot sessions

  # Parse specific fields with jq
  pomobot sessions | jq '.[].guild_id'
  pomobot sessions | jq '.[] | select(.timer_running)'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath())
		if err != nil {
			return err
		}

		db, err := sqlite.NewDB(cfg.Store.Path)
		if err != nil {
			return err
		}
		repo := sqlite.NewSnapshotRepository(db)
		defer func() { _ = repo.Close() }()

		snapshots, err := repo.LoadAll(cmd.Context())
		if err != nil {
			return err
		}

		return writeSnapshots(os.Stdout, snapshots)
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

// snapshotDTO is the JSON shape of one persisted snapshot.
type snapshotDTO struct {
	GuildID              string `json:"guild_id"`
	SessionID            string `json:"session_id"`
	Phase                string `json:"phase"`
	FocusMinutes         int    `json:"focus_minutes"`
	ShortBreakMinutes    int    `json:"short_break_minutes"`
	LongBreakMinutes     int    `json:"long_break_minutes"`
	Intervals            int    `json:"intervals"`
	WorkUnitsCompleted   int    `json:"work_units_completed"`
	WorkUnitsElapsed     int    `json:"work_units_elapsed"`
	WorkSecondsCompleted int    `json:"work_seconds_completed"`
	TimerRemaining       string `json:"timer_remaining"`
	TimerRunning         bool   `json:"timer_running"`
	SavedAt              string `json:"saved_at"`
}

func toSnapshotDTO(snap store.Snapshot) snapshotDTO {
	return snapshotDTO{
		GuildID:              snap.GuildID,
		SessionID:            snap.SessionID,
		Phase:                snap.Phase.String(),
		FocusMinutes:         int(snap.Settings.Focus / time.Minute),
		ShortBreakMinutes:    int(snap.Settings.ShortBreak / time.Minute),
		LongBreakMinutes:     int(snap.Settings.LongBreak / time.Minute),
		Intervals:            snap.Settings.Intervals,
		WorkUnitsCompleted:   snap.Stats.WorkUnitsCompleted,
		WorkUnitsElapsed:     snap.Stats.WorkUnitsElapsed,
		WorkSecondsCompleted: snap.Stats.WorkSecondsCompleted,
		TimerRemaining:       snap.TimerRemaining.String(),
		TimerRunning:         snap.TimerRunning,
		SavedAt:              snap.SavedAt.UTC().Format(time.RFC3339),
	}
}

// writeSnapshots renders snapshots as an indented JSON array.
func writeSnapshots(w io.Writer, snapshots []store.Snapshot) error {
	dtos := make([]snapshotDTO, 0, len(snapshots))
	for _, snap := range snapshots {
		dtos = append(dtos, toSnapshotDTO(snap))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dtos)
}
