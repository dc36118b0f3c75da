package sqlite

import (
	"time"

	"github.com/pomobot/pomobot/internal/session"
	"github.com/pomobot/pomobot/internal/store"
)

// snapshotModel represents the database row for the snapshots table.
// Time values are Unix timestamps; nullable instants use pointers.
type snapshotModel struct {
	GuildID   string
	SessionID string
	Phase     string

	FocusSeconds      int64
	ShortBreakSeconds int64
	LongBreakSeconds  int64
	Intervals         int

	WorkUnitsCompleted   int
	WorkUnitsElapsed     int
	WorkSecondsCompleted int

	TimerRemainingMS int64
	TimerRunning     bool
	TimerEnd         *int64 // Unix timestamp, nullable

	IdleDeadline *int64 // Unix timestamp, nullable
	Epoch        int64
	SavedAt      int64
	Version      int
}

// toModel converts a snapshot to its database row representation.
func toModel(s store.Snapshot) snapshotModel {
	m := snapshotModel{
		GuildID:              s.GuildID,
		SessionID:            s.SessionID,
		Phase:                s.Phase.String(),
		FocusSeconds:         int64(s.Settings.Focus.Seconds()),
		ShortBreakSeconds:    int64(s.Settings.ShortBreak.Seconds()),
		LongBreakSeconds:     int64(s.Settings.LongBreak.Seconds()),
		Intervals:            s.Settings.Intervals,
		WorkUnitsCompleted:   s.Stats.WorkUnitsCompleted,
		WorkUnitsElapsed:     s.Stats.WorkUnitsElapsed,
		WorkSecondsCompleted: s.Stats.WorkSecondsCompleted,
		TimerRemainingMS:     s.TimerRemaining.Milliseconds(),
		TimerRunning:         s.TimerRunning,
		Epoch:                s.Epoch,
		SavedAt:              s.SavedAt.Unix(),
		Version:              s.Version,
	}
	if !s.TimerEnd.IsZero() {
		end := s.TimerEnd.Unix()
		m.TimerEnd = &end
	}
	if !s.IdleDeadline.IsZero() {
		deadline := s.IdleDeadline.Unix()
		m.IdleDeadline = &deadline
	}
	return m
}

// toSnapshot converts a database row back to a snapshot.
// The phase is validated; callers treat an error as a corrupted record.
func (m snapshotModel) toSnapshot() (store.Snapshot, error) {
	phase, err := session.ParsePhase(m.Phase)
	if err != nil {
		return store.Snapshot{}, err
	}

	s := store.Snapshot{
		GuildID:   m.GuildID,
		SessionID: m.SessionID,
		Phase:     phase,
		Settings: session.Settings{
			Focus:      time.Duration(m.FocusSeconds) * time.Second,
			ShortBreak: time.Duration(m.ShortBreakSeconds) * time.Second,
			LongBreak:  time.Duration(m.LongBreakSeconds) * time.Second,
			Intervals:  m.Intervals,
		},
		Stats: session.Stats{
			WorkUnitsCompleted:   m.WorkUnitsCompleted,
			WorkUnitsElapsed:     m.WorkUnitsElapsed,
			WorkSecondsCompleted: m.WorkSecondsCompleted,
		},
		TimerRemaining: time.Duration(m.TimerRemainingMS) * time.Millisecond,
		TimerRunning:   m.TimerRunning,
		Epoch:          m.Epoch,
		SavedAt:        time.Unix(m.SavedAt, 0).UTC(),
		Version:        m.Version,
	}
	if m.TimerEnd != nil {
		s.TimerEnd = time.Unix(*m.TimerEnd, 0).UTC()
	}
	if m.IdleDeadline != nil {
		s.IdleDeadline = time.Unix(*m.IdleDeadline, 0).UTC()
	}
	return s, nil
}
