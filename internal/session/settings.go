package session

import (
	"fmt"
	"time"
)

// Default interval settings, in line with the common pomodoro cadence.
const (
	DefaultFocus      = 25 * time.Minute
	DefaultShortBreak = 5 * time.Minute
	DefaultLongBreak  = 20 * time.Minute
	DefaultIntervals  = 4
)

// Settings is the immutable interval configuration for a session.
// A countdown session uses only Focus.
type Settings struct {
	Focus      time.Duration
	ShortBreak time.Duration
	LongBreak  time.Duration
	Intervals  int
}

// DefaultSettings returns the standard pomodoro configuration.
func DefaultSettings() Settings {
	return Settings{
		Focus:      DefaultFocus,
		ShortBreak: DefaultShortBreak,
		LongBreak:  DefaultLongBreak,
		Intervals:  DefaultIntervals,
	}
}

// Validate bounds-checks every configured field against (0, max].
// Zero-valued optional fields (a countdown only sets Focus) are allowed.
func (s Settings) Validate(max time.Duration) error {
	if s.Focus <= 0 || s.Focus > max {
		return fmt.Errorf("focus duration %s outside (0, %s]", s.Focus, max)
	}
	if s.ShortBreak < 0 || s.ShortBreak > max {
		return fmt.Errorf("short break %s outside [0, %s]", s.ShortBreak, max)
	}
	if s.LongBreak < 0 || s.LongBreak > max {
		return fmt.Errorf("long break %s outside [0, %s]", s.LongBreak, max)
	}
	if s.Intervals < 0 || time.Duration(s.Intervals)*time.Minute > max {
		return fmt.Errorf("interval count %d outside [0, %d]", s.Intervals, max/time.Minute)
	}
	return nil
}

// PhaseDuration returns the configured duration for a phase.
// Classwork breaks reuse the short-break duration; countdown and both focus
// phases use the focus duration.
func (s Settings) PhaseDuration(p Phase) time.Duration {
	switch p {
	case PhaseShortBreak, PhaseClassworkBreak:
		return s.ShortBreak
	case PhaseLongBreak:
		return s.LongBreak
	default:
		return s.Focus
	}
}

// Merge overlays non-zero fields of other onto s, returning the result.
// Used when editing a live session: unset fields keep their current values.
func (s Settings) Merge(other Settings) Settings {
	merged := s
	if other.Focus > 0 {
		merged.Focus = other.Focus
	}
	if other.ShortBreak > 0 {
		merged.ShortBreak = other.ShortBreak
	}
	if other.LongBreak > 0 {
		merged.LongBreak = other.LongBreak
	}
	if other.Intervals > 0 {
		merged.Intervals = other.Intervals
	}
	return merged
}
