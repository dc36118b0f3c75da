// Package session provides the pure domain layer for timed group-activity
// sessions. It defines phases, settings, the countdown timer, cumulative
// statistics, and the phase transition table. The package has no knowledge of
// infrastructure concerns (persistence, chat platform, voice).
package session

import "fmt"

// Phase is one named segment of a session's timeline.
type Phase string

const (
	// PhaseCountdown is a plain countdown with no outgoing transition;
	// reaching zero ends the session.
	PhaseCountdown Phase = "countdown"
	// PhaseWork is a pomodoro focus interval.
	PhaseWork Phase = "work"
	// PhaseShortBreak is the break between focus intervals.
	PhaseShortBreak Phase = "short_break"
	// PhaseLongBreak is the break after a full set of focus intervals.
	PhaseLongBreak Phase = "long_break"
	// PhaseClassworkWork is a classwork focus interval.
	PhaseClassworkWork Phase = "classwork_work"
	// PhaseClassworkBreak is the break between classwork intervals.
	PhaseClassworkBreak Phase = "classwork_break"
)

// displayNames maps phases to the names shown in status messages.
var displayNames = map[Phase]string{
	PhaseCountdown:      "Countdown",
	PhaseWork:           "Focus",
	PhaseShortBreak:     "Short break",
	PhaseLongBreak:      "Long break",
	PhaseClassworkWork:  "Classwork",
	PhaseClassworkBreak: "Break",
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// DisplayName returns the human-readable name for status messages.
func (p Phase) DisplayName() string {
	if name, ok := displayNames[p]; ok {
		return name
	}
	return string(p)
}

// IsValid returns true if this is a recognized phase value.
func (p Phase) IsValid() bool {
	_, ok := displayNames[p]
	return ok
}

// IsFocus returns true for phases during which participants are muted.
// Countdown counts as focus: the voice channel stays muted until it ends.
func (p Phase) IsFocus() bool {
	return p == PhaseCountdown || p == PhaseWork || p == PhaseClassworkWork
}

// IsBreak returns true for unmuted phases.
func (p Phase) IsBreak() bool {
	return p == PhaseShortBreak || p == PhaseLongBreak || p == PhaseClassworkBreak
}

// ParsePhase decodes a phase from its snapshot representation.
// Unknown values are an error so corrupted snapshots can be dropped.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown phase %q", s)
	}
	return p, nil
}
