package session

import "errors"

// Signal is the voice-channel side effect a transition requests.
type Signal int

const (
	// SignalNone requests no change to voice state.
	SignalNone Signal = iota
	// SignalMute requests muting participants (entering a focus phase).
	SignalMute
	// SignalUnmute requests unmuting participants (entering a break phase).
	SignalUnmute
)

// ErrNoTransition is returned for phases with no outgoing transition.
// A countdown reaching zero ends the session instead.
var ErrNoTransition = errors.New("phase has no outgoing transition")

// Transition is the phase transition table. It is a pure total function of
// its inputs: given the current phase, the session stats, and the settings, it
// returns the next phase, the stat adjustment to apply, and the voice signal.
//
//	Work           -> ShortBreak, or LongBreak every settings.Intervals units
//	ClassworkWork  -> ClassworkBreak
//	ClassworkBreak -> ClassworkWork
//	ShortBreak     -> Work
//	LongBreak      -> Work
//	Countdown      -> (none)
func Transition(current Phase, stats Stats, settings Settings) (Phase, StatDelta, Signal, error) {
	switch current {
	case PhaseWork:
		delta := StatDelta{
			WorkUnitsCompleted:   1,
			WorkUnitsElapsed:     1,
			WorkSecondsCompleted: int(settings.Focus.Seconds()),
		}
		next := PhaseShortBreak
		if settings.Intervals > 0 && (stats.WorkUnitsCompleted+1)%settings.Intervals == 0 {
			next = PhaseLongBreak
		}
		return next, delta, SignalUnmute, nil

	case PhaseClassworkWork:
		delta := StatDelta{
			WorkUnitsCompleted:   1,
			WorkSecondsCompleted: int(settings.Focus.Seconds()),
		}
		return PhaseClassworkBreak, delta, SignalUnmute, nil

	case PhaseClassworkBreak:
		return PhaseClassworkWork, StatDelta{}, SignalMute, nil

	case PhaseShortBreak, PhaseLongBreak:
		return PhaseWork, StatDelta{}, SignalMute, nil

	default:
		return current, StatDelta{}, SignalNone, ErrNoTransition
	}
}

// SkipCorrection returns the stat adjustment applied before running the
// transition table for an explicit skip. Skipping a focus interval must not
// inflate cumulative totals, so the unit and seconds the transition is about
// to re-add are subtracted first. Only Work gets a correction.
func SkipCorrection(current Phase, settings Settings) StatDelta {
	if current != PhaseWork {
		return StatDelta{}
	}
	return StatDelta{
		WorkUnitsCompleted:   -1,
		WorkSecondsCompleted: -int(settings.Focus.Seconds()),
	}
}
