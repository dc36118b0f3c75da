package platform

import "github.com/pomobot/pomobot/internal/session"

// Alert sound names understood by Client.PlayAlert.
const (
	AlertFocusStart = "sounds/pomo_start.mp3"
	AlertSessionEnd = "sounds/pomo_end.mp3"
	AlertLongBreak  = "sounds/long_break.mp3"
)

// AlertForPhase returns the sound to play when the given phase begins.
// A finished countdown ends the session, so it gets the end sound.
func AlertForPhase(p session.Phase) string {
	switch p {
	case session.PhaseCountdown:
		return AlertSessionEnd
	case session.PhaseLongBreak:
		return AlertLongBreak
	default:
		return AlertFocusStart
	}
}
