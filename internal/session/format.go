package session

import (
	"fmt"
	"math"
	"time"
)

// FormatRemaining renders a remaining duration as a coarse human string.
// Below a minute it shows seconds, below an hour minutes (with seconds only in
// hi-res mode), and from an hour up hours (with minutes in hi-res mode).
// Durations are rounded to the nearest whole second.
func FormatRemaining(d time.Duration, hiRes bool) string {
	secs := int(math.Round(d.Seconds()))
	if secs < 0 {
		secs = 0
	}

	switch {
	case secs >= 3600:
		out := fmt.Sprintf("%dh", secs/3600)
		if hiRes {
			out += fmt.Sprintf("%dm", secs%3600/60)
		}
		return out
	case secs >= 60:
		out := fmt.Sprintf("%dm", secs/60)
		if hiRes && secs%60 > 0 {
			out += fmt.Sprintf("%ds", secs%60)
		}
		return out
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
