package analytics

import "math"

// Signal is the discrete reading of a WSS value.
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"
)

// SignalThreshold is the |wss| above which a signal stops being neutral.
const SignalThreshold = 0.2

// SignalFor derives the signal label from a WSS value.
func SignalFor(wss float64) Signal {
	switch {
	case wss > SignalThreshold:
		return SignalBullish
	case wss < -SignalThreshold:
		return SignalBearish
	default:
		return SignalNeutral
	}
}

// Clamp bounds v to [lo, hi]. NaN maps to 0.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}

// ClampUnit bounds v to [-1, 1].
func ClampUnit(v float64) float64 {
	return Clamp(v, -1, 1)
}
