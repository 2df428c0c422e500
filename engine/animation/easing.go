package animation

import (
	"math"
	"strings"
)

// Easing maps normalized animation progress t in [0, 1] to an eased progress value.
// Implementations must return 0 for t=0 and 1 for t=1.
type Easing func(t float32) float32

// Linear applies no easing.
func Linear(t float32) float32 { return t }

// EaseInQuad accelerates from zero velocity.
func EaseInQuad(t float32) float32 { return t * t }

// EaseOutQuad decelerates to zero velocity.
func EaseOutQuad(t float32) float32 { return t * (2 - t) }

// EaseInOutQuad accelerates until halfway, then decelerates.
func EaseInOutQuad(t float32) float32 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

// EaseOutCubic decelerates to zero velocity with a cubic curve.
func EaseOutCubic(t float32) float32 {
	u := t - 1
	return u*u*u + 1
}

// EaseInOutCubic accelerates until halfway, then decelerates, with a cubic curve.
func EaseInOutCubic(t float32) float32 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := 2*t - 2
	return 0.5*u*u*u + 1
}

// EaseOutExpo decelerates sharply towards the end value.
func EaseOutExpo(t float32) float32 {
	if t >= 1 {
		return 1
	}
	return 1 - float32(math.Pow(2, float64(-10*t)))
}

var easingNames = map[string]Easing{
	"linear":       Linear,
	"quad-in":      EaseInQuad,
	"quad-out":     EaseOutQuad,
	"quad-in-out":  EaseInOutQuad,
	"cubic-out":    EaseOutCubic,
	"cubic-in-out": EaseInOutCubic,
	"expo-out":     EaseOutExpo,
}

// EasingByName looks up an easing function by its configuration name (e.g. "cubic-out").
// Lookup is case-insensitive.
//
// Parameters:
//   - name: the easing name
//
// Returns:
//   - Easing: the easing function, Linear when not found
//   - bool: true if the name was recognised
func EasingByName(name string) (Easing, bool) {
	e, ok := easingNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Linear, false
	}
	return e, true
}
