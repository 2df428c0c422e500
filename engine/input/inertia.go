package input

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// VelocityWindow is how far back the tracker looks when estimating pointer velocity.
const VelocityWindow = 100 * time.Millisecond

type sample struct {
	at  time.Time
	pos mgl32.Vec2
}

// VelocityTracker estimates scroll velocity from recent drag samples.
// Not safe for concurrent use; the Handler guards it.
type VelocityTracker struct {
	samples []sample
	window  time.Duration
}

// NewVelocityTracker creates a tracker looking back over window.
func NewVelocityTracker(window time.Duration) *VelocityTracker {
	if window <= 0 {
		window = VelocityWindow
	}
	return &VelocityTracker{window: window}
}

// Add records the scroll position at time at and drops samples older than the window.
func (v *VelocityTracker) Add(at time.Time, pos mgl32.Vec2) {
	v.samples = append(v.samples, sample{at: at, pos: pos})
	cut := 0
	for cut < len(v.samples)-1 && at.Sub(v.samples[cut].at) > v.window {
		cut++
	}
	v.samples = v.samples[cut:]
}

// Velocity returns the average velocity across the window in units per second, zero with fewer
// than two samples.
func (v *VelocityTracker) Velocity() mgl32.Vec2 {
	if len(v.samples) < 2 {
		return mgl32.Vec2{}
	}
	first, last := v.samples[0], v.samples[len(v.samples)-1]
	dt := float32(last.at.Sub(first.at).Seconds())
	if dt <= 0 {
		return mgl32.Vec2{}
	}
	return last.pos.Sub(first.pos).Mul(1 / dt)
}

// Reset drops every sample.
func (v *VelocityTracker) Reset() {
	v.samples = v.samples[:0]
}

// Inertia decays a velocity toward zero. Resistance is the fraction of velocity kept per 60 Hz
// step; decay is applied as resistance^(dt*60) so the curve does not depend on the tick rate.
// Not safe for concurrent use; the Handler guards it.
type Inertia struct {
	Velocity    mgl32.Vec2
	Resistance  float32
	MinVelocity float32
	MaxVelocity float32
}

// Active reports whether the velocity is still above the stop threshold.
func (in *Inertia) Active() bool {
	return in.Velocity.Len() >= in.MinVelocity && in.Velocity.Len() > 0
}

// Impulse adds d to the velocity, clamped to MaxVelocity when set.
func (in *Inertia) Impulse(d mgl32.Vec2) {
	in.Velocity = in.clamp(in.Velocity.Add(d))
}

// Set replaces the velocity, clamped to MaxVelocity when set.
func (in *Inertia) Set(v mgl32.Vec2) {
	in.Velocity = in.clamp(v)
}

func (in *Inertia) clamp(v mgl32.Vec2) mgl32.Vec2 {
	if in.MaxVelocity > 0 && v.Len() > in.MaxVelocity {
		return v.Normalize().Mul(in.MaxVelocity)
	}
	return v
}

// Step advances the decay by dt seconds.
//
// Returns:
//   - mgl32.Vec2: the displacement to apply for this step
//   - bool: true when the velocity dropped below MinVelocity during this step and was zeroed
func (in *Inertia) Step(dt float32) (mgl32.Vec2, bool) {
	if !in.Active() || dt <= 0 {
		return mgl32.Vec2{}, false
	}
	d := in.Velocity.Mul(dt)
	decay := float32(math.Pow(float64(in.Resistance), float64(dt*60)))
	in.Velocity = in.Velocity.Mul(decay)
	if in.Velocity.Len() < in.MinVelocity {
		in.Velocity = mgl32.Vec2{}
		return d, true
	}
	return d, false
}
