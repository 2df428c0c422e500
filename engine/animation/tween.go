package animation

import "sync"

// tweenState tracks a Tween's lifecycle.
type tweenState int

const (
	tweenPending tweenState = iota
	tweenRunning
	tweenDone
	tweenCancelled
)

// Tween interpolates a fixed-size vector of scalars from a start value to a target value
// over a duration, after an optional delay. Every Advance pushes the interpolated values to
// the apply callback, so consumers (uniform writers) see every intermediate step.
//
// A Tween is safe to cancel from any goroutine; Advance is expected to be driven by a single
// ticking goroutine.
type Tween struct {
	mu *sync.Mutex

	from     []float32
	to       []float32
	current  []float32
	duration float32
	delay    float32
	elapsed  float32
	easing   Easing
	apply    func(values []float32)

	onComplete func()
	state      tweenState
}

// NewTween creates a Tween.
//
// Parameters:
//   - from: the start values
//   - to: the target values (must match len(from); extra entries are ignored)
//   - duration: interpolation length in seconds (<= 0 jumps straight to the target once the delay has passed)
//   - delay: seconds to wait before the first value is pushed
//   - easing: easing function (nil = Linear)
//   - apply: receives the interpolated values every step (may be nil)
//
// Returns:
//   - *Tween: the new tween, pending until advanced
func NewTween(from, to []float32, duration, delay float32, easing Easing, apply func(values []float32)) *Tween {
	n := min(len(from), len(to))
	if easing == nil {
		easing = Linear
	}
	t := &Tween{
		mu:       &sync.Mutex{},
		from:     append([]float32(nil), from[:n]...),
		to:       append([]float32(nil), to[:n]...),
		current:  make([]float32, n),
		duration: max(duration, 0),
		delay:    max(delay, 0),
		easing:   easing,
		apply:    apply,
	}
	copy(t.current, t.from)
	return t
}

// OnComplete registers a callback fired once when the tween reaches its target.
// It is not fired when the tween is cancelled.
//
// Parameters:
//   - fn: the completion callback
//
// Returns:
//   - *Tween: the receiver, for chaining
func (t *Tween) OnComplete(fn func()) *Tween {
	t.mu.Lock()
	t.onComplete = fn
	t.mu.Unlock()
	return t
}

// Advance moves the tween forward by dt seconds and pushes the new values.
//
// Parameters:
//   - dt: elapsed seconds since the previous call
//
// Returns:
//   - bool: true once the tween is finished or cancelled
func (t *Tween) Advance(dt float32) bool {
	t.mu.Lock()
	if t.state == tweenDone || t.state == tweenCancelled {
		t.mu.Unlock()
		return true
	}
	t.elapsed += max(dt, 0)
	if t.elapsed < t.delay {
		t.mu.Unlock()
		return false
	}
	t.state = tweenRunning

	progress := float32(1)
	if t.duration > 0 {
		progress = min((t.elapsed-t.delay)/t.duration, 1)
	}
	eased := t.easing(progress)
	for i := range t.current {
		t.current[i] = t.from[i] + (t.to[i]-t.from[i])*eased
	}
	finished := progress >= 1
	if finished {
		copy(t.current, t.to)
		t.state = tweenDone
	}
	values := append([]float32(nil), t.current...)
	apply, complete := t.apply, t.onComplete
	t.mu.Unlock()

	if apply != nil {
		apply(values)
	}
	if finished && complete != nil {
		complete()
	}
	return finished
}

// Cancel stops the tween where it is. No further values are pushed.
func (t *Tween) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != tweenDone {
		t.state = tweenCancelled
	}
}

// Done reports whether the tween reached its target.
func (t *Tween) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == tweenDone
}

// Cancelled reports whether the tween was cancelled before finishing.
func (t *Tween) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == tweenCancelled
}

// Values returns a copy of the most recently computed values.
func (t *Tween) Values() []float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]float32(nil), t.current...)
}
