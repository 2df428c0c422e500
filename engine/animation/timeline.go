package animation

import (
	"sort"
	"sync"
)

// Timeline drives a set of keyed tweens from a single tick source.
// Starting a tween under a key that already has one in flight cancels the previous tween,
// so the most recent request for a key always wins and tweens never stack.
type Timeline struct {
	mu     *sync.Mutex
	tweens map[string]*Tween
}

// NewTimeline creates an empty Timeline.
//
// Returns:
//   - *Timeline: the new timeline
func NewTimeline() *Timeline {
	return &Timeline{
		mu:     &sync.Mutex{},
		tweens: make(map[string]*Tween),
	}
}

// Play registers tw under key, cancelling any tween already running under the same key.
//
// Parameters:
//   - key: identifies the animated property (e.g. a tile's background opacity)
//   - tw: the tween to run
//
// Returns:
//   - *Tween: tw, for chaining
func (tl *Timeline) Play(key string, tw *Tween) *Tween {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if prev, ok := tl.tweens[key]; ok && prev != tw {
		prev.Cancel()
	}
	tl.tweens[key] = tw
	return tw
}

// Cancel stops and removes the tween registered under key, if any.
//
// Parameters:
//   - key: the tween key
func (tl *Timeline) Cancel(key string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tw, ok := tl.tweens[key]; ok {
		tw.Cancel()
		delete(tl.tweens, key)
	}
}

// Running reports whether a tween is currently registered under key.
func (tl *Timeline) Running(key string) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	_, ok := tl.tweens[key]
	return ok
}

// Update advances every registered tween by dt seconds in key order and drops the finished ones.
// Tween callbacks run without the timeline lock held, so they may start new tweens.
//
// Parameters:
//   - dt: elapsed seconds since the previous update
func (tl *Timeline) Update(dt float32) {
	tl.mu.Lock()
	keys := make([]string, 0, len(tl.tweens))
	for k := range tl.tweens {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	snapshot := make([]*Tween, len(keys))
	for i, k := range keys {
		snapshot[i] = tl.tweens[k]
	}
	tl.mu.Unlock()

	finished := make([]bool, len(snapshot))
	for i, tw := range snapshot {
		finished[i] = tw.Advance(dt)
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()
	for i, k := range keys {
		// A callback may have replaced the tween under this key.
		if finished[i] && tl.tweens[k] == snapshot[i] {
			delete(tl.tweens, k)
		}
	}
}

// Len returns the number of tweens still in flight.
func (tl *Timeline) Len() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.tweens)
}

// Clear cancels and removes every tween.
func (tl *Timeline) Clear() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	for k, tw := range tl.tweens {
		tw.Cancel()
		delete(tl.tweens, k)
	}
}
