package input

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/go-gl/mathgl/mgl32"
)

// directionEpsilon is the smallest per-frame scroll change that counts as movement.
const directionEpsilon = 1e-6

// ScrollState is the world-space scroll offset of the wall. Current is written by drag, wheel
// and inertia; Last is the value seen by the previous wraparound pass, so Current-Last gives
// the scroll direction of the frame. Safe for concurrent use.
type ScrollState struct {
	mu *sync.Mutex

	current mgl32.Vec2
	last    mgl32.Vec2
	scale   float32
}

// NewScrollState creates a ScrollState at the origin.
//
// Parameters:
//   - scale: world units per pointer pixel
//
// Returns:
//   - *ScrollState: the state
func NewScrollState(scale float32) *ScrollState {
	return &ScrollState{mu: &sync.Mutex{}, scale: scale}
}

// Current returns the scroll offset.
func (s *ScrollState) Current() mgl32.Vec2 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Last returns the offset recorded by the previous Snapshot.
func (s *ScrollState) Last() mgl32.Vec2 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// SetCurrent moves the scroll offset to v.
func (s *ScrollState) SetCurrent(v mgl32.Vec2) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = v
}

// Add moves the scroll offset by d.
func (s *ScrollState) Add(d mgl32.Vec2) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.current.Add(d)
}

// Scale returns the world units per pointer pixel.
func (s *ScrollState) Scale() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

// SetScale sets the world units per pointer pixel. Non-positive values are ignored.
func (s *ScrollState) SetScale(scale float32) {
	if scale <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scale = scale
}

// Direction returns the sign of Current-Last per axis.
//
// Returns:
//   - int, int: -1, 0 or +1 for x and y
func (s *ScrollState) Direction() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.current.Sub(s.last)
	return common.Sign(d.X(), directionEpsilon), common.Sign(d.Y(), directionEpsilon)
}

// Snapshot records the current offset as Last and returns the delta since the previous snapshot.
//
// Returns:
//   - mgl32.Vec2: Current-Last before the snapshot
func (s *ScrollState) Snapshot() mgl32.Vec2 {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.current.Sub(s.last)
	s.last = s.current
	return d
}

// ResetDirection makes the direction neutral without moving the offset.
func (s *ScrollState) ResetDirection() {
	s.Snapshot()
}
