// Package input turns pointer and wheel events into scroll movement, hover fades and tile
// activation. A press that moves less than the drag threshold is a click.
package input

import (
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/animation"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultDragThreshold is the pointer travel in pixels above which a press becomes a drag.
const DefaultDragThreshold = 5

// InputSource delivers pointer and wheel events. Passing nil removes a callback.
type InputSource interface {
	SetPointerDownCallback(callback func(x, y float32))
	SetPointerUpCallback(callback func(x, y float32))
	SetPointerMoveCallback(callback func(x, y float32))
	SetWheelCallback(callback func(dx, dy float32))
}

// Hit identifies the foreground tile under the pointer.
type Hit struct {
	GroupIndex int
	TileIndex  int
	Key        string
}

// Picker casts a ray from a pointer position through the camera against the foreground tiles and
// returns the nearest hit.
type Picker interface {
	Pick(x, y float32) (Hit, bool)
}

// TileBoard is the part of the grid the handler reads and animates.
type TileBoard interface {
	CardDataForTile(group, tile int) common.CardRecord
	FadeTile(key string, target float32) (*animation.Tween, error)
	HoverOpacity() float32
	RestingOpacity() float32
}

// ActivationFunc receives the card of a clicked tile.
type ActivationFunc func(card common.CardRecord)

type handler struct {
	mu *sync.Mutex

	scroll   *ScrollState
	picker   Picker
	board    TileBoard
	tracker  *VelocityTracker
	inertia  Inertia
	onScroll func()
	activate ActivationFunc
	now      func() time.Time

	threshold  float32
	wheelSpeed float32

	dragging    bool
	moved       bool
	startPos    mgl32.Vec2
	startScroll mgl32.Vec2
	pointer     mgl32.Vec2
	hovered     string
}

// Handler is the event and interaction handler of the wall.
type Handler interface {
	// Attach registers the handler's callbacks on src.
	//
	// Returns:
	//   - func(): removes every callback again
	Attach(src InputSource) func()

	// PointerDown starts a press at (x, y) in framebuffer pixels.
	PointerDown(x, y float32)

	// PointerMove drags the wall while pressed, otherwise updates the hovered tile.
	PointerMove(x, y float32)

	// PointerUp ends a press. A press that never passed the drag threshold activates the tile
	// under the pointer; a drag hands its velocity to inertia.
	PointerUp(x, y float32)

	// Wheel adds a scroll impulse. Positive dy (wheel up) moves the content down.
	Wheel(dx, dy float32)

	// Tick advances inertia by dt seconds.
	Tick(dt float32)

	// OnActivate sets the activation callback.
	OnActivate(fn ActivationFunc)

	// SetVelocity starts inertial scrolling with v in world units per second.
	SetVelocity(v mgl32.Vec2)

	// Velocity returns the current inertial velocity.
	Velocity() mgl32.Vec2

	// Stop cancels inertia and drag state.
	Stop()

	// Dragging reports whether a press is in progress.
	Dragging() bool

	// Hovered returns the key of the hovered tile, empty when none.
	Hovered() string
}

var _ Handler = &handler{}

// NewHandler creates a Handler.
//
// Parameters:
//   - scroll: the scroll state to drive (must not be nil)
//   - picker: hit testing (must not be nil)
//   - board: the grid (must not be nil)
//   - options: functional options
//
// Returns:
//   - Handler: the handler
func NewHandler(scroll *ScrollState, picker Picker, board TileBoard, options ...HandlerBuilderOption) Handler {
	if scroll == nil || picker == nil || board == nil {
		panic("input: NewHandler requires a scroll state, a picker and a tile board")
	}
	h := &handler{
		mu:      &sync.Mutex{},
		scroll:  scroll,
		picker:  picker,
		board:   board,
		tracker: NewVelocityTracker(VelocityWindow),
		inertia: Inertia{
			Resistance:  0.92,
			MinVelocity: 0.05,
			MaxVelocity: 60,
		},
		now:        time.Now,
		threshold:  DefaultDragThreshold,
		wheelSpeed: 0.02,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

func (h *handler) Attach(src InputSource) func() {
	src.SetPointerDownCallback(h.PointerDown)
	src.SetPointerUpCallback(h.PointerUp)
	src.SetPointerMoveCallback(h.PointerMove)
	src.SetWheelCallback(h.Wheel)
	return func() {
		src.SetPointerDownCallback(nil)
		src.SetPointerUpCallback(nil)
		src.SetPointerMoveCallback(nil)
		src.SetWheelCallback(nil)
	}
}

func (h *handler) OnActivate(fn ActivationFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activate = fn
}

func (h *handler) notifyScroll() {
	h.mu.Lock()
	fn := h.onScroll
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (h *handler) PointerDown(x, y float32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dragging = true
	h.moved = false
	h.startPos = mgl32.Vec2{x, y}
	h.pointer = h.startPos
	h.startScroll = h.scroll.Current()
	h.inertia.Set(mgl32.Vec2{})
	h.tracker.Reset()
	h.tracker.Add(h.now(), h.startScroll)
}

func (h *handler) PointerMove(x, y float32) {
	h.mu.Lock()
	h.pointer = mgl32.Vec2{x, y}
	if !h.dragging {
		h.mu.Unlock()
		h.updateHover(x, y)
		return
	}

	d := h.pointer.Sub(h.startPos)
	if d.Len() > h.threshold {
		h.moved = true
	}
	scale := h.scroll.Scale()
	// screen y grows downward, world y upward
	pos := h.startScroll.Add(mgl32.Vec2{d.X() * scale, -d.Y() * scale})
	h.scroll.SetCurrent(pos)
	h.tracker.Add(h.now(), pos)
	h.mu.Unlock()

	h.notifyScroll()
}

func (h *handler) PointerUp(x, y float32) {
	h.mu.Lock()
	if !h.dragging {
		h.mu.Unlock()
		return
	}
	h.dragging = false
	// a source may deliver down and up without moves in between
	released := false
	if d := (mgl32.Vec2{x, y}).Sub(h.startPos); d.Len() > h.threshold {
		h.moved = true
		if !h.pointer.ApproxEqual(mgl32.Vec2{x, y}) {
			scale := h.scroll.Scale()
			h.scroll.SetCurrent(h.startScroll.Add(mgl32.Vec2{d.X() * scale, -d.Y() * scale}))
			released = true
		}
	}
	h.pointer = mgl32.Vec2{x, y}
	click := !h.moved
	if !click {
		h.tracker.Add(h.now(), h.scroll.Current())
		h.inertia.Set(h.tracker.Velocity())
	}
	h.tracker.Reset()
	activate := h.activate
	h.mu.Unlock()

	if released {
		h.notifyScroll()
	}
	if !click {
		return
	}
	hit, ok := h.picker.Pick(x, y)
	if !ok {
		return
	}
	card := h.board.CardDataForTile(hit.GroupIndex, hit.TileIndex)
	log.Printf("[Input] activated tile %s (%q)", hit.Key, card.Title)
	if activate != nil {
		activate(card)
	}
}

// updateHover moves the hover highlight to the tile under (x, y). At most one tile is hovered.
func (h *handler) updateHover(x, y float32) {
	hit, ok := h.picker.Pick(x, y)
	key := ""
	if ok {
		key = hit.Key
	}

	h.mu.Lock()
	prev := h.hovered
	if prev == key {
		h.mu.Unlock()
		return
	}
	h.hovered = key
	h.mu.Unlock()

	if prev != "" {
		if _, err := h.board.FadeTile(prev, h.board.RestingOpacity()); err != nil {
			log.Printf("[Input] fade out %s: %v", prev, err)
		}
	}
	if key != "" {
		if _, err := h.board.FadeTile(key, h.board.HoverOpacity()); err != nil {
			log.Printf("[Input] fade in %s: %v", key, err)
		}
	}
}

func (h *handler) Wheel(dx, dy float32) {
	h.mu.Lock()
	h.inertia.Impulse(mgl32.Vec2{-dx, -dy}.Mul(h.wheelSpeed * 60))
	h.mu.Unlock()
}

func (h *handler) Tick(dt float32) {
	h.mu.Lock()
	if h.dragging {
		h.mu.Unlock()
		return
	}
	d, stopped := h.inertia.Step(dt)
	h.mu.Unlock()

	if d.Len() > 0 {
		h.scroll.Add(d)
		h.notifyScroll()
	}
	if stopped {
		h.scroll.ResetDirection()
	}
}

func (h *handler) SetVelocity(v mgl32.Vec2) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inertia.Set(v)
}

func (h *handler) Velocity() mgl32.Vec2 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inertia.Velocity
}

func (h *handler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inertia.Set(mgl32.Vec2{})
	h.dragging = false
	h.moved = false
	h.tracker.Reset()
}

func (h *handler) Dragging() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dragging
}

func (h *handler) Hovered() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hovered
}
