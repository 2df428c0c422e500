package resource

import (
	"sync"
)

type renderTarget struct {
	mu *sync.Mutex

	id         uint64
	label      string
	color      Texture
	generation int

	released  bool
	onRelease func()
}

// RenderTarget is an offscreen color attachment that can later be sampled as a texture.
// Resizing swaps the color texture; Generation tells consumers when to rebind.
type RenderTarget interface {
	Releasable

	// Width returns the current color attachment width, 0 after release.
	Width() uint32

	// Height returns the current color attachment height, 0 after release.
	Height() uint32

	// Texture returns the current color attachment.
	Texture() Texture

	// Generation increments every time the color attachment is replaced.
	Generation() int

	// SetTexture replaces the color attachment and releases the previous one.
	//
	// Parameters:
	//   - color: the new color attachment
	SetTexture(color Texture)
}

var _ RenderTarget = &renderTarget{}

// NewRenderTarget wraps a color attachment into a RenderTarget handle.
//
// Parameters:
//   - label: debug label
//   - color: the initial color attachment
//   - onRelease: called once after the attachment is released (may be nil)
//
// Returns:
//   - RenderTarget: the handle
func NewRenderTarget(label string, color Texture, onRelease func()) RenderTarget {
	return &renderTarget{
		mu:        &sync.Mutex{},
		id:        NextID(),
		label:     label,
		color:     color,
		onRelease: onRelease,
	}
}

func (r *renderTarget) ID() uint64    { return r.id }
func (r *renderTarget) Label() string { return r.label }

func (r *renderTarget) Width() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.color == nil {
		return 0
	}
	return r.color.Width()
}

func (r *renderTarget) Height() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.color == nil {
		return 0
	}
	return r.color.Height()
}

func (r *renderTarget) Texture() Texture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.color
}

func (r *renderTarget) Generation() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

func (r *renderTarget) SetTexture(color Texture) {
	r.mu.Lock()
	prev := r.color
	r.color = color
	r.generation++
	r.mu.Unlock()

	if prev != nil && prev != color {
		prev.Release()
	}
}

func (r *renderTarget) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

func (r *renderTarget) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	color := r.color
	r.color = nil
	hook := r.onRelease
	r.mu.Unlock()

	if color != nil {
		color.Release()
	}
	if hook != nil {
		hook()
	}
}
