package resource

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// GPUTexture groups the backend objects behind a Texture. All fields are nil on the headless backend.
type GPUTexture struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler
}

type texture struct {
	mu *sync.Mutex

	id        uint64
	label     string
	width     uint32
	height    uint32
	mipLevels uint32
	byteSize  uint64

	gpu       GPUTexture
	released  bool
	onRelease func()
}

// Texture is a sampled 2-D texture with its view and sampler.
type Texture interface {
	Releasable

	// Width returns the width of mip level 0 in texels.
	Width() uint32

	// Height returns the height of mip level 0 in texels.
	Height() uint32

	// MipLevels returns the number of mip levels stored.
	MipLevels() uint32

	// ByteSize returns the number of bytes uploaded across every mip level.
	ByteSize() uint64

	// View returns the texture view used for binding, nil on the headless backend or after release.
	View() *wgpu.TextureView

	// Sampler returns the sampler paired with this texture.
	Sampler() *wgpu.Sampler
}

var _ Texture = &texture{}

// NewTexture wraps backend objects into a Texture handle.
//
// Parameters:
//   - label: debug label
//   - width, height: dimensions of mip level 0
//   - mipLevels: number of mip levels
//   - byteSize: total uploaded bytes
//   - gpu: the backend objects (zero value when headless)
//   - onRelease: called once after the GPU objects are released (may be nil)
//
// Returns:
//   - Texture: the handle
func NewTexture(label string, width, height, mipLevels uint32, byteSize uint64, gpu GPUTexture, onRelease func()) Texture {
	return &texture{
		mu:        &sync.Mutex{},
		id:        NextID(),
		label:     label,
		width:     width,
		height:    height,
		mipLevels: mipLevels,
		byteSize:  byteSize,
		gpu:       gpu,
		onRelease: onRelease,
	}
}

func (t *texture) ID() uint64        { return t.id }
func (t *texture) Label() string     { return t.label }
func (t *texture) Width() uint32     { return t.width }
func (t *texture) Height() uint32    { return t.height }
func (t *texture) MipLevels() uint32 { return t.mipLevels }
func (t *texture) ByteSize() uint64  { return t.byteSize }

func (t *texture) View() *wgpu.TextureView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gpu.View
}

func (t *texture) Sampler() *wgpu.Sampler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gpu.Sampler
}

func (t *texture) Released() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released
}

func (t *texture) Release() {
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return
	}
	t.released = true
	if t.gpu.Sampler != nil {
		t.gpu.Sampler.Release()
	}
	if t.gpu.View != nil {
		t.gpu.View.Release()
	}
	if t.gpu.Texture != nil {
		t.gpu.Texture.Release()
	}
	t.gpu = GPUTexture{}
	hook := t.onRelease
	t.mu.Unlock()

	if hook != nil {
		hook()
	}
}
