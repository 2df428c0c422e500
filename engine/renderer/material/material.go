package material

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Role selects which registered pipeline draws a material.
type Role int

const (
	// RoleForeground is the plain textured quad of a tile's content layer.
	RoleForeground Role = iota

	// RoleBackground is the blurred, opacity-faded hover layer behind each tile.
	RoleBackground

	// RolePostProcess is the full-screen distortion and vignette pass.
	RolePostProcess
)

// Roles lists every Role in registration order.
var Roles = []Role{RoleForeground, RoleBackground, RolePostProcess}

func (r Role) String() string {
	switch r {
	case RoleForeground:
		return "foreground"
	case RoleBackground:
		return "background"
	case RolePostProcess:
		return "post-process"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// PipelineKey returns the key of the pipeline registered for the role.
func (r Role) PipelineKey() string {
	switch r {
	case RolePostProcess:
		return "post-process"
	default:
		return "tile-" + r.String()
	}
}

// Layout returns the bind group layout of a material with this role.
func (r Role) Layout() wgpu.BindGroupLayoutDescriptor {
	if r == RolePostProcess {
		return shader.PostProcessLayout()
	}
	return shader.TileMaterialLayout()
}

// Group returns the bind group index a material of this role is bound at.
func (r Role) Group() int {
	if r == RolePostProcess {
		return 0
	}
	return shader.MaterialGroup
}

type material struct {
	mu *sync.Mutex

	id       uint64
	label    string
	role     Role
	provider bind_group_provider.BindGroupProvider
	texture  resource.Texture

	tile GPUTileUniform
	post GPUPostProcessParams

	dirty       bool
	needsRebind bool
	released    bool
	onRelease   func()
}

// Material is a per-tile (or per-pass) parameter set for a role's pipeline: one uniform buffer,
// one texture and its sampler. Materials never own their textures; many tiles reference the same
// cached texture pair.
type Material interface {
	resource.Releasable

	// Role returns the pipeline role.
	Role() Role

	// BindGroupProvider returns the provider holding the uniform buffer and bind group.
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// Texture returns the currently referenced texture, or nil.
	Texture() resource.Texture

	// SetTexture references a different texture. The renderer must rebind the material before the
	// next draw; NeedsRebind reports true until it does.
	//
	// Parameters:
	//   - tex: the texture to sample
	SetTexture(tex resource.Texture)

	// NeedsRebind reports whether the texture changed since the last bind.
	NeedsRebind() bool

	// MarkBound is called by the renderer after the bind group was rebuilt.
	MarkBound()

	// Model returns the tile model matrix.
	Model() mgl32.Mat4

	// SetModel sets the tile model matrix.
	SetModel(m mgl32.Mat4)

	// Opacity returns the tile opacity in [0,1].
	Opacity() float32

	// SetOpacity sets the tile opacity, clamped to [0,1].
	SetOpacity(v float32)

	// SetBlurRadius sets the background blur radius in texels.
	SetBlurRadius(texels float32)

	// SetFlipV toggles vertical UV flipping in the tile vertex shader.
	SetFlipV(flip bool)

	// PostParams returns the post-process uniform vector.
	PostParams() [4]float32

	// SetPostParams sets the post-process uniform vector.
	SetPostParams(p [4]float32)

	// Dirty reports whether the uniform changed since the last upload.
	Dirty() bool

	// UniformBytes returns the marshalled uniform for the material's role and clears the dirty flag.
	UniformBytes() []byte
}

var _ Material = &material{}

// NewMaterial creates a new Material for a role. Tile materials start fully opaque with an
// identity model matrix.
//
// Parameters:
//   - label: debug label
//   - role: the pipeline role
//   - options: functional options
//
// Returns:
//   - Material: the configured material
func NewMaterial(label string, role Role, options ...MaterialBuilderOption) Material {
	m := &material{
		mu:       &sync.Mutex{},
		id:       resource.NextID(),
		label:    label,
		role:     role,
		provider: bind_group_provider.NewBindGroupProvider(label),
		dirty:    true,
	}
	m.tile.Model = mgl32.Ident4()
	m.tile.Params[0] = 1
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) ID() uint64    { return m.id }
func (m *material) Label() string { return m.label }
func (m *material) Role() Role    { return m.role }

func (m *material) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return m.provider
}

func (m *material) Texture() resource.Texture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.texture
}

func (m *material) SetTexture(tex resource.Texture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setTextureLocked(tex)
}

func (m *material) setTextureLocked(tex resource.Texture) {
	if m.texture == tex {
		return
	}
	m.texture = tex
	m.needsRebind = true
	if tex != nil && tex.Width() > 0 {
		m.tile.Params[2] = 1 / float32(tex.Width())
		m.dirty = true
	}
}

func (m *material) NeedsRebind() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.needsRebind
}

func (m *material) MarkBound() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.needsRebind = false
}

func (m *material) Model() mgl32.Mat4 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tile.Model
}

func (m *material) SetModel(model mgl32.Mat4) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tile.Model != model {
		m.tile.Model = model
		m.dirty = true
	}
}

func (m *material) Opacity() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tile.Params[0]
}

func (m *material) SetOpacity(v float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v = min(max(v, 0), 1)
	if m.tile.Params[0] != v {
		m.tile.Params[0] = v
		m.dirty = true
	}
}

func (m *material) SetBlurRadius(texels float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tile.Params[1] = max(texels, 0)
	m.dirty = true
}

func (m *material) SetFlipV(flip bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tile.Params[3] = 0
	if flip {
		m.tile.Params[3] = 1
	}
	m.dirty = true
}

func (m *material) PostParams() [4]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.post.Params
}

func (m *material) SetPostParams(p [4]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.post.Params != p {
		m.post.Params = p
		m.dirty = true
	}
}

func (m *material) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

func (m *material) UniformBytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = false
	if m.role == RolePostProcess {
		return m.post.Marshal()
	}
	return m.tile.Marshal()
}

func (m *material) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// Release frees the uniform buffer and bind group. The referenced texture is left alone.
func (m *material) Release() {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return
	}
	m.released = true
	m.texture = nil
	m.provider.Release()
	hook := m.onRelease
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// SetReleaseHook installs the callback run once after Release. Used by the renderer for live counts.
func SetReleaseHook(m Material, hook func()) {
	if impl, ok := m.(*material); ok {
		impl.mu.Lock()
		impl.onRelease = hook
		impl.mu.Unlock()
	}
}
