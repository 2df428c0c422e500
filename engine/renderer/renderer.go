package renderer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/profiler"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrRendererReleased is returned by every operation invoked after Release.
var ErrRendererReleased = errors.New("renderer: released")

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline
	camera        bind_group_provider.BindGroupProvider

	backendType RendererBackendType
	backend     RendererBackend
	reporter    *profiler.ErrorReporter

	width, height int
	released      bool

	stats Stats
	frame Stats

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	headlessAnisotropy   uint16
	clearColor           wgpu.Color
}

// Renderer defines the interface for the rendering system.
//
// This is a high-level API designed to simplify rendering tasks into a streamlined and idiomatic flow.
// The Renderer owns the pipeline cache and the camera bind group, hands out tracked resources
// (textures, geometries, render targets, materials) and encodes frames made of one or more passes.
// The Renderer also implements a backend which allows for multiple backend API implementations to exist.
//
// Every method returns ErrRendererReleased once Release has been called.
type Renderer interface {
	// BackendType returns the backend this renderer was created with.
	BackendType() RendererBackendType

	// Size returns the current surface size in pixels.
	Size() (int, int)

	// Resize configures the underlying backend to handle a new surface size.
	// A zero or negative size (minimized window) is ignored.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be configured
	Resize(width, height int) error

	// SetPresentMode sets the surface present mode. Takes effect on the next Resize.
	SetPresentMode(mode PresentMode)

	// MaxAnisotropy returns the maximum sampler anisotropy supported by the backend, 1 when the
	// capability is unavailable.
	MaxAnisotropy() uint16

	// RegisterMaterials creates the GPU pipeline of every role in the registry. Pipelines whose
	// keys are already cached are skipped.
	//
	// Parameters:
	//   - reg: the material registry
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterMaterials(reg material.Registry) error

	// Pipeline retrieves the cached Pipeline associated with the given key, or nil.
	Pipeline(key string) pipeline.Pipeline

	// CreateTexture uploads staging data with every mip level and returns a tracked texture.
	//
	// Parameters:
	//   - label: debug label
	//   - data: the pixels and mip chain
	//   - sampler: sampler configuration; zero fields fall back to linear filtering
	//
	// Returns:
	//   - resource.Texture: the texture
	//   - error: an error if creation fails
	CreateTexture(label string, data common.TextureStagingData, sampler common.SamplerStagingData) (resource.Texture, error)

	// CreateGeometry uploads an indexed mesh. Vertices are packed position+uv (5 floats).
	//
	// Parameters:
	//   - label: debug label
	//   - vertices: packed vertex floats
	//   - indices: triangle list indices
	//
	// Returns:
	//   - resource.Geometry: the geometry
	//   - error: an error if creation fails
	CreateGeometry(label string, vertices []float32, indices []uint32) (resource.Geometry, error)

	// CreateRenderTarget creates an offscreen color target in the surface format.
	//
	// Parameters:
	//   - label: debug label
	//   - width, height: size in pixels
	//
	// Returns:
	//   - resource.RenderTarget: the target
	//   - error: an error if creation fails
	CreateRenderTarget(label string, width, height int) (resource.RenderTarget, error)

	// ResizeRenderTarget replaces the target's color attachment when the size differs.
	// Consumers sampling the target must rebind afterwards (see RenderTarget.Generation).
	ResizeRenderTarget(rt resource.RenderTarget, width, height int) error

	// InitBindGroup creates GPU buffers and a bind group from a layout descriptor and stores them
	// on the given BindGroupProvider. Texture views and samplers must already be attached.
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// InitMaterial creates the material's uniform buffer and bind group and uploads its uniform.
	InitMaterial(m material.Material) error

	// RebindMaterial rebuilds the material's bind group against its current texture. Buffers and
	// geometry are untouched.
	RebindMaterial(m material.Material) error

	// WriteMaterial uploads the material uniform, rebinding first if its texture changed.
	WriteMaterial(m material.Material) error

	// WriteCamera uploads the camera uniform shared by every tile draw.
	//
	// Parameters:
	//   - data: the marshalled camera uniform
	WriteCamera(data []byte) error

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginFrame acquires the surface texture and starts recording a frame.
	BeginFrame() error

	// BeginPass starts a render pass into target, or the screen when target is nil, cleared to
	// the renderer's clear color.
	BeginPass(target resource.RenderTarget) error

	// Draw encodes one draw of geom with the pipeline of m's role. Tile roles bind the camera at
	// group 0 and the material at group 1; the post-process role binds the material at group 0.
	Draw(geom resource.Geometry, m material.Material) error

	// EndPass ends the current render pass.
	EndPass() error

	// EndFrame submits the recorded frame.
	EndFrame() error

	// Present presents the surface to the display.
	Present() error

	// Stats returns a snapshot of the renderer counters.
	Stats() Stats

	// Release frees every pipeline, the camera bind group and the device. Idempotent.
	Release()

	// Released reports whether Release has been called.
	Released() bool
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type.
// The surface source is required for BackendTypeWGPU and may be nil for BackendTypeHeadless,
// in which case the size comes from WithSize.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - surface: the window providing the surface descriptor and framebuffer size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: an error if the backend could not be created
func NewRenderer(backendType RendererBackendType, surface SurfaceSource, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:                 &sync.Mutex{},
		pipelineCache:      make(map[string]pipeline.Pipeline),
		backendType:        backendType,
		headlessAnisotropy: 1,
		width:              1,
		height:             1,
		clearColor:         wgpu.Color{R: 0.02, G: 0.02, B: 0.02, A: 1},
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}
	if r.reporter == nil {
		r.reporter = profiler.NewErrorReporter(5*time.Second, nil)
	}
	r.reporter.SetContext(func() string { return r.Stats().String() })

	switch backendType {
	case BackendTypeHeadless:
		r.backend = newHeadlessRendererBackend(r.headlessAnisotropy)
	case BackendTypeWGPU:
		if surface == nil {
			return nil, errors.New("renderer: wgpu backend requires a surface source")
		}
		b, err := newWGPURendererBackend(surface.SurfaceDescriptor(), r.forceFallbackAdapter)
		if err != nil {
			return nil, fmt.Errorf("renderer: create wgpu backend: %w", err)
		}
		r.backend = b
		r.width, r.height = surface.Width(), surface.Height()
	default:
		return nil, fmt.Errorf("renderer: unknown backend type %d", backendType)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if err := r.backend.ConfigureSurface(r.width, r.height); err != nil {
		r.backend.Release()
		return nil, fmt.Errorf("renderer: configure surface: %w", err)
	}

	r.camera = bind_group_provider.NewBindGroupProvider("Camera")
	if err := r.backend.InitBindGroup(r.camera, shader.CameraLayout()); err != nil {
		r.backend.Release()
		return nil, fmt.Errorf("renderer: camera bind group: %w", err)
	}
	return r, nil
}

// report passes a backend error to the error reporter and returns it unchanged.
func (r *renderer) report(op string, err error) error {
	if err != nil {
		r.reporter.Report(op, err)
	}
	return err
}

func (r *renderer) checkReleased() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrRendererReleased
	}
	return nil
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) Resize(width, height int) error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return nil
	}
	if err := r.report("Resize", r.backend.ConfigureSurface(width, height)); err != nil {
		return err
	}
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()
	return nil
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) MaxAnisotropy() uint16 {
	return max(r.backend.MaxAnisotropy(), 1)
}

func (r *renderer) RegisterMaterials(reg material.Registry) error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	for _, p := range reg.Pipelines() {
		key := p.PipelineKey()
		if r.Pipeline(key) != nil {
			continue
		}
		if err := r.report("RegisterRenderPipeline", r.backend.RegisterRenderPipeline(p)); err != nil {
			return fmt.Errorf("renderer: register %s: %w", key, err)
		}
		r.mu.Lock()
		r.pipelineCache[key] = p
		r.mu.Unlock()
	}
	return nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) CreateTexture(label string, data common.TextureStagingData, sampler common.SamplerStagingData) (resource.Texture, error) {
	if err := r.checkReleased(); err != nil {
		return nil, err
	}
	if data.Width == 0 || data.Height == 0 || len(data.Pixels) < int(data.Width*data.Height*4) {
		return nil, fmt.Errorf("renderer: texture %q has invalid staging data (%dx%d, %d bytes)", label, data.Width, data.Height, len(data.Pixels))
	}
	gpu, err := r.backend.CreateTexture(label, data, sampler)
	if err != nil {
		return nil, r.report("CreateTexture", err)
	}
	size := data.ByteSize()
	tex := resource.NewTexture(label, data.Width, data.Height, data.MipLevelCount(), size, gpu, func() {
		r.mu.Lock()
		r.stats.Textures--
		r.stats.TextureBytes -= size
		r.mu.Unlock()
	})
	r.mu.Lock()
	r.stats.Textures++
	r.stats.TexturesCreated++
	r.stats.TextureBytes += size
	r.mu.Unlock()
	return tex, nil
}

func (r *renderer) CreateGeometry(label string, vertices []float32, indices []uint32) (resource.Geometry, error) {
	if err := r.checkReleased(); err != nil {
		return nil, err
	}
	if len(vertices) == 0 || len(indices) == 0 || len(indices)%3 != 0 {
		return nil, fmt.Errorf("renderer: geometry %q needs vertices and a triangle list", label)
	}
	provider := bind_group_provider.NewBindGroupProvider(label)
	vertexData := common.SliceToBytes(vertices)
	indexData := common.SliceToBytes(indices)
	if err := r.backend.InitMeshBuffers(provider, vertexData, indexData, len(indices)); err != nil {
		provider.Release()
		return nil, r.report("CreateGeometry", err)
	}
	vertexCount := len(vertices) * 4 / shader.QuadVertexStride
	geom := resource.NewGeometry(label, vertexCount, uint64(len(vertexData)+len(indexData)), provider, func() {
		r.mu.Lock()
		r.stats.Geometries--
		r.mu.Unlock()
	})
	r.mu.Lock()
	r.stats.Geometries++
	r.stats.GeometriesCreated++
	r.mu.Unlock()
	return geom, nil
}

func (r *renderer) newRenderTexture(label string, width, height int) (resource.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("renderer: render target %q has invalid size %dx%d", label, width, height)
	}
	gpu, err := r.backend.CreateRenderTexture(label, width, height)
	if err != nil {
		return nil, r.report("CreateRenderTarget", err)
	}
	return resource.NewTexture(label+" color", uint32(width), uint32(height), 1, uint64(width*height*4), gpu, nil), nil
}

func (r *renderer) CreateRenderTarget(label string, width, height int) (resource.RenderTarget, error) {
	if err := r.checkReleased(); err != nil {
		return nil, err
	}
	color, err := r.newRenderTexture(label, width, height)
	if err != nil {
		return nil, err
	}
	rt := resource.NewRenderTarget(label, color, func() {
		r.mu.Lock()
		r.stats.RenderTargets--
		r.mu.Unlock()
	})
	r.mu.Lock()
	r.stats.RenderTargets++
	r.mu.Unlock()
	return rt, nil
}

func (r *renderer) ResizeRenderTarget(rt resource.RenderTarget, width, height int) error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	if rt == nil || rt.Released() {
		return errors.New("renderer: resize of a released render target")
	}
	if int(rt.Width()) == width && int(rt.Height()) == height {
		return nil
	}
	color, err := r.newRenderTexture(rt.Label(), width, height)
	if err != nil {
		return err
	}
	rt.SetTexture(color)
	return nil
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	if err := r.backend.InitBindGroup(provider, descriptor); err != nil {
		return r.report("InitBindGroup", err)
	}
	r.mu.Lock()
	r.stats.BindGroupsCreated++
	r.mu.Unlock()
	return nil
}

// bindMaterial attaches the material's current texture and builds a bind group.
func (r *renderer) bindMaterial(m material.Material) error {
	tex := m.Texture()
	if tex == nil || tex.Released() {
		return fmt.Errorf("renderer: material %q has no live texture", m.Label())
	}
	provider := m.BindGroupProvider()
	provider.ReleaseBindGroup()
	provider.SetTextureView(shader.BindingTexture, tex.View())
	provider.SetSampler(shader.BindingSampler, tex.Sampler())
	if err := r.InitBindGroup(provider, m.Role().Layout()); err != nil {
		return err
	}
	m.MarkBound()
	return nil
}

func (r *renderer) InitMaterial(m material.Material) error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	if m.Released() {
		return fmt.Errorf("renderer: material %q already released", m.Label())
	}
	if err := r.bindMaterial(m); err != nil {
		return err
	}
	material.SetReleaseHook(m, func() {
		r.mu.Lock()
		r.stats.Materials--
		r.mu.Unlock()
	})
	r.mu.Lock()
	r.stats.Materials++
	r.mu.Unlock()
	return r.WriteMaterial(m)
}

func (r *renderer) RebindMaterial(m material.Material) error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	if m.Released() {
		return fmt.Errorf("renderer: material %q already released", m.Label())
	}
	return r.bindMaterial(m)
}

func (r *renderer) WriteMaterial(m material.Material) error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	if m.NeedsRebind() {
		if err := r.bindMaterial(m); err != nil {
			return err
		}
	}
	r.backend.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: m.BindGroupProvider(),
		Binding:  shader.BindingUniform,
		Data:     m.UniformBytes(),
	}})
	return nil
}

func (r *renderer) WriteCamera(data []byte) error {
	return r.WriteBuffers([]bind_group_provider.BufferWrite{{Provider: r.camera, Binding: 0, Data: data}})
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	r.backend.WriteBuffers(writes)
	return nil
}

func (r *renderer) BeginFrame() error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	if err := r.backend.BeginFrame(); err != nil {
		return r.report("BeginFrame", err)
	}
	r.mu.Lock()
	r.frame = Stats{}
	r.mu.Unlock()
	return nil
}

func (r *renderer) BeginPass(target resource.RenderTarget) error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	if target != nil && target.Released() {
		return errors.New("renderer: pass into a released render target")
	}
	if err := r.backend.BeginPass(target, r.clearColor); err != nil {
		return r.report("BeginPass", err)
	}
	r.mu.Lock()
	r.frame.Passes++
	if target != nil {
		r.frame.OffscreenPasses++
	}
	r.mu.Unlock()
	return nil
}

func (r *renderer) Draw(geom resource.Geometry, m material.Material) error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	if geom == nil || geom.Released() || m == nil || m.Released() {
		return errors.New("renderer: draw with a released geometry or material")
	}
	p := r.Pipeline(m.Role().PipelineKey())
	if p == nil {
		return fmt.Errorf("renderer: pipeline %q not registered", m.Role().PipelineKey())
	}
	if m.NeedsRebind() || m.Dirty() {
		if err := r.WriteMaterial(m); err != nil {
			return err
		}
	}

	groups := []bind_group_provider.BindGroupProvider{m.BindGroupProvider()}
	if m.Role() != material.RolePostProcess {
		groups = []bind_group_provider.BindGroupProvider{r.camera, m.BindGroupProvider()}
	}
	if err := r.backend.DrawCall(p, geom.Provider(), groups); err != nil {
		return r.report("Draw", err)
	}
	r.mu.Lock()
	r.frame.DrawCalls++
	r.frame.Triangles += geom.Triangles()
	r.mu.Unlock()
	return nil
}

func (r *renderer) EndPass() error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	return r.report("EndPass", r.backend.EndPass())
}

func (r *renderer) EndFrame() error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	if err := r.backend.EndFrame(); err != nil {
		return r.report("EndFrame", err)
	}
	r.mu.Lock()
	r.stats.Frames++
	r.stats.DrawCalls = r.frame.DrawCalls
	r.stats.Triangles = r.frame.Triangles
	r.stats.Passes = r.frame.Passes
	r.stats.OffscreenPasses = r.frame.OffscreenPasses
	r.mu.Unlock()
	return nil
}

func (r *renderer) Present() error {
	if err := r.checkReleased(); err != nil {
		return err
	}
	r.backend.Present()
	return nil
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

func (r *renderer) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	pipelines := r.pipelineCache
	r.pipelineCache = make(map[string]pipeline.Pipeline)
	r.mu.Unlock()

	for _, p := range pipelines {
		p.Release()
	}
	r.camera.Release()
	r.backend.Release()
}
