package renderer

import (
	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeHeadless selects a CPU-only backend that performs all bookkeeping (resource
	// creation, bind generations, pass and draw accounting) without a device. Used by tests and
	// for offline runs.
	BackendTypeHeadless
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeHeadless:
		return "headless"
	default:
		return "unknown"
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// SurfaceSource is the narrow view of a window the renderer needs to create and size a surface.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// RendererBackend is the interface every GPU backend implements. The Renderer layers caching,
// statistics, release tracking and error reporting on top of it.
type RendererBackend interface {
	// MaxAnisotropy returns the highest sampler anisotropy the backend supports (1 when unavailable).
	MaxAnisotropy() uint16

	// ConfigureSurface (re)configures the presentation surface for a new size.
	ConfigureSurface(width, height int) error

	// SetPresentMode sets the present mode applied by the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline creates the GPU render pipeline for p and stores it on p.
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// CreateTexture uploads every mip level of data and creates a view and sampler.
	CreateTexture(label string, data common.TextureStagingData, sampler common.SamplerStagingData) (resource.GPUTexture, error)

	// CreateRenderTexture creates a color attachment in the surface format that can also be sampled.
	CreateRenderTexture(label string, width, height int) (resource.GPUTexture, error)

	// InitMeshBuffers uploads vertex and index data onto the provider.
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup creates any missing uniform buffers and a fresh bind group on the provider.
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// WriteBuffers queues buffer writes.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the surface texture and a command encoder.
	BeginFrame() error

	// BeginPass begins a render pass into target, or into the surface when target is nil.
	BeginPass(target resource.RenderTarget, clear wgpu.Color) error

	// DrawCall encodes an indexed draw in the current pass.
	DrawCall(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndPass ends the current render pass.
	EndPass() error

	// EndFrame finishes the encoder and submits the command buffer.
	EndFrame() error

	// Present presents the surface and releases the frame's surface texture.
	Present()

	// Release frees the device and every backend-level object.
	Release()
}
