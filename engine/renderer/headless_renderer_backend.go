package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// headlessDraw records one encoded draw.
type headlessDraw struct {
	pipeline   string
	mesh       string
	bindGroups []string
	target     string // empty for the surface
}

// headlessRendererBackend mirrors the wgpu backend's state machine without a device. GPU handles
// stay nil; bind groups are tracked through BindGeneration.
type headlessRendererBackend struct {
	mu *sync.Mutex

	anisotropy    uint16
	width, height int

	inFrame    bool
	passTarget resource.RenderTarget
	inPass     bool
	draws      []headlessDraw
	writes     int
	presented  int
	released   bool
}

var _ RendererBackend = &headlessRendererBackend{}

func newHeadlessRendererBackend(anisotropy uint16) *headlessRendererBackend {
	return &headlessRendererBackend{
		mu:         &sync.Mutex{},
		anisotropy: max(anisotropy, 1),
	}
}

func (b *headlessRendererBackend) MaxAnisotropy() uint16 {
	return b.anisotropy
}

func (b *headlessRendererBackend) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	b.width, b.height = width, height
	return nil
}

func (b *headlessRendererBackend) SetPresentMode(PresentMode) {}

func (b *headlessRendererBackend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if p.Shader(shader.ShaderTypeVertex) == nil || p.Shader(shader.ShaderTypeFragment) == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}
	p.SetRenderPipeline(nil)
	return nil
}

func (b *headlessRendererBackend) CreateTexture(label string, data common.TextureStagingData, _ common.SamplerStagingData) (resource.GPUTexture, error) {
	for level := uint32(1); level < data.MipLevelCount(); level++ {
		w, h := max(1, data.Width>>level), max(1, data.Height>>level)
		if uint32(len(data.MipLevels[level-1])) < w*h*4 {
			return resource.GPUTexture{}, fmt.Errorf("%s: mip level %d holds %d bytes, need %d", label, level, len(data.MipLevels[level-1]), w*h*4)
		}
	}
	return resource.GPUTexture{}, nil
}

func (b *headlessRendererBackend) CreateRenderTexture(string, int, int) (resource.GPUTexture, error) {
	return resource.GPUTexture{}, nil
}

func (b *headlessRendererBackend) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, _, _ []byte, indexCount int) error {
	provider.SetIndexCount(indexCount)
	return nil
}

func (b *headlessRendererBackend) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	if len(descriptor.Entries) == 0 {
		return nil
	}
	provider.SetBindGroup(nil)
	return nil
}

func (b *headlessRendererBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes += len(writes)
}

func (b *headlessRendererBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFrame {
		return errors.New("previous frame surface not yet presented")
	}
	b.inFrame = true
	b.draws = b.draws[:0]
	return nil
}

func (b *headlessRendererBackend) BeginPass(target resource.RenderTarget, _ wgpu.Color) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame {
		return errors.New("BeginPass called outside a frame")
	}
	if b.inPass {
		return errors.New("BeginPass called with a pass still open")
	}
	b.inPass = true
	b.passTarget = target
	return nil
}

func (b *headlessRendererBackend) DrawCall(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inPass {
		return errors.New("DrawCall outside a render pass")
	}
	if !p.Registered() {
		return fmt.Errorf("pipeline %q has no GPU pipeline", p.PipelineKey())
	}
	d := headlessDraw{pipeline: p.PipelineKey(), mesh: meshProvider.Label()}
	for i, bg := range bindGroups {
		if bg.BindGeneration() == 0 {
			return fmt.Errorf("bind group %d (%s) is not initialized", i, bg.Label())
		}
		d.bindGroups = append(d.bindGroups, bg.Label())
	}
	if b.passTarget != nil {
		d.target = b.passTarget.Label()
	}
	b.draws = append(b.draws, d)
	return nil
}

func (b *headlessRendererBackend) EndPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inPass {
		return errors.New("EndPass without an open pass")
	}
	b.inPass = false
	b.passTarget = nil
	return nil
}

func (b *headlessRendererBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame {
		return errors.New("EndFrame without BeginFrame")
	}
	b.inPass = false
	b.passTarget = nil
	return nil
}

func (b *headlessRendererBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame {
		return
	}
	b.inFrame = false
	b.presented++
}

func (b *headlessRendererBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = true
}

// recordedDraws returns a copy of the draws of the current or last frame.
func (b *headlessRendererBackend) recordedDraws() []headlessDraw {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]headlessDraw, len(b.draws))
	copy(out, b.draws)
	return out
}
