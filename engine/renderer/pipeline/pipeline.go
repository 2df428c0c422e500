package pipeline

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineKey string

	vertexShader, fragmentShader shader.Shader

	// renderPipeline is the GPU object, nil until registered with a wgpu renderer.
	renderPipeline *wgpu.RenderPipeline
	registered     bool

	blendEnabled bool
	cullMode     wgpu.CullMode
	topology     wgpu.PrimitiveTopology
	frontFace    wgpu.FrontFace
	writeMask    wgpu.ColorWriteMask
	blendState   *wgpu.BlendState
}

// Pipeline describes a render pipeline: a vertex and fragment shader plus fixed-function state.
// The renderer creates the GPU object once at registration; draws then only reference it by key.
type Pipeline interface {
	// PipelineKey returns the unique key the renderer caches this pipeline under.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// Shader returns the shader bound to the given stage, or nil.
	//
	// Parameters:
	//   - shaderType: the stage to look up
	//
	// Returns:
	//   - shader.Shader: the shader or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// BindGroupLayouts merges the vertex and fragment layouts per group index. Entries declared by
	// both stages get the union of their visibility flags.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged layouts keyed by group
	BindGroupLayouts() map[int]wgpu.BindGroupLayoutDescriptor

	// RenderPipeline returns the GPU render pipeline, nil until registered on a wgpu backend.
	RenderPipeline() *wgpu.RenderPipeline

	// Registered reports whether a renderer backend has accepted this pipeline.
	Registered() bool

	BlendEnabled() bool
	CullMode() wgpu.CullMode
	Topology() wgpu.PrimitiveTopology
	FrontFace() wgpu.FrontFace
	WriteMask() wgpu.ColorWriteMask
	BlendState() *wgpu.BlendState

	// SetRenderPipeline stores the created GPU object and marks the pipeline registered.
	// The headless backend passes nil.
	//
	// Parameters:
	//   - p: the created render pipeline
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// Release releases the GPU render pipeline if one was created.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a new render Pipeline. Defaults to alpha blending off, no culling,
// triangle lists with counter-clockwise front faces and the standard source-over blend state.
//
// Parameters:
//   - pipelineKey: the unique key of the pipeline
//   - opts: functional options
//
// Returns:
//   - Pipeline: the configured pipeline
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		blendEnabled: false,
		cullMode:     wgpu.CullModeNone,
		topology:     wgpu.PrimitiveTopologyTriangleList,
		frontFace:    wgpu.FrontFaceCCW,
		writeMask:    wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) Registered() bool {
	return p.registered
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
	p.registered = true
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	p.registered = false
}

func (p *pipeline) BindGroupLayouts() map[int]wgpu.BindGroupLayoutDescriptor {
	var vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor
	if p.vertexShader != nil {
		vertexLayouts = p.vertexShader.BindGroupLayoutDescriptors()
	}
	if p.fragmentShader != nil {
		fragmentLayouts = p.fragmentShader.BindGroupLayoutDescriptors()
	}
	return mergeBindGroupLayouts(vertexLayouts, fragmentLayouts)
}

// mergeBindGroupLayouts combines the per-group layouts of two stages, OR-ing visibility for
// bindings both stages declare.
func mergeBindGroupLayouts(vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		vDesc, hasV := vertexLayouts[g]
		fDesc, hasF := fragmentLayouts[g]

		switch {
		case hasV && !hasF:
			merged[g] = vDesc
		case hasF && !hasV:
			merged[g] = fDesc
		default:
			entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
			for _, e := range vDesc.Entries {
				entryMap[e.Binding] = e
			}
			for _, e := range fDesc.Entries {
				if existing, ok := entryMap[e.Binding]; ok {
					existing.Visibility |= e.Visibility
					entryMap[e.Binding] = existing
				} else {
					entryMap[e.Binding] = e
				}
			}

			entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
			for _, e := range entryMap {
				entries = append(entries, e)
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Binding < entries[j].Binding
			})

			merged[g] = wgpu.BindGroupLayoutDescriptor{
				Label:   vDesc.Label,
				Entries: entries,
			}
		}
	}

	return merged
}
