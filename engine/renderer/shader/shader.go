package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a Shader is compiled for.
type ShaderType int

const (
	// ShaderTypeVertex is a vertex stage shader.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is a fragment stage shader.
	ShaderTypeFragment
)

// String returns a readable name for the shader stage.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// shader is the implementation of the Shader interface.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	entryPoint                 string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	vertexLayouts              []wgpu.VertexBufferLayout
	module                     *wgpu.ShaderModuleDescriptor
}

// Shader describes one WGSL entry point together with the bind group layouts and vertex
// buffer layouts it expects. Layouts are declared explicitly by the caller so that the
// renderer can build pipeline layouts without inspecting the WGSL source.
type Shader interface {
	// Key returns the unique identifier of the shader.
	//
	// Returns:
	//   - string: the shader key
	Key() string

	// Source returns the WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// ShaderType returns the stage this shader runs in.
	//
	// Returns:
	//   - ShaderType: the shader stage
	ShaderType() ShaderType

	// EntryPoint returns the WGSL function name used as the stage entry point.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// BindGroupLayoutDescriptor returns the layout declared for a bind group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, zero value when not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns every declared bind group layout keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: the layouts
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// VertexLayouts returns the vertex buffer layouts consumed by a vertex shader.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the vertex buffer layouts, empty for fragment shaders
	VertexLayouts() []wgpu.VertexBufferLayout

	// Module returns the shader module descriptor used to compile the source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the module descriptor
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewShader creates a new Shader from WGSL source. Panics when the source or entry point
// is empty since that is a programming error.
//
// Parameters:
//   - key: the unique identifier of the shader
//   - shaderType: the pipeline stage
//   - source: the WGSL source code
//   - entryPoint: the stage entry point function name
//   - options: functional options declaring layouts
//
// Returns:
//   - Shader: the configured shader
func NewShader(key string, shaderType ShaderType, source, entryPoint string, options ...ShaderBuilderOption) Shader {
	if source == "" {
		panic(fmt.Sprintf("shader: %s must have WGSL source", key))
	}
	if entryPoint == "" {
		panic(fmt.Sprintf("shader: %s must have an entry point", key))
	}
	s := &shader{
		key:                        key,
		source:                     source,
		shaderType:                 shaderType,
		entryPoint:                 entryPoint,
		bindGroupLayoutDescriptors: make(map[int]wgpu.BindGroupLayoutDescriptor),
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: source,
			},
		},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}
