package shader

import "github.com/cogentcore/webgpu/wgpu"

// ShaderBuilderOption is a functional option applied to a shader during construction via NewShader.
type ShaderBuilderOption func(*shader)

// WithBindGroupLayout declares the layout the shader expects at a bind group index.
//
// Parameters:
//   - group: the bind group index
//   - descriptor: the layout descriptor for that group
//
// Returns:
//   - ShaderBuilderOption: a function that applies the layout to a shader
func WithBindGroupLayout(group int, descriptor wgpu.BindGroupLayoutDescriptor) ShaderBuilderOption {
	return func(s *shader) {
		s.bindGroupLayoutDescriptors[group] = descriptor
	}
}

// WithVertexLayouts declares the vertex buffer layouts consumed by a vertex shader.
//
// Parameters:
//   - layouts: the vertex buffer layouts in slot order
//
// Returns:
//   - ShaderBuilderOption: a function that applies the vertex layouts to a shader
func WithVertexLayouts(layouts ...wgpu.VertexBufferLayout) ShaderBuilderOption {
	return func(s *shader) {
		s.vertexLayouts = append(s.vertexLayouts, layouts...)
	}
}
