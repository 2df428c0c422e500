package shader

import (
	_ "embed"

	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/tile.wgsl
var tileSource string

//go:embed assets/postprocess.wgsl
var postProcessSource string

// Uniform sizes in bytes. They match the WGSL struct layouts in assets/.
const (
	CameraUniformSize     = 80
	TileUniformSize       = 80
	PostProcessParamsSize = 16

	// QuadVertexStride is the byte stride of a quad vertex: vec3 position + vec2 uv.
	QuadVertexStride = 20
)

// Bind group indices shared by the tile shaders.
const (
	CameraGroup   = 0
	MaterialGroup = 1
)

// Bindings inside a material bind group.
const (
	BindingUniform = 0
	BindingTexture = 1
	BindingSampler = 2
)

// Shader keys of the built-in shaders.
const (
	TileVertexKey         = "tile.vs_main"
	ForegroundFragmentKey = "tile.fs_foreground"
	BackgroundFragmentKey = "tile.fs_background"
	FullscreenVertexKey   = "postprocess.vs_fullscreen"
	PostProcessFragment   = "postprocess.fs_postprocess"
)

// QuadVertexLayout returns the vertex buffer layout of a textured quad.
//
// Returns:
//   - wgpu.VertexBufferLayout: position at location 0, uv at location 1
func QuadVertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: QuadVertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
		},
	}
}

// CameraLayout returns the layout of the camera bind group.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: a single uniform buffer visible to the vertex stage
func CameraLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Camera Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: CameraUniformSize,
				},
			},
		},
	}
}

// TileMaterialLayout returns the layout of a per-tile material bind group.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: tile uniform, texture and sampler
func TileMaterialLayout() wgpu.BindGroupLayoutDescriptor {
	return textureMaterialLayout("Tile Material Bind Group Layout", wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, TileUniformSize)
}

// PostProcessLayout returns the layout of the post-process bind group.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: post-process parameters, scene texture and sampler
func PostProcessLayout() wgpu.BindGroupLayoutDescriptor {
	return textureMaterialLayout("Post Process Bind Group Layout", wgpu.ShaderStageFragment, PostProcessParamsSize)
}

func textureMaterialLayout(label string, uniformVisibility wgpu.ShaderStage, uniformSize uint64) wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: label,
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    BindingUniform,
				Visibility: uniformVisibility,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uniformSize,
				},
			},
			{
				Binding:    BindingTexture,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    BindingSampler,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	}
}

// TileVertexShader returns the vertex stage shared by both tile layers.
func TileVertexShader() Shader {
	return NewShader(TileVertexKey, ShaderTypeVertex, tileSource, "vs_main",
		WithBindGroupLayout(CameraGroup, CameraLayout()),
		WithBindGroupLayout(MaterialGroup, TileMaterialLayout()),
		WithVertexLayouts(QuadVertexLayout()),
	)
}

// ForegroundFragmentShader returns the plain textured quad fragment stage.
func ForegroundFragmentShader() Shader {
	return NewShader(ForegroundFragmentKey, ShaderTypeFragment, tileSource, "fs_foreground",
		WithBindGroupLayout(MaterialGroup, TileMaterialLayout()),
	)
}

// BackgroundFragmentShader returns the blurred background fragment stage.
func BackgroundFragmentShader() Shader {
	return NewShader(BackgroundFragmentKey, ShaderTypeFragment, tileSource, "fs_background",
		WithBindGroupLayout(MaterialGroup, TileMaterialLayout()),
	)
}

// FullscreenVertexShader returns the pass-through vertex stage of the post-process pass.
func FullscreenVertexShader() Shader {
	return NewShader(FullscreenVertexKey, ShaderTypeVertex, postProcessSource, "vs_fullscreen",
		WithBindGroupLayout(0, PostProcessLayout()),
		WithVertexLayouts(QuadVertexLayout()),
	)
}

// PostProcessFragmentShader returns the distortion and vignette fragment stage.
func PostProcessFragmentShader() Shader {
	return NewShader(PostProcessFragment, ShaderTypeFragment, postProcessSource, "fs_postprocess",
		WithBindGroupLayout(0, PostProcessLayout()),
	)
}
