package shader

import (
	"strings"
	"testing"
)

func TestBuiltinShadersDeclareEntryPoints(t *testing.T) {
	tests := []struct {
		name   string
		shader Shader
		stage  ShaderType
		groups int
	}{
		{"tile vertex", TileVertexShader(), ShaderTypeVertex, 2},
		{"foreground", ForegroundFragmentShader(), ShaderTypeFragment, 1},
		{"background", BackgroundFragmentShader(), ShaderTypeFragment, 1},
		{"fullscreen", FullscreenVertexShader(), ShaderTypeVertex, 1},
		{"postprocess", PostProcessFragmentShader(), ShaderTypeFragment, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.shader
			if s.ShaderType() != tt.stage {
				t.Errorf("stage = %v, want %v", s.ShaderType(), tt.stage)
			}
			if !strings.Contains(s.Source(), "fn "+s.EntryPoint()+"(") {
				t.Errorf("entry point %q not present in source", s.EntryPoint())
			}
			if len(s.BindGroupLayoutDescriptors()) != tt.groups {
				t.Errorf("declared %d groups, want %d", len(s.BindGroupLayoutDescriptors()), tt.groups)
			}
			if s.Module() == nil || s.Module().WGSLDescriptor.Code != s.Source() {
				t.Error("module descriptor should carry the source")
			}
			if tt.stage == ShaderTypeVertex && len(s.VertexLayouts()) != 1 {
				t.Error("vertex shaders consume the quad vertex layout")
			}
		})
	}
}

func TestPostProcessSourceClampsBeforeSampling(t *testing.T) {
	clamp := strings.Index(postProcessSource, "clamp(displaced")
	sample := strings.Index(postProcessSource, "textureSample(")
	if clamp < 0 || sample < 0 || clamp > sample {
		t.Error("displaced coordinates must be clamped before the texture fetch")
	}
}

func TestNewShaderPanicsWithoutSource(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for empty source")
		}
	}()
	NewShader("empty", ShaderTypeVertex, "", "main")
}

func TestQuadVertexLayoutStride(t *testing.T) {
	l := QuadVertexLayout()
	if l.ArrayStride != QuadVertexStride || len(l.Attributes) != 2 || l.Attributes[1].Offset != 12 {
		t.Errorf("unexpected quad layout: %+v", l)
	}
}
