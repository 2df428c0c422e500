package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestBindGroupLayoutsMergeVisibility(t *testing.T) {
	p := NewPipeline("tile-foreground",
		WithVertexShader(shader.TileVertexShader()),
		WithFragmentShader(shader.ForegroundFragmentShader()),
		WithBlendEnabled(true),
	)

	layouts := p.BindGroupLayouts()
	if len(layouts) != 2 {
		t.Fatalf("got %d groups, want camera and material", len(layouts))
	}
	material := layouts[shader.MaterialGroup]
	if len(material.Entries) != 3 {
		t.Fatalf("material group has %d entries, want 3", len(material.Entries))
	}
	for i, e := range material.Entries {
		if e.Binding != uint32(i) {
			t.Errorf("entries not sorted by binding: %v", material.Entries)
		}
	}
	uniform := material.Entries[shader.BindingUniform]
	want := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	if uniform.Visibility&want != want {
		t.Errorf("uniform visibility = %v, want vertex|fragment", uniform.Visibility)
	}
	if !p.BlendEnabled() {
		t.Error("blend option not applied")
	}
}

func TestSetRenderPipelineMarksRegistered(t *testing.T) {
	p := NewPipeline("x")
	if p.Registered() {
		t.Fatal("new pipeline should not be registered")
	}
	p.SetRenderPipeline(nil)
	if !p.Registered() {
		t.Error("SetRenderPipeline should mark the pipeline registered")
	}
	p.Release()
	if p.Registered() {
		t.Error("Release should clear the registered flag")
	}
}
