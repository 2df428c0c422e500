package bind_group_provider

import "testing"

func TestNewBindGroupProviderKeepsLabel(t *testing.T) {
	p := NewBindGroupProvider("tile-3 material", WithIndexCount(6))
	if p.Label() != "tile-3 material" {
		t.Errorf("Label = %q", p.Label())
	}
	if p.IndexCount() != 6 {
		t.Errorf("IndexCount = %d, want 6", p.IndexCount())
	}
}

func TestBindGenerationCountsRebinds(t *testing.T) {
	p := NewBindGroupProvider("m")
	p.SetBindGroup(nil)
	p.ReleaseBindGroup()
	p.SetBindGroup(nil)
	if p.BindGeneration() != 2 {
		t.Errorf("BindGeneration = %d, want 2", p.BindGeneration())
	}
}

func TestReleaseIsIdempotentWithoutGPU(t *testing.T) {
	p := NewBindGroupProvider("m", WithIndexCount(6))
	p.SetTextureView(1, nil)
	p.SetSampler(2, nil)
	p.SetBuffer(0, nil)
	p.Release()
	p.Release()
	if len(p.Buffers()) != 0 || p.IndexCount() != 0 {
		t.Error("Release should drop every owned and borrowed reference")
	}
}
