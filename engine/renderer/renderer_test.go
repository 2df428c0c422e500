package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/resource"
)

var quadVertices = []float32{
	-0.5, 0.5, 0, 0, 0,
	0.5, 0.5, 0, 1, 0,
	0.5, -0.5, 0, 1, 1,
	-0.5, -0.5, 0, 0, 1,
}

var quadIndices = []uint32{0, 2, 1, 0, 3, 2}

func newHeadless(t *testing.T, opts ...RendererBuilderOption) Renderer {
	t.Helper()
	r, err := NewRenderer(BackendTypeHeadless, nil, append([]RendererBuilderOption{WithSize(800, 600)}, opts...)...)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	if err := r.RegisterMaterials(material.NewRegistry()); err != nil {
		t.Fatalf("RegisterMaterials: %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

func staging(w, h uint32) common.TextureStagingData {
	return common.TextureStagingData{Pixels: make([]byte, w*h*4), Width: w, Height: h}
}

func headlessBackend(r Renderer) *headlessRendererBackend {
	return r.(*renderer).backend.(*headlessRendererBackend)
}

func TestNewRendererHeadless(t *testing.T) {
	r := newHeadless(t, WithMaxAnisotropy(8))
	if w, h := r.Size(); w != 800 || h != 600 {
		t.Errorf("Size = %dx%d", w, h)
	}
	if r.MaxAnisotropy() != 8 {
		t.Errorf("MaxAnisotropy = %d", r.MaxAnisotropy())
	}
	for _, role := range material.Roles {
		p := r.Pipeline(role.PipelineKey())
		if p == nil || !p.Registered() {
			t.Errorf("pipeline %s not registered", role.PipelineKey())
		}
	}
}

func TestWGPUBackendRequiresSurface(t *testing.T) {
	if _, err := NewRenderer(BackendTypeWGPU, nil); err == nil {
		t.Fatal("expected an error without a surface source")
	}
}

func TestResizeIgnoresMinimizedWindow(t *testing.T) {
	r := newHeadless(t)
	if err := r.Resize(0, 0); err != nil {
		t.Fatal(err)
	}
	if w, h := r.Size(); w != 800 || h != 600 {
		t.Errorf("Size changed to %dx%d", w, h)
	}
	if err := r.Resize(1024, 768); err != nil {
		t.Fatal(err)
	}
	if w, h := r.Size(); w != 1024 || h != 768 {
		t.Errorf("Size = %dx%d", w, h)
	}
}

func TestResourceAccounting(t *testing.T) {
	r := newHeadless(t)

	tex, err := r.CreateTexture("card", staging(4, 4), common.SamplerStagingData{})
	if err != nil {
		t.Fatal(err)
	}
	geom, err := r.CreateGeometry("quad", quadVertices, quadIndices)
	if err != nil {
		t.Fatal(err)
	}
	if geom.VertexCount() != 4 || geom.Triangles() != 2 {
		t.Errorf("geometry has %d vertices, %d triangles", geom.VertexCount(), geom.Triangles())
	}

	s := r.Stats()
	if s.Textures != 1 || s.Geometries != 1 || s.TextureBytes != 64 {
		t.Errorf("stats after create = %+v", s)
	}

	tex.Release()
	geom.Release()
	geom.Release()
	s = r.Stats()
	if s.Textures != 0 || s.Geometries != 0 || s.TextureBytes != 0 {
		t.Errorf("stats after release = %+v", s)
	}
	if s.TexturesCreated != 1 || s.GeometriesCreated != 1 {
		t.Errorf("cumulative counters = %+v", s)
	}
}

func TestCreateTextureRejectsShortData(t *testing.T) {
	r := newHeadless(t)
	bad := common.TextureStagingData{Pixels: make([]byte, 10), Width: 4, Height: 4}
	if _, err := r.CreateTexture("bad", bad, common.SamplerStagingData{}); err == nil {
		t.Error("expected an error for truncated pixels")
	}
	mips := staging(4, 4)
	mips.MipLevels = [][]byte{make([]byte, 3)}
	if _, err := r.CreateTexture("bad mips", mips, common.SamplerStagingData{}); err == nil {
		t.Error("expected an error for a truncated mip level")
	}
}

func TestCreateGeometryRejectsNonTriangles(t *testing.T) {
	r := newHeadless(t)
	if _, err := r.CreateGeometry("bad", quadVertices, []uint32{0, 1}); err == nil {
		t.Error("expected an error for an incomplete triangle list")
	}
}

func TestFrameDrawsTileWithCameraGroup(t *testing.T) {
	r := newHeadless(t)
	tex, _ := r.CreateTexture("card", staging(4, 4), common.SamplerStagingData{})
	geom, _ := r.CreateGeometry("quad", quadVertices, quadIndices)
	m := material.NewMaterial("tile 0", material.RoleForeground, material.WithTexture(tex))
	if err := r.InitMaterial(m); err != nil {
		t.Fatal(err)
	}

	if err := r.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := r.BeginPass(nil); err != nil {
		t.Fatal(err)
	}
	if err := r.Draw(geom, m); err != nil {
		t.Fatal(err)
	}
	if err := r.EndPass(); err != nil {
		t.Fatal(err)
	}
	if err := r.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if err := r.Present(); err != nil {
		t.Fatal(err)
	}

	draws := headlessBackend(r).recordedDraws()
	if len(draws) != 1 {
		t.Fatalf("recorded %d draws", len(draws))
	}
	d := draws[0]
	if d.pipeline != "tile-foreground" || len(d.bindGroups) != 2 || d.bindGroups[0] != "Camera" || d.bindGroups[1] != "tile 0" {
		t.Errorf("draw = %+v", d)
	}
	s := r.Stats()
	if s.Frames != 1 || s.DrawCalls != 1 || s.Triangles != 2 || s.Passes != 1 || s.Materials != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestPostProcessBindsMaterialAtGroupZero(t *testing.T) {
	r := newHeadless(t)
	rt, err := r.CreateRenderTarget("scene", 800, 600)
	if err != nil {
		t.Fatal(err)
	}
	geom, _ := r.CreateGeometry("fullscreen", quadVertices, quadIndices)
	post := material.NewMaterial("post", material.RolePostProcess, material.WithTexture(rt.Texture()))
	if err := r.InitMaterial(post); err != nil {
		t.Fatal(err)
	}

	_ = r.BeginFrame()
	_ = r.BeginPass(rt)
	_ = r.EndPass()
	_ = r.BeginPass(nil)
	if err := r.Draw(geom, post); err != nil {
		t.Fatal(err)
	}
	_ = r.EndPass()
	_ = r.EndFrame()
	_ = r.Present()

	draws := headlessBackend(r).recordedDraws()
	if len(draws) != 1 || len(draws[0].bindGroups) != 1 || draws[0].pipeline != "post-process" {
		t.Fatalf("draws = %+v", draws)
	}
	if s := r.Stats(); s.Passes != 2 || s.OffscreenPasses != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestResizeRenderTargetBumpsGeneration(t *testing.T) {
	r := newHeadless(t)
	rt, _ := r.CreateRenderTarget("scene", 800, 600)
	old := rt.Texture()

	if err := r.ResizeRenderTarget(rt, 800, 600); err != nil || rt.Generation() != 0 {
		t.Fatalf("same size resize changed the target (gen %d, err %v)", rt.Generation(), err)
	}
	if err := r.ResizeRenderTarget(rt, 1024, 768); err != nil {
		t.Fatal(err)
	}
	if rt.Generation() != 1 || rt.Width() != 1024 || !old.Released() {
		t.Errorf("resize: gen=%d width=%d oldReleased=%v", rt.Generation(), rt.Width(), old.Released())
	}

	rt.Release()
	if r.Stats().RenderTargets != 0 {
		t.Error("render target count should drop on release")
	}
}

func TestWriteMaterialRebindsOnTextureChange(t *testing.T) {
	r := newHeadless(t)
	a, _ := r.CreateTexture("a", staging(4, 4), common.SamplerStagingData{})
	b, _ := r.CreateTexture("b", staging(8, 8), common.SamplerStagingData{})
	m := material.NewMaterial("tile", material.RoleBackground, material.WithTexture(a))
	_ = r.InitMaterial(m)
	gen := m.BindGroupProvider().BindGeneration()

	m.SetTexture(b)
	if err := r.WriteMaterial(m); err != nil {
		t.Fatal(err)
	}
	if m.BindGroupProvider().BindGeneration() != gen+1 || m.NeedsRebind() {
		t.Error("a texture change should rebuild the bind group exactly once")
	}
}

func TestDrawOutsidePassIsReported(t *testing.T) {
	r := newHeadless(t)
	tex, _ := r.CreateTexture("card", staging(4, 4), common.SamplerStagingData{})
	geom, _ := r.CreateGeometry("quad", quadVertices, quadIndices)
	m := material.NewMaterial("tile", material.RoleForeground, material.WithTexture(tex))
	_ = r.InitMaterial(m)

	if err := r.Draw(geom, m); err == nil {
		t.Fatal("expected an error drawing outside a pass")
	}
	geom.Release()
	_ = r.BeginFrame()
	_ = r.BeginPass(nil)
	if err := r.Draw(geom, m); err == nil {
		t.Error("expected an error drawing a released geometry")
	}
}

func TestReleaseIsFinal(t *testing.T) {
	r, err := NewRenderer(BackendTypeHeadless, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.Release()
	r.Release()
	if !r.Released() {
		t.Fatal("Released should report true")
	}
	if _, err := r.CreateGeometry("quad", quadVertices, quadIndices); !errors.Is(err, ErrRendererReleased) {
		t.Errorf("CreateGeometry after release = %v", err)
	}
	if err := r.BeginFrame(); !errors.Is(err, ErrRendererReleased) {
		t.Errorf("BeginFrame after release = %v", err)
	}
	var target resource.RenderTarget
	if err := r.BeginPass(target); !errors.Is(err, ErrRendererReleased) {
		t.Errorf("BeginPass after release = %v", err)
	}
}
