package postprocess

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-tiles/engine/animation"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/material"
)

func newTestStage(t *testing.T, opts ...StageBuilderOption) (Stage, renderer.Renderer) {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil, renderer.WithSize(320, 240))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterMaterials(material.NewRegistry()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Release)
	s, err := NewStage(r, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Release)
	return s, r
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestDistortUVStaysInBounds(t *testing.T) {
	coords := []float32{0, 0.001, 0.25, 0.5, 0.75, 0.999, 1}
	for _, intensity := range []float32{-50, -1, -0.12, 0, 0.5, 10, 1000} {
		for _, u := range coords {
			for _, v := range coords {
				su, sv := DistortUV(u, v, intensity)
				if su < 0 || su > 1 || sv < 0 || sv > 1 {
					t.Fatalf("DistortUV(%v, %v, %v) = (%v, %v) out of bounds", u, v, intensity, su, sv)
				}
			}
		}
	}
}

func TestDistortUVDirection(t *testing.T) {
	if u, v := DistortUV(0.5, 0.5, -1); u != 0.5 || v != 0.5 {
		t.Errorf("centre moved to (%v, %v)", u, v)
	}
	if u, _ := DistortUV(0.8, 0.5, -0.5); u >= 0.8 {
		t.Errorf("negative intensity should pull samples toward the centre, got u=%v", u)
	}
	if u, _ := DistortUV(0.8, 0.5, 0.5); u <= 0.8 {
		t.Errorf("positive intensity should push samples outward, got u=%v", u)
	}
}

func TestVignetteFactor(t *testing.T) {
	p := DefaultParams()
	if f := VignetteFactor(0.5, 0.5, p.VignetteOffset, p.VignetteDarkness); f != 1 {
		t.Errorf("centre factor = %v", f)
	}
	if f := VignetteFactor(0, 0, 0.2, 0.6); f != 0 {
		t.Errorf("corner past darkness = %v", f)
	}
	edge := VignetteFactor(1, 0.5, p.VignetteOffset, p.VignetteDarkness)
	if edge <= 0 || edge >= 1 {
		t.Errorf("edge factor = %v, want partial darkening", edge)
	}
}

func TestSampleCoordInsideImage(t *testing.T) {
	p := Params{Distortion: 25, VignetteOffset: 0.4, VignetteDarkness: 1}
	for _, px := range []float32{0, 1, 319, 320} {
		x, y := SampleCoord(px, 0, 320, 240, p)
		if x < 0 || x > 320 || y < 0 || y > 240 {
			t.Errorf("SampleCoord(%v, 0) = (%v, %v)", px, x, y)
		}
	}
}

func TestDefaultsAreRestingLook(t *testing.T) {
	s, _ := newTestStage(t)
	if s.Params() != DefaultParams() {
		t.Errorf("Params = %+v, want resting defaults", s.Params())
	}
	if got := s.Material().PostParams(); got != DefaultParams().uniform() {
		t.Errorf("initial uniform = %v", got)
	}
	if !s.Enabled() {
		t.Error("stage should be enabled by default")
	}
}

func TestRenderRequiresBind(t *testing.T) {
	s, r := newTestStage(t)
	if err := s.Render(); !errors.Is(err, ErrNotBound) {
		t.Fatalf("Render before Bind = %v", err)
	}

	rt, _ := r.CreateRenderTarget("scene", 320, 240)
	if err := s.Bind(rt.Texture()); err != nil {
		t.Fatal(err)
	}
	_ = r.BeginFrame()
	_ = r.BeginPass(nil)
	if err := s.Render(); err != nil {
		t.Fatal(err)
	}
	_ = r.EndPass()
	_ = r.EndFrame()
	if st := r.Stats(); st.DrawCalls != 1 || st.Triangles != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRebindAfterResize(t *testing.T) {
	s, r := newTestStage(t)
	rt, _ := r.CreateRenderTarget("scene", 320, 240)
	_ = s.Bind(rt.Texture())
	gen := s.Material().BindGroupProvider().BindGeneration()

	_ = r.ResizeRenderTarget(rt, 640, 480)
	if err := s.Bind(rt.Texture()); err != nil {
		t.Fatal(err)
	}
	if s.Material().Texture() != rt.Texture() {
		t.Error("stage should sample the resized color attachment")
	}
	if s.Material().BindGroupProvider().BindGeneration() <= gen {
		t.Error("bind group should be rebuilt")
	}
}

func TestSettersPushUniform(t *testing.T) {
	s, r := newTestStage(t)
	rt, _ := r.CreateRenderTarget("scene", 320, 240)
	_ = s.Bind(rt.Texture())

	if err := s.SetDistortion(-0.4); err != nil {
		t.Fatal(err)
	}
	if err := s.SetVignette(0.3, 0.9); err != nil {
		t.Fatal(err)
	}
	want := [4]float32{-0.4, 0.3, 0.9, 0}
	if s.Material().PostParams() != want {
		t.Errorf("uniform = %v, want %v", s.Material().PostParams(), want)
	}
	if s.Material().Dirty() {
		t.Error("setters should upload immediately")
	}

	_ = s.SetVignette(0.8, 0.2)
	if p := s.Params(); p.VignetteDarkness <= p.VignetteOffset {
		t.Errorf("darkness must stay past offset: %+v", p)
	}
}

func TestAnimateInterpolatesInLockstep(t *testing.T) {
	s, _ := newTestStage(t)
	from := s.Params()
	target := Params{Distortion: 0, VignetteOffset: 1, VignetteDarkness: 2}
	tw := s.Animate(target, 1, 0, animation.Linear)

	s.Update(0.5)
	p := s.Params()
	if !approx(p.Distortion, (from.Distortion+target.Distortion)/2) ||
		!approx(p.VignetteOffset, (from.VignetteOffset+target.VignetteOffset)/2) ||
		!approx(p.VignetteDarkness, (from.VignetteDarkness+target.VignetteDarkness)/2) {
		t.Errorf("halfway params = %+v", p)
	}
	if s.Material().PostParams()[0] != p.Distortion {
		t.Error("every step must reach the uniform")
	}

	s.Update(0.6)
	if !tw.Done() || s.Params() != target || s.Animating() {
		t.Errorf("animation did not settle: %+v", s.Params())
	}
}

func TestAnimateLastWriteWins(t *testing.T) {
	s, _ := newTestStage(t)
	first := s.Animate(Params{Distortion: 1, VignetteOffset: 0.5, VignetteDarkness: 1}, 1, 0, nil)
	second := s.Animate(Params{Distortion: -1, VignetteOffset: 0.5, VignetteDarkness: 1}, 1, 0, nil)
	s.Update(2)
	if !first.Cancelled() || !second.Done() {
		t.Error("a new animation must cancel the running one")
	}
	if s.Params().Distortion != -1 {
		t.Errorf("distortion = %v", s.Params().Distortion)
	}

	third := s.Animate(DefaultParams(), 1, 0, nil)
	_ = s.SetParams(Params{Distortion: 0.2, VignetteOffset: 0.1, VignetteDarkness: 0.5})
	if !third.Cancelled() {
		t.Error("SetParams must cancel a running animation")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	s, r := newTestStage(t)
	rt, _ := r.CreateRenderTarget("scene", 320, 240)
	_ = s.Bind(rt.Texture())
	tw := s.Animate(Params{}, 1, 0, nil)

	s.Release()
	s.Release()
	if !tw.Cancelled() || !s.Material().Released() || !s.Geometry().Released() {
		t.Error("Release must cancel animations and free the material and triangle")
	}
	if err := s.Render(); !errors.Is(err, ErrNotBound) {
		t.Errorf("Render after Release = %v", err)
	}
	if st := r.Stats(); st.Materials != 0 || st.Geometries != 0 {
		t.Errorf("leaked resources: %+v", st)
	}
}

func TestCallsAfterReleaseFail(t *testing.T) {
	s, r := newTestStage(t)
	rt, _ := r.CreateRenderTarget("scene", 320, 240)
	if err := s.Bind(rt.Texture()); err != nil {
		t.Fatal(err)
	}
	before := s.Params()
	s.Release()

	if !s.Released() {
		t.Fatal("Released should report true")
	}
	if err := s.SetDistortion(0.5); !errors.Is(err, ErrReleased) {
		t.Errorf("SetDistortion after Release = %v", err)
	}
	if err := s.SetVignette(0.1, 0.9); !errors.Is(err, ErrReleased) {
		t.Errorf("SetVignette after Release = %v", err)
	}
	if err := s.SetParams(DefaultParams()); !errors.Is(err, ErrReleased) {
		t.Errorf("SetParams after Release = %v", err)
	}
	if err := s.Bind(rt.Texture()); !errors.Is(err, ErrReleased) {
		t.Errorf("Bind after Release = %v", err)
	}
	if tw := s.Animate(Params{Distortion: 1}, 1, 0, nil); tw != nil {
		t.Error("Animate after Release should not start a tween")
	}
	if s.Params() != before {
		t.Errorf("params changed after Release: %+v", s.Params())
	}
}

func TestWithOptions(t *testing.T) {
	custom := Params{Distortion: 0.3, VignetteOffset: 0.2, VignetteDarkness: 0.7}
	s, _ := newTestStage(t, WithParams(custom), WithEnabled(false))
	if s.Enabled() || s.Params() != custom {
		t.Errorf("options not applied: enabled=%v params=%+v", s.Enabled(), s.Params())
	}
}
