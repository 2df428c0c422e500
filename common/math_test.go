package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func approx(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

func TestSmoothStep(t *testing.T) {
	tests := []struct {
		name  string
		e0    float32
		e1    float32
		x     float32
		want  float32
		exact bool
	}{
		{"below", 0.2, 0.8, 0.0, 0, true},
		{"above", 0.2, 0.8, 1.0, 1, true},
		{"midpoint", 0, 1, 0.5, 0.5, false},
		{"degenerate below", 0.5, 0.5, 0.4, 0, true},
		{"degenerate above", 0.5, 0.5, 0.6, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SmoothStep(tt.e0, tt.e1, tt.x)
			if !approx(got, tt.want, 1e-6) {
				t.Errorf("SmoothStep(%v, %v, %v) = %v, want %v", tt.e0, tt.e1, tt.x, got, tt.want)
			}
		})
	}
}

func TestSign(t *testing.T) {
	if Sign(0.5, 1e-6) != 1 || Sign(-0.5, 1e-6) != -1 || Sign(1e-9, 1e-6) != 0 {
		t.Error("Sign returned an unexpected value")
	}
}

func TestClampAndLerp(t *testing.T) {
	if Clamp(-1, 0, 1) != 0 || Clamp(2, 0, 1) != 1 || Clamp(0.3, 0, 1) != 0.3 {
		t.Error("Clamp returned an unexpected value")
	}
	if Lerp(2, 4, 0.5) != 3 {
		t.Errorf("Lerp(2, 4, 0.5) = %v, want 3", Lerp(2, 4, 0.5))
	}
}

func testViewProj() mgl32.Mat4 {
	proj := WebGPUClipCorrection.Mul4(mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100))
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 6}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	return proj.Mul4(view)
}

func TestRayFromScreenCenterHitsOrigin(t *testing.T) {
	ray, ok := RayFromScreen(50, 50, 100, 100, testViewProj())
	if !ok {
		t.Fatal("RayFromScreen returned !ok for a valid matrix")
	}
	dist, hit := ray.IntersectRect(mgl32.Vec3{0, 0, 0}, 0.5, 0.5)
	if !hit {
		t.Fatal("centre ray should hit a rect at the origin")
	}
	// the ray starts on the near plane, 0.1 in front of the eye at z=6
	if !approx(dist, 6-0.1, 0.05) {
		t.Errorf("hit distance = %v, want ~5.9", dist)
	}
}

func TestRayFromScreenCornerMissesSmallRect(t *testing.T) {
	ray, ok := RayFromScreen(0, 0, 100, 100, testViewProj())
	if !ok {
		t.Fatal("RayFromScreen returned !ok")
	}
	if _, hit := ray.IntersectRect(mgl32.Vec3{0, 0, 0}, 0.5, 0.5); hit {
		t.Error("corner ray should not hit a small rect at the origin")
	}
	// The top-left pixel points up and to the left.
	if ray.Direction.X() >= 0 || ray.Direction.Y() <= 0 {
		t.Errorf("unexpected direction %v for the top-left pixel", ray.Direction)
	}
}

func TestRayFromScreenRejectsEmptyViewport(t *testing.T) {
	if _, ok := RayFromScreen(0, 0, 0, 10, testViewProj()); ok {
		t.Error("expected !ok for a zero-width framebuffer")
	}
}

func TestIntersectRectBehindOrigin(t *testing.T) {
	r := Ray{Origin: mgl32.Vec3{0, 0, 1}, Direction: mgl32.Vec3{0, 0, 1}}
	if _, hit := r.IntersectRect(mgl32.Vec3{0, 0, 0}, 1, 1); hit {
		t.Error("a rect behind the ray origin must not be hit")
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World":        "hello-world",
		"  Brand -- Refresh ": "brand-refresh",
		"Café 2024!":         "café-2024",
		"!!!":                "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce(0, 0, 3, 4); got != 3 {
		t.Errorf("Coalesce = %d, want 3", got)
	}
	if got := Coalesce("", ""); got != "" {
		t.Errorf("Coalesce = %q, want empty", got)
	}
}

func TestStagingByteSize(t *testing.T) {
	s := TextureStagingData{Pixels: make([]byte, 16), Width: 2, Height: 2, MipLevels: [][]byte{make([]byte, 4)}}
	if s.MipLevelCount() != 2 {
		t.Errorf("MipLevelCount = %d, want 2", s.MipLevelCount())
	}
	if s.ByteSize() != 20 {
		t.Errorf("ByteSize = %d, want 20", s.ByteSize())
	}
}
