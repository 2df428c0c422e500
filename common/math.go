package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// WebGPUClipCorrection remaps OpenGL-style clip space depth [-1, 1] produced by mgl32 projections
// into the [0, 1] depth range expected by WebGPU. Pre-multiply a projection matrix with it.
var WebGPUClipCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// Clamp restricts v to the closed range [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp linearly interpolates between a and b by t.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// SmoothStep performs Hermite interpolation between 0 and 1 when edge0 < x < edge1,
// matching the WGSL smoothstep builtin.
//
// Parameters:
//   - edge0: lower edge of the transition
//   - edge1: upper edge of the transition
//   - x: the value to evaluate
//
// Returns:
//   - float32: 0 below edge0, 1 above edge1, and a smooth curve in between
func SmoothStep(edge0, edge1, x float32) float32 {
	if edge1 == edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// Sign returns -1, 0 or +1 depending on the sign of v.
// Values within epsilon of zero are treated as zero.
func Sign(v, epsilon float32) int {
	switch {
	case v > epsilon:
		return 1
	case v < -epsilon:
		return -1
	default:
		return 0
	}
}

// Ray is a half-line in world space.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// RayFromScreen builds a world-space ray passing through the given pixel.
// The pixel origin is the top-left of the framebuffer, matching window cursor coordinates.
//
// Parameters:
//   - px, py: pointer position in pixels
//   - width, height: framebuffer size in pixels
//   - viewProj: the combined view-projection matrix (WebGPU depth range)
//
// Returns:
//   - Ray: the ray from the near plane towards the far plane
//   - bool: false if the framebuffer is empty or the matrix is not invertible
func RayFromScreen(px, py float32, width, height int, viewProj mgl32.Mat4) (Ray, bool) {
	if width <= 0 || height <= 0 {
		return Ray{}, false
	}
	if viewProj.Det() == 0 {
		return Ray{}, false
	}
	inv := viewProj.Inv()

	ndcX := 2*px/float32(width) - 1
	ndcY := 1 - 2*py/float32(height)

	near := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, 0, 1})
	far := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
	if near.W() == 0 || far.W() == 0 {
		return Ray{}, false
	}
	n := near.Vec3().Mul(1 / near.W())
	f := far.Vec3().Mul(1 / far.W())

	dir := f.Sub(n)
	if dir.Len() == 0 {
		return Ray{}, false
	}
	return Ray{Origin: n, Direction: dir.Normalize()}, true
}

// IntersectRect tests the ray against an axis-aligned rectangle lying in a plane of constant Z.
//
// Parameters:
//   - center: the rectangle centre; its Z component defines the plane
//   - halfWidth, halfHeight: half extents along X and Y
//
// Returns:
//   - float32: distance along the ray to the hit point
//   - bool: true if the ray hits the rectangle in front of its origin
func (r Ray) IntersectRect(center mgl32.Vec3, halfWidth, halfHeight float32) (float32, bool) {
	if float32(math.Abs(float64(r.Direction.Z()))) < 1e-6 {
		return 0, false
	}
	t := (center.Z() - r.Origin.Z()) / r.Direction.Z()
	if t < 0 {
		return 0, false
	}
	hit := r.Origin.Add(r.Direction.Mul(t))
	if float32(math.Abs(float64(hit.X()-center.X()))) > halfWidth {
		return 0, false
	}
	if float32(math.Abs(float64(hit.Y()-center.Y()))) > halfHeight {
		return 0, false
	}
	return t, true
}
