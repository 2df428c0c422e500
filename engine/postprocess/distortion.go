package postprocess

import (
	"math"

	"github.com/Carmen-Shannon/oxy-tiles/common"
)

// DistortUV applies the radial lens displacement of the post-process shader to a screen UV.
// Negative intensity pinches toward the centre, positive bulges outward. The result is clamped
// into [0,1] on both axes so the texture fetch never reads outside the input image.
//
// Parameters:
//   - u, v: the output pixel's UV in [0,1]
//   - intensity: the distortion intensity
//
// Returns:
//   - float32, float32: the clamped sample coordinate
func DistortUV(u, v, intensity float32) (float32, float32) {
	cx, cy := u-0.5, v-0.5
	k := 1 + (cx*cx+cy*cy)*intensity
	return common.Clamp(cx*k+0.5, 0, 1), common.Clamp(cy*k+0.5, 0, 1)
}

// VignetteFactor returns the brightness multiplier at a screen UV: 1 inside offset, 0 beyond
// darkness, smooth in between. Distance is measured from the centre and scaled so the edge
// midpoints sit at 1.
//
// Parameters:
//   - u, v: the pixel's UV in [0,1]
//   - offset: distance where darkening starts
//   - darkness: distance where darkening is complete
//
// Returns:
//   - float32: the multiplier in [0,1]
func VignetteFactor(u, v, offset, darkness float32) float32 {
	cx, cy := float64(u-0.5), float64(v-0.5)
	dist := float32(math.Sqrt(cx*cx+cy*cy)) * 2
	return 1 - common.SmoothStep(offset, darkness, dist)
}

// SampleCoord maps an output pixel to the input texel the stage samples for it.
//
// Parameters:
//   - px, py: pixel coordinates in the output
//   - width, height: output size in pixels
//   - p: the stage parameters
//
// Returns:
//   - float32, float32: the sample position in input pixels, always inside the image
func SampleCoord(px, py float32, width, height int, p Params) (float32, float32) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	w, h := float32(width), float32(height)
	u, v := DistortUV(px/w, py/h, p.Distortion)
	return u * w, v * h
}
