package material

import (
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/resource"
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithTexture is an option builder that sets the texture sampled by the material.
//
// Parameters:
//   - tex: the texture to sample
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithTexture(tex resource.Texture) MaterialBuilderOption {
	return func(m *material) {
		m.setTextureLocked(tex)
	}
}

// WithOpacity is an option builder that sets the initial opacity, clamped to [0,1].
//
// Parameters:
//   - opacity: the initial opacity
//
// Returns:
//   - MaterialBuilderOption: a function that applies the opacity option to a material
func WithOpacity(opacity float32) MaterialBuilderOption {
	return func(m *material) {
		m.tile.Params[0] = min(max(opacity, 0), 1)
	}
}

// WithModel is an option builder that sets the initial model matrix.
func WithModel(model mgl32.Mat4) MaterialBuilderOption {
	return func(m *material) {
		m.tile.Model = model
	}
}

// WithBlurRadius is an option builder that sets the background blur radius in texels.
func WithBlurRadius(texels float32) MaterialBuilderOption {
	return func(m *material) {
		m.tile.Params[1] = max(texels, 0)
	}
}

// WithFlipV is an option builder that flips the v texture coordinate.
func WithFlipV(flip bool) MaterialBuilderOption {
	return func(m *material) {
		if flip {
			m.tile.Params[3] = 1
		}
	}
}

// WithPostParams is an option builder that sets the post-process uniform vector.
func WithPostParams(p [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.post.Params = p
	}
}
