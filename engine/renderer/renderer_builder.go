package renderer

import (
	"github.com/Carmen-Shannon/oxy-tiles/engine/profiler"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithSize sets the initial surface size. Only meaningful for the headless backend; the wgpu
// backend takes its size from the surface source.
//
// Parameters:
//   - width, height: the size in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the size option to a renderer
func WithSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		if width > 0 && height > 0 {
			r.width, r.height = width, height
		}
	}
}

// WithMaxAnisotropy sets the anisotropy the headless backend reports.
//
// Parameters:
//   - anisotropy: the reported maximum, clamped to at least 1
//
// Returns:
//   - RendererBuilderOption: a function that applies the anisotropy option to a renderer
func WithMaxAnisotropy(anisotropy uint16) RendererBuilderOption {
	return func(r *renderer) {
		r.headlessAnisotropy = max(anisotropy, 1)
	}
}

// WithErrorReporter routes backend errors through the given reporter instead of a default one.
//
// Parameters:
//   - reporter: the error reporter
//
// Returns:
//   - RendererBuilderOption: a function that applies the reporter option to a renderer
func WithErrorReporter(reporter *profiler.ErrorReporter) RendererBuilderOption {
	return func(r *renderer) {
		r.reporter = reporter
	}
}

// WithClearColor sets the color every pass is cleared to.
//
// Parameters:
//   - rgba: red, green, blue and alpha in [0, 1]
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(rgba [4]float64) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = wgpu.Color{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}
	}
}
