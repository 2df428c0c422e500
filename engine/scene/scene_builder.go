package scene

import (
	"github.com/Carmen-Shannon/oxy-tiles/engine/disposal"
	"github.com/Carmen-Shannon/oxy-tiles/engine/input"
	"github.com/Carmen-Shannon/oxy-tiles/engine/profiler"
	"github.com/Carmen-Shannon/oxy-tiles/engine/texture"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithOptions replaces the whole configuration.
//
// Parameters:
//   - o: the options, usually DefaultOptions() overlaid with a config file
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithOptions(o Options) SceneBuilderOption {
	return func(s *scene) {
		s.opts = o
	}
}

// WithLayout sets the tile columns and rows of every group.
func WithLayout(columns, rows int) SceneBuilderOption {
	return func(s *scene) {
		s.opts.Columns = columns
		s.opts.Rows = rows
	}
}

// WithPostProcessing toggles the offscreen pass and the post-process stage.
//
// Parameters:
//   - enabled: false renders straight to the screen and never allocates the offscreen target
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPostProcessing(enabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.opts.PostProcessing = enabled
	}
}

// WithInputSource attaches the handler to src on Initialize. Disposal detaches it.
//
// Parameters:
//   - src: usually the window
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithInputSource(src input.InputSource) SceneBuilderOption {
	return func(s *scene) {
		s.source = src
	}
}

// WithActivation sets the callback receiving the card of a clicked tile.
func WithActivation(fn input.ActivationFunc) SceneBuilderOption {
	return func(s *scene) {
		s.activate = fn
	}
}

// WithSurfaceCloser sets the function that destroys the surface (usually the window's Close)
// as the last step of disposal.
func WithSurfaceCloser(closer func()) SceneBuilderOption {
	return func(s *scene) {
		s.surfaceCloser = closer
	}
}

// WithTextureOptions passes extra options to the texture generator, applied after the ones
// derived from Options.
//
// Parameters:
//   - opts: generator options (e.g. texture.WithLoader)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithTextureOptions(opts ...texture.GeneratorBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.textureOptions = append(s.textureOptions, opts...)
	}
}

// WithErrorReporter sets the reporter for frame errors. By default the scene creates one that
// appends renderer statistics.
func WithErrorReporter(reporter *profiler.ErrorReporter) SceneBuilderOption {
	return func(s *scene) {
		s.reporter = reporter
	}
}

// WithDisposalManager makes the scene track its resources in m instead of a manager of its own.
func WithDisposalManager(m disposal.Manager) SceneBuilderOption {
	return func(s *scene) {
		if m != nil {
			s.disposal = m
		}
	}
}
