package texture

import "golang.org/x/text/language"

// GeneratorBuilderOption is a functional option applied to a generator during construction via NewGenerator.
type GeneratorBuilderOption func(*generator)

// WithEdge sets the canvas edge length in pixels. A non-positive edge makes every generation
// fail with ErrRasterUnavailable.
//
// Parameters:
//   - edge: the canvas edge
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the edge option to a generator
func WithEdge(edge int) GeneratorBuilderOption {
	return func(g *generator) {
		g.edge = edge
	}
}

// WithLoader replaces the default URLLoader.
//
// Parameters:
//   - loader: the image loader
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the loader option to a generator
func WithLoader(loader ImageLoader) GeneratorBuilderOption {
	return func(g *generator) {
		if loader != nil {
			g.loader = loader
		}
	}
}

// WithWorkers sets the number of rasterization workers.
//
// Parameters:
//   - workers: worker count, clamped to at least 1
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the workers option to a generator
func WithWorkers(workers int) GeneratorBuilderOption {
	return func(g *generator) {
		g.workers = max(workers, 1)
	}
}

// WithMipmaps toggles the CPU mip chain. Enabled by default.
//
// Parameters:
//   - enabled: false to upload only level 0
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the mipmap option to a generator
func WithMipmaps(enabled bool) GeneratorBuilderOption {
	return func(g *generator) {
		g.mipmaps = enabled
	}
}

// WithLanguage sets the language whose casing rules uppercase card descriptions.
//
// Parameters:
//   - lang: the language tag
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the language option to a generator
func WithLanguage(lang language.Tag) GeneratorBuilderOption {
	return func(g *generator) {
		g.lang = lang
	}
}
