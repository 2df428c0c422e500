package grid

import "github.com/Carmen-Shannon/oxy-tiles/engine/animation"

// GridBuilderOption is a functional option applied to a grid during construction via NewGrid.
type GridBuilderOption func(*grid)

// WithLayout sets the number of tile columns and rows per group. Values below 1 are raised to 1.
//
// Parameters:
//   - columns: tiles per group row
//   - rows: tiles per group column
//
// Returns:
//   - GridBuilderOption: a function that applies the layout option to a grid
func WithLayout(columns, rows int) GridBuilderOption {
	return func(g *grid) {
		g.columns = max(columns, 1)
		g.rows = max(rows, 1)
	}
}

// WithTileSize sets the world-space size of one tile.
//
// Parameters:
//   - width, height: the tile size
//
// Returns:
//   - GridBuilderOption: a function that applies the tile size option to a grid
func WithTileSize(width, height float32) GridBuilderOption {
	return func(g *grid) {
		if width > 0 {
			g.tileWidth = width
		}
		if height > 0 {
			g.tileHeight = height
		}
	}
}

// WithGap sets the world-space gap between neighbouring tiles.
func WithGap(gap float32) GridBuilderOption {
	return func(g *grid) {
		g.gap = max(gap, 0)
	}
}

// WithBackgroundOpacity sets the resting and hovered opacity of the background layer.
//
// Parameters:
//   - resting: opacity of tiles that are not hovered, near zero
//   - hovered: opacity of the hovered tile
//
// Returns:
//   - GridBuilderOption: a function that applies the opacity option to a grid
func WithBackgroundOpacity(resting, hovered float32) GridBuilderOption {
	return func(g *grid) {
		g.backgroundOpacity = min(max(resting, 0), 1)
		g.hoverOpacity = min(max(hovered, 0), 1)
	}
}

// WithBlurRadius sets the shader blur radius of the background layer in texels.
func WithBlurRadius(texels float32) GridBuilderOption {
	return func(g *grid) {
		g.blurRadius = max(texels, 0)
	}
}

// WithFade sets the duration and easing of hover fades.
//
// Parameters:
//   - seconds: fade duration
//   - easing: easing curve (nil keeps the default)
//
// Returns:
//   - GridBuilderOption: a function that applies the fade option to a grid
func WithFade(seconds float32, easing animation.Easing) GridBuilderOption {
	return func(g *grid) {
		g.fadeDuration = max(seconds, 0)
		if easing != nil {
			g.fadeEasing = easing
		}
	}
}
