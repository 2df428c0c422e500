package texture

import (
	"image"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"golang.org/x/image/draw"
)

// toRGBA copies any image into a tightly packed *image.RGBA whose origin is (0, 0).
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	if rgba, ok := src.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(dst, image.Point{}, src, b, draw.Src, nil)
	return dst
}

// MipChain builds the downsampled levels 1..n of base, each half the size of the previous one
// (never below 1 texel) until a 1x1 level is reached.
//
// Parameters:
//   - base: level 0
//
// Returns:
//   - []*image.RGBA: levels 1..n, empty for a 1x1 base
func MipChain(base *image.RGBA) []*image.RGBA {
	var levels []*image.RGBA
	prev := base
	w, h := base.Bounds().Dx(), base.Bounds().Dy()
	for w > 1 || h > 1 {
		w, h = max(1, w/2), max(1, h/2)
		next := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(next, next.Bounds(), prev, prev.Bounds(), draw.Src, nil)
		levels = append(levels, next)
		prev = next
	}
	return levels
}

// stagingData converts a raster into upload-ready staging data with its full mip chain.
// Rows stay top-first.
//
// Parameters:
//   - img: the base level
//   - mipmaps: false to upload a single level
//
// Returns:
//   - common.TextureStagingData: the staging data
func stagingData(img image.Image, mipmaps bool) common.TextureStagingData {
	base := toRGBA(img)
	data := common.TextureStagingData{
		Pixels: base.Pix,
		Width:  uint32(base.Bounds().Dx()),
		Height: uint32(base.Bounds().Dy()),
	}
	if mipmaps {
		for _, lvl := range MipChain(base) {
			data.MipLevels = append(data.MipLevels, lvl.Pix)
		}
	}
	return data
}
