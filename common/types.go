// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// CardRecord is one content entry displayed on the tile wall.
// Records are supplied as an ordered sequence by an external content source and are treated as read-only.
type CardRecord struct {
	// Title is the card headline, also used to derive the card's navigation slug and its texture cache key.
	Title string `yaml:"title"`
	// Image is a URL or file path to the card artwork.
	Image string `yaml:"image"`
	// Description is a short blurb rendered uppercased in the top-right corner.
	Description string `yaml:"description"`
	// Client is the client name rendered in the top-left corner.
	Client string `yaml:"client"`
	// Tags are rendered as rounded pill badges along the bottom-left edge.
	Tags []string `yaml:"tags"`
	// Date is the display date string rendered bottom-right.
	Date string `yaml:"date"`
	// Badge is an optional highlight label, empty when unused.
	Badge string `yaml:"badge,omitempty"`
}

// DefaultCardRecord returns the placeholder record used when no card data is available.
//
// Returns:
//   - CardRecord: a record with a neutral title and no artwork
func DefaultCardRecord() CardRecord {
	return CardRecord{
		Title:  "Untitled",
		Client: "",
		Tags:   []string{},
	}
}

// Slug derives the URL-safe navigation key for the record from its title.
//
// Returns:
//   - string: the lowercase, hyphen-separated slug
func (c CardRecord) Slug() string {
	return Slugify(c.Title)
}

// TextureStagingData holds RGBA pixel data for a texture binding pending GPU upload.
type TextureStagingData struct {
	// Pixels is the base level pixel data in RGBA format, with 4 bytes per pixel, rows stored top-first.
	Pixels []byte
	// Width is the width of the base level in pixels.
	Width uint32
	// Height is the height of the base level in pixels.
	Height uint32
	// MipLevels holds the downsampled levels 1..n, each half the size of the previous level. May be empty.
	MipLevels [][]byte
}

// MipLevelCount returns the total number of mip levels including the base level.
//
// Returns:
//   - uint32: 1 + len(MipLevels)
func (t TextureStagingData) MipLevelCount() uint32 {
	return uint32(1 + len(t.MipLevels))
}

// ByteSize returns the total byte size of every level held by the staging data.
//
// Returns:
//   - uint64: the sum of the base and mip level sizes
func (t TextureStagingData) ByteSize() uint64 {
	total := uint64(len(t.Pixels))
	for _, lvl := range t.MipLevels {
		total += uint64(len(lvl))
	}
	return total
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}
