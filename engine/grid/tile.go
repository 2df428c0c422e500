package grid

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// Tile is one slot of a tile group: a foreground and a background quad sharing the same
// position. Its identity never changes after creation; only the textures and uniforms bound to
// its materials do.
type Tile struct {
	groupIndex int
	tileIndex  int
	key        string
	local      mgl32.Vec3

	foreground material.Material
	background material.Material
}

// TileKey formats the stable key of the slot (group, tile).
//
// Parameters:
//   - group: the group index
//   - tile: the tile index inside the group
//
// Returns:
//   - string: "{group}-{tile}"
func TileKey(group, tile int) string {
	return fmt.Sprintf("%d-%d", group, tile)
}

// GroupIndex returns the index of the group the tile belongs to.
func (t *Tile) GroupIndex() int { return t.groupIndex }

// TileIndex returns the index of the tile inside its group.
func (t *Tile) TileIndex() int { return t.tileIndex }

// Key returns the stable "{group}-{tile}" key.
func (t *Tile) Key() string { return t.key }

// Local returns the tile centre relative to its group origin.
func (t *Tile) Local() mgl32.Vec3 { return t.local }

// Foreground returns the material of the content layer.
func (t *Tile) Foreground() material.Material { return t.foreground }

// Background returns the material of the hover-reveal layer.
func (t *Tile) Background() material.Material { return t.background }

// GroupAnchor is a tile group as positioned by the scene.
type GroupAnchor interface {
	// Index returns the group index in [0, 8].
	Index() int

	// Position returns the current world-space origin of the group.
	Position() mgl32.Vec3
}
