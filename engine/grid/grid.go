// Package grid owns the tile wall layout: nine tile groups of cols x rows slots, the two quads
// drawn for every slot, and the cyclic projection of card records onto slots.
package grid

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/animation"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-tiles/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrNoCards is returned when the grid is initialized or updated with an empty card list.
	ErrNoCards = errors.New("grid: no card data")

	// ErrNotInitialized is returned by operations that need the tiles before Initialize ran.
	ErrNotInitialized = errors.New("grid: not initialized")

	// ErrUnknownTile is returned for a tile key that does not exist.
	ErrUnknownTile = errors.New("grid: unknown tile")
)

// BackgroundZ is the depth offset of the background quad behind its foreground quad.
const BackgroundZ = -0.01

// unit quad centred on the origin, uv (0,0) at the top-left
var (
	quadVertices = []float32{
		-0.5, 0.5, 0, 0, 0,
		0.5, 0.5, 0, 1, 0,
		0.5, -0.5, 0, 1, 1,
		-0.5, -0.5, 0, 0, 1,
	}
	quadIndices = []uint32{0, 2, 1, 0, 3, 2}
)

// TextureSource generates the texture pairs of the card records.
type TextureSource interface {
	GenerateAll(ctx context.Context, cards []common.CardRecord) ([]texture.Pair, error)
	Placeholder() (resource.Texture, error)
	CacheLen() int
}

// ResourceFactory creates and uploads the GPU side of tiles.
type ResourceFactory interface {
	CreateGeometry(label string, vertices []float32, indices []uint32) (resource.Geometry, error)
	InitMaterial(m material.Material) error
	WriteMaterial(m material.Material) error
}

// Tracker receives every GPU resource the grid creates so teardown can release it.
type Tracker interface {
	Track(kind resource.Kind, r resource.Releasable)
}

// Stats are diagnostic counters of a grid.
type Stats struct {
	TotalTiles         int
	ForegroundMeshes   int
	BackgroundMeshes   int
	TotalTextures      int
	CachedTextures     int
	EstimatedVRAMBytes uint64
}

type grid struct {
	mu *sync.Mutex

	textures TextureSource
	factory  ResourceFactory
	tracker  Tracker
	timeline *animation.Timeline

	columns, rows         int
	tileWidth, tileHeight float32
	gap                   float32
	backgroundOpacity     float32
	hoverOpacity          float32
	blurRadius            float32
	fadeDuration          float32
	fadeEasing            animation.Easing

	cards       []common.CardRecord
	pairs       []texture.Pair
	quad        resource.Geometry
	groups      []GroupAnchor
	tiles       map[string]*Tile
	order       []*Tile
	initialized bool
}

// Grid manages the tiles of the wall.
type Grid interface {
	// Initialize generates the texture pair of every card, then creates a background and a
	// foreground quad for every slot of every group. Texture generation is joined before any
	// tile is created.
	//
	// Parameters:
	//   - ctx: cancels image fetches
	//   - groups: the positioned tile groups
	//
	// Returns:
	//   - error: ErrNoCards, or a generation or GPU error
	Initialize(ctx context.Context, groups []GroupAnchor) error

	// Initialized reports whether the tiles exist.
	Initialized() bool

	// Cards returns the current card records.
	Cards() []common.CardRecord

	// CardDataForTile returns cards[(group*tilesPerGroup + tile) mod len(cards)], or
	// common.DefaultCardRecord() when there are no cards.
	CardDataForTile(group, tile int) common.CardRecord

	// UpdateCardData generates the textures of a new card list and rebinds every tile to the
	// newly mapped pair. Meshes are kept.
	UpdateCardData(ctx context.Context, cards []common.CardRecord) error

	// Stats returns the diagnostic counters.
	Stats() Stats

	// Columns returns the tile columns per group.
	Columns() int

	// Rows returns the tile rows per group.
	Rows() int

	// TilesPerGroup returns columns * rows.
	TilesPerGroup() int

	// TileSize returns the world-space width and height of one tile.
	TileSize() (float32, float32)

	// Spacing returns the centre-to-centre distance of neighbouring tiles.
	Spacing() (float32, float32)

	// GroupSize returns the world-space footprint of one group, gaps included.
	GroupSize() (float32, float32)

	// Tile returns the tile with the given key.
	Tile(key string) (*Tile, bool)

	// Tiles returns every tile, background draw order first.
	Tiles() []*Tile

	// Quad returns the geometry shared by every tile quad.
	Quad() resource.Geometry

	// SyncTransforms rewrites the model matrix of every tile from its group position.
	SyncTransforms()

	// Intersect returns the nearest foreground tile hit by ray.
	//
	// Returns:
	//   - *Tile: the hit tile
	//   - float32: the distance along the ray
	//   - bool: false if nothing was hit
	Intersect(ray common.Ray) (*Tile, float32, bool)

	// SetTileOpacity sets the background opacity of a tile immediately, cancelling its fade.
	SetTileOpacity(key string, opacity float32) error

	// FadeTile eases the background opacity of a tile toward target. A running fade of the
	// same tile is cancelled first.
	//
	// Returns:
	//   - *animation.Tween: the fade
	//   - error: ErrUnknownTile
	FadeTile(key string, target float32) (*animation.Tween, error)

	// HoverOpacity returns the background opacity of a hovered tile.
	HoverOpacity() float32

	// RestingOpacity returns the background opacity of a tile that is not hovered.
	RestingOpacity() float32

	// Update advances running fades by dt seconds.
	Update(dt float32)

	// Clear drops every tile and cancels running fades. GPU resources are left to the tracker.
	Clear()
}

var _ Grid = &grid{}

// NewGrid creates a Grid.
//
// Parameters:
//   - textures: the texture generator (must not be nil)
//   - factory: the renderer (must not be nil)
//   - tracker: receives every created resource (must not be nil)
//   - cards: the initial card records
//   - options: functional options
//
// Returns:
//   - Grid: the grid
func NewGrid(textures TextureSource, factory ResourceFactory, tracker Tracker, cards []common.CardRecord, options ...GridBuilderOption) Grid {
	if textures == nil || factory == nil || tracker == nil {
		panic("grid: NewGrid requires a texture source, a resource factory and a tracker")
	}
	g := &grid{
		mu:                &sync.Mutex{},
		textures:          textures,
		factory:           factory,
		tracker:           tracker,
		timeline:          animation.NewTimeline(),
		columns:           3,
		rows:              3,
		tileWidth:         1,
		tileHeight:        1,
		gap:               0.1,
		backgroundOpacity: 0.02,
		hoverOpacity:      1,
		blurRadius:        4,
		fadeDuration:      0.3,
		fadeEasing:        animation.EaseOutQuad,
		cards:             append([]common.CardRecord(nil), cards...),
		tiles:             make(map[string]*Tile),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *grid) Columns() int       { return g.columns }
func (g *grid) Rows() int          { return g.rows }
func (g *grid) TilesPerGroup() int { return g.columns * g.rows }

func (g *grid) TileSize() (float32, float32) {
	return g.tileWidth, g.tileHeight
}

func (g *grid) Spacing() (float32, float32) {
	return g.tileWidth + g.gap, g.tileHeight + g.gap
}

func (g *grid) GroupSize() (float32, float32) {
	sx, sy := g.Spacing()
	return float32(g.columns) * sx, float32(g.rows) * sy
}

func (g *grid) HoverOpacity() float32   { return g.hoverOpacity }
func (g *grid) RestingOpacity() float32 { return g.backgroundOpacity }

// localPosition centres the cols x rows block on the group origin.
func (g *grid) localPosition(tile int) mgl32.Vec3 {
	sx, sy := g.Spacing()
	startX := -float32(g.columns-1) * sx / 2
	startY := float32(g.rows-1) * sy / 2
	col, row := tile%g.columns, tile/g.columns
	return mgl32.Vec3{startX + float32(col)*sx, startY - float32(row)*sy, 0}
}

func (g *grid) Initialized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initialized
}

func (g *grid) Cards() []common.CardRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]common.CardRecord(nil), g.cards...)
}

// cardIndex is the cyclic projection of a slot onto the card list.
func cardIndex(group, tile, tilesPerGroup, n int) int {
	idx := (group*tilesPerGroup + tile) % n
	if idx < 0 {
		idx += n
	}
	return idx
}

func (g *grid) CardDataForTile(group, tile int) common.CardRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.cards) == 0 {
		return common.DefaultCardRecord()
	}
	return g.cards[cardIndex(group, tile, g.TilesPerGroup(), len(g.cards))]
}

// pairFor returns the pair bound to a slot, falling back to the placeholder for missing pairs.
func (g *grid) pairFor(group, tile int) (texture.Pair, error) {
	if len(g.pairs) > 0 {
		p := g.pairs[cardIndex(group, tile, g.TilesPerGroup(), len(g.pairs))]
		if !p.Released() {
			return p, nil
		}
	}
	ph, err := g.textures.Placeholder()
	if err != nil {
		return texture.Pair{}, err
	}
	return texture.Pair{Foreground: ph, Background: ph}, nil
}

func (g *grid) Initialize(ctx context.Context, groups []GroupAnchor) error {
	g.mu.Lock()
	cards := g.cards
	initialized := g.initialized
	g.mu.Unlock()
	if initialized {
		return errors.New("grid: already initialized")
	}
	if len(cards) == 0 {
		return ErrNoCards
	}

	pairs, err := g.textures.GenerateAll(ctx, cards)
	if err != nil {
		return fmt.Errorf("grid: generate textures: %w", err)
	}

	quad, err := g.factory.CreateGeometry("Tile Quad", quadVertices, quadIndices)
	if err != nil {
		return fmt.Errorf("grid: create tile quad: %w", err)
	}
	g.tracker.Track(resource.KindGeometry, quad)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.pairs = pairs
	g.quad = quad
	g.groups = append([]GroupAnchor(nil), groups...)

	for _, anchor := range g.groups {
		gi := anchor.Index()
		for ti := 0; ti < g.TilesPerGroup(); ti++ {
			t, err := g.createTile(gi, ti, anchor.Position())
			if err != nil {
				g.discardLocked()
				return err
			}
			g.tiles[t.key] = t
			g.order = append(g.order, t)
		}
	}
	g.initialized = true
	log.Printf("[Grid] initialized %d groups, %d tiles, %d cards", len(g.groups), len(g.order), len(cards))
	return nil
}

// discardLocked releases the tiles and quad of a failed Initialize so a retry starts empty.
// Caller holds g.mu.
func (g *grid) discardLocked() {
	for _, t := range g.order {
		t.background.Release()
		t.foreground.Release()
	}
	if g.quad != nil {
		g.quad.Release()
	}
	g.tiles = make(map[string]*Tile)
	g.order = nil
	g.pairs = nil
	g.groups = nil
	g.quad = nil
}

// createTile builds both quads of a slot. The background is created first so it draws behind.
func (g *grid) createTile(group, tile int, origin mgl32.Vec3) (*Tile, error) {
	pair, err := g.pairFor(group, tile)
	if err != nil {
		return nil, fmt.Errorf("grid: tile %s: %w", TileKey(group, tile), err)
	}
	t := &Tile{
		groupIndex: group,
		tileIndex:  tile,
		key:        TileKey(group, tile),
		local:      g.localPosition(tile),
	}

	t.background = material.NewMaterial("tile "+t.key+" background", material.RoleBackground,
		material.WithTexture(pair.Background),
		material.WithOpacity(g.backgroundOpacity),
		material.WithBlurRadius(g.blurRadius),
		material.WithModel(g.model(origin, t.local, BackgroundZ)),
	)
	if err := g.factory.InitMaterial(t.background); err != nil {
		t.background.Release()
		return nil, fmt.Errorf("grid: tile %s background: %w", t.key, err)
	}
	g.tracker.Track(resource.KindMaterial, t.background)

	t.foreground = material.NewMaterial("tile "+t.key, material.RoleForeground,
		material.WithTexture(pair.Foreground),
		material.WithModel(g.model(origin, t.local, 0)),
	)
	if err := g.factory.InitMaterial(t.foreground); err != nil {
		t.foreground.Release()
		return nil, fmt.Errorf("grid: tile %s foreground: %w", t.key, err)
	}
	g.tracker.Track(resource.KindMaterial, t.foreground)
	return t, nil
}

// model places a unit quad at origin+local. The background quad sits at BackgroundZ and bleeds
// into the surrounding gap so the hover layer frames the card.
func (g *grid) model(origin, local mgl32.Vec3, z float32) mgl32.Mat4 {
	p := origin.Add(local)
	w, h := g.tileWidth, g.tileHeight
	if z == BackgroundZ {
		w, h = g.Spacing()
	}
	return mgl32.Translate3D(p.X(), p.Y(), p.Z()+z).Mul4(mgl32.Scale3D(w, h, 1))
}

func (g *grid) UpdateCardData(ctx context.Context, cards []common.CardRecord) error {
	if !g.Initialized() {
		return ErrNotInitialized
	}
	if len(cards) == 0 {
		return ErrNoCards
	}
	cards = append([]common.CardRecord(nil), cards...)
	pairs, err := g.textures.GenerateAll(ctx, cards)
	if err != nil {
		return fmt.Errorf("grid: regenerate textures: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.initialized {
		return ErrNotInitialized
	}
	g.cards = cards
	g.pairs = pairs
	var errs error
	for _, t := range g.order {
		pair, err := g.pairFor(t.groupIndex, t.tileIndex)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		t.foreground.SetTexture(pair.Foreground)
		t.background.SetTexture(pair.Background)
		errs = errors.Join(errs, g.factory.WriteMaterial(t.foreground), g.factory.WriteMaterial(t.background))
	}
	if errs != nil {
		return fmt.Errorf("grid: rebind tiles: %w", errs)
	}
	return nil
}

func (g *grid) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := Stats{
		TotalTiles:       len(g.order),
		ForegroundMeshes: len(g.order),
		BackgroundMeshes: len(g.order),
		TotalTextures:    2 * len(g.pairs),
		CachedTextures:   2 * g.textures.CacheLen(),
	}
	seen := make(map[texture.Pair]bool, len(g.pairs))
	for _, p := range g.pairs {
		if !seen[p] {
			seen[p] = true
			s.EstimatedVRAMBytes += p.ByteSize()
		}
	}
	if g.quad != nil {
		s.EstimatedVRAMBytes += g.quad.ByteSize()
	}
	return s
}

func (g *grid) Tile(key string) (*Tile, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tiles[key]
	return t, ok
}

func (g *grid) Tiles() []*Tile {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Tile(nil), g.order...)
}

func (g *grid) Quad() resource.Geometry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.quad
}

func (g *grid) groupPositions() map[int]mgl32.Vec3 {
	out := make(map[int]mgl32.Vec3, len(g.groups))
	for _, a := range g.groups {
		out[a.Index()] = a.Position()
	}
	return out
}

func (g *grid) SyncTransforms() {
	g.mu.Lock()
	defer g.mu.Unlock()
	positions := g.groupPositions()
	for _, t := range g.order {
		origin := positions[t.groupIndex]
		t.foreground.SetModel(g.model(origin, t.local, 0))
		t.background.SetModel(g.model(origin, t.local, BackgroundZ))
	}
}

func (g *grid) Intersect(ray common.Ray) (*Tile, float32, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	positions := g.groupPositions()
	var best *Tile
	var bestT float32
	for _, t := range g.order {
		center := positions[t.groupIndex].Add(t.local)
		if d, ok := ray.IntersectRect(center, g.tileWidth/2, g.tileHeight/2); ok && (best == nil || d < bestT) {
			best, bestT = t, d
		}
	}
	return best, bestT, best != nil
}

func fadeKey(key string) string {
	return "fade:" + key
}

func (g *grid) SetTileOpacity(key string, opacity float32) error {
	t, ok := g.Tile(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTile, key)
	}
	g.timeline.Cancel(fadeKey(key))
	t.background.SetOpacity(opacity)
	return nil
}

func (g *grid) FadeTile(key string, target float32) (*animation.Tween, error) {
	t, ok := g.Tile(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTile, key)
	}
	bg := t.background
	tw := animation.NewTween([]float32{bg.Opacity()}, []float32{target}, g.fadeDuration, 0, g.fadeEasing, func(v []float32) {
		bg.SetOpacity(v[0])
	})
	return g.timeline.Play(fadeKey(key), tw), nil
}

func (g *grid) Update(dt float32) {
	g.timeline.Update(dt)
}

func (g *grid) Clear() {
	g.timeline.Clear()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tiles = make(map[string]*Tile)
	g.order = nil
	g.pairs = nil
	g.groups = nil
	g.quad = nil
	g.initialized = false
}
