package grid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-tiles/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

type anchor struct {
	index int
	pos   mgl32.Vec3
}

func (a *anchor) Index() int           { return a.index }
func (a *anchor) Position() mgl32.Vec3 { return a.pos }

type recordingTracker struct {
	mu      sync.Mutex
	tracked map[resource.Kind][]resource.Releasable
}

func (r *recordingTracker) Track(kind resource.Kind, res resource.Releasable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tracked == nil {
		r.tracked = make(map[resource.Kind][]resource.Releasable)
	}
	r.tracked[kind] = append(r.tracked[kind], res)
}

type fixture struct {
	renderer renderer.Renderer
	textures texture.Generator
	tracker  *recordingTracker
	anchors  []*anchor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil, renderer.WithSize(640, 480))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterMaterials(material.NewRegistry()); err != nil {
		t.Fatal(err)
	}
	gen := texture.NewGenerator(r, texture.WithEdge(32), texture.WithWorkers(2))
	t.Cleanup(func() {
		gen.Close()
		r.Release()
	})

	f := &fixture{renderer: r, textures: gen, tracker: &recordingTracker{}}
	for i := 0; i < 9; i++ {
		f.anchors = append(f.anchors, &anchor{index: i, pos: mgl32.Vec3{float32(i%3-1) * 10, float32(1-i/3) * 10, 0}})
	}
	return f
}

func (f *fixture) groups() []GroupAnchor {
	out := make([]GroupAnchor, len(f.anchors))
	for i, a := range f.anchors {
		out[i] = a
	}
	return out
}

func (f *fixture) grid(cards []common.CardRecord, opts ...GridBuilderOption) Grid {
	return NewGrid(f.textures, f.renderer, f.tracker, cards, opts...)
}

// flakyFactory fails InitMaterial once after allow successful calls.
type flakyFactory struct {
	ResourceFactory
	allow  int
	failed bool
}

func (f *flakyFactory) InitMaterial(m material.Material) error {
	if !f.failed && f.allow == 0 {
		f.failed = true
		return errors.New("device lost")
	}
	f.allow--
	return f.ResourceFactory.InitMaterial(m)
}

func makeCards(n int, prefix string) []common.CardRecord {
	cards := make([]common.CardRecord, n)
	for i := range cards {
		cards[i] = common.CardRecord{Title: fmt.Sprintf("%s %d", prefix, i), Tags: []string{"tag"}}
	}
	return cards
}

func TestCardDataForTileIsCyclic(t *testing.T) {
	f := newFixture(t)
	for _, n := range []int{1, 2, 5, 7, 81, 100} {
		cards := makeCards(n, "card")
		g := f.grid(cards)
		for group := 0; group < 9; group++ {
			for tile := 0; tile < 9; tile++ {
				want := cards[(group*9+tile)%n]
				if got := g.CardDataForTile(group, tile); got.Title != want.Title {
					t.Fatalf("n=%d (%d,%d): got %q want %q", n, group, tile, got.Title, want.Title)
				}
			}
		}
	}
}

func TestCardDataForTileWithoutCards(t *testing.T) {
	f := newFixture(t)
	g := f.grid(nil)
	if got := g.CardDataForTile(4, 2); got.Title != common.DefaultCardRecord().Title {
		t.Errorf("got %+v, want the default record", got)
	}
	if err := g.Initialize(context.Background(), f.groups()); !errors.Is(err, ErrNoCards) {
		t.Errorf("Initialize without cards = %v", err)
	}
}

func TestFiveCardsEightyOneTiles(t *testing.T) {
	f := newFixture(t)
	g := f.grid(makeCards(5, "card"))
	if err := g.Initialize(context.Background(), f.groups()); err != nil {
		t.Fatal(err)
	}

	s := g.Stats()
	if s.TotalTiles != 81 || s.ForegroundMeshes != 81 || s.BackgroundMeshes != 81 {
		t.Errorf("stats = %+v", s)
	}
	if s.TotalTextures != 10 {
		t.Errorf("TotalTextures = %d, want 10", s.TotalTextures)
	}
	if f.textures.CacheLen() != 5 {
		t.Errorf("cached pairs = %d, want 5", f.textures.CacheLen())
	}

	distinct := make(map[resource.Texture]bool)
	for _, tile := range g.Tiles() {
		distinct[tile.Foreground().Texture()] = true
	}
	if len(distinct) != 5 {
		t.Errorf("distinct foreground textures = %d, want 5", len(distinct))
	}

	rs := f.renderer.Stats()
	if rs.Materials != 162 || rs.Geometries != 1 || rs.Textures != 10 {
		t.Errorf("renderer stats = %+v", rs)
	}
	if len(f.tracker.tracked[resource.KindMaterial]) != 162 || len(f.tracker.tracked[resource.KindGeometry]) != 1 {
		t.Error("every created resource must be tracked")
	}
	if s.EstimatedVRAMBytes == 0 {
		t.Error("VRAM estimate should count the textures")
	}
}

func TestTileMetadataAndLayout(t *testing.T) {
	f := newFixture(t)
	g := f.grid(makeCards(3, "card"), WithTileSize(2, 3), WithGap(0.5))
	if err := g.Initialize(context.Background(), f.groups()); err != nil {
		t.Fatal(err)
	}

	tile, ok := g.Tile("4-0")
	if !ok {
		t.Fatal("tile 4-0 missing")
	}
	if tile.GroupIndex() != 4 || tile.TileIndex() != 0 || tile.Key() != "4-0" {
		t.Errorf("metadata = %d %d %s", tile.GroupIndex(), tile.TileIndex(), tile.Key())
	}
	if tile.Local() != (mgl32.Vec3{-2.5, 3.5, 0}) {
		t.Errorf("top-left tile local = %v", tile.Local())
	}
	last, _ := g.Tile("4-8")
	if last.Local() != (mgl32.Vec3{2.5, -3.5, 0}) {
		t.Errorf("bottom-right tile local = %v", last.Local())
	}

	fg := tile.Foreground().Model().Col(3)
	bg := tile.Background().Model().Col(3)
	if fg.Z() != 0 || bg.Z() != BackgroundZ {
		t.Errorf("z: foreground %v background %v", fg.Z(), bg.Z())
	}
	if tile.Background().Opacity() != g.RestingOpacity() {
		t.Errorf("background starts at %v", tile.Background().Opacity())
	}
	if gw, gh := g.GroupSize(); gw != 7.5 || gh != 10.5 {
		t.Errorf("GroupSize = %v x %v", gw, gh)
	}
}

func TestUpdateCardDataRebindsWithoutNewMeshes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.grid(makeCards(5, "old"))
	if err := g.Initialize(ctx, f.groups()); err != nil {
		t.Fatal(err)
	}
	before := f.renderer.Stats()
	materials := make(map[string]material.Material)
	for _, tile := range g.Tiles() {
		materials[tile.Key()] = tile.Foreground()
	}

	next := makeCards(3, "new")
	if err := g.UpdateCardData(ctx, next); err != nil {
		t.Fatal(err)
	}
	if s := g.Stats(); s.TotalTextures != 6 || s.TotalTiles != 81 {
		t.Errorf("stats after update = %+v", s)
	}
	after := f.renderer.Stats()
	if after.GeometriesCreated != before.GeometriesCreated || after.Materials != before.Materials {
		t.Errorf("meshes recreated: before %+v after %+v", before, after)
	}

	for _, tile := range g.Tiles() {
		if materials[tile.Key()] != tile.Foreground() {
			t.Fatalf("tile %s got a new material", tile.Key())
		}
		card := next[(tile.GroupIndex()*9+tile.TileIndex())%3]
		want, err := f.textures.Foreground(ctx, card)
		if err != nil {
			t.Fatal(err)
		}
		if tile.Foreground().Texture() != want || tile.Foreground().NeedsRebind() {
			t.Fatalf("tile %s not rebound to %q", tile.Key(), card.Title)
		}
		if g.CardDataForTile(tile.GroupIndex(), tile.TileIndex()).Title != card.Title {
			t.Fatalf("tile %s resolves to the wrong card", tile.Key())
		}
	}
}

func TestUpdateCardDataErrors(t *testing.T) {
	f := newFixture(t)
	g := f.grid(makeCards(2, "a"))
	if err := g.UpdateCardData(context.Background(), makeCards(2, "b")); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("before Initialize = %v", err)
	}
	_ = g.Initialize(context.Background(), f.groups())
	if err := g.UpdateCardData(context.Background(), nil); !errors.Is(err, ErrNoCards) {
		t.Errorf("empty update = %v", err)
	}
}

func TestIntersectPicksNearestTile(t *testing.T) {
	f := newFixture(t)
	g := f.grid(makeCards(4, "card"))
	_ = g.Initialize(context.Background(), f.groups())

	// group 4 sits at the origin; tile 0 is its top-left slot
	tile, _ := g.Tile("4-0")
	c := tile.Local()
	hit, dist, ok := g.Intersect(common.Ray{Origin: mgl32.Vec3{c.X(), c.Y(), 5}, Direction: mgl32.Vec3{0, 0, -1}})
	if !ok || hit.Key() != "4-0" || dist != 5 {
		t.Errorf("hit = %v %v %v", hit, dist, ok)
	}

	// the gap between tiles is not interactive
	if _, _, ok := g.Intersect(common.Ray{Origin: mgl32.Vec3{0.55, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}}); ok {
		t.Error("a ray through the gap should miss")
	}
}

func TestSyncTransformsFollowsGroups(t *testing.T) {
	f := newFixture(t)
	g := f.grid(makeCards(4, "card"))
	_ = g.Initialize(context.Background(), f.groups())

	f.anchors[4].pos = mgl32.Vec3{100, -50, 0}
	g.SyncTransforms()
	tile, _ := g.Tile("4-4")
	pos := tile.Foreground().Model().Col(3)
	if pos.X() != 100 || pos.Y() != -50 {
		t.Errorf("centre tile at %v", pos)
	}
	if hit, _, ok := g.Intersect(common.Ray{Origin: mgl32.Vec3{100, -50, 5}, Direction: mgl32.Vec3{0, 0, -1}}); !ok || hit.Key() != "4-4" {
		t.Error("hit testing must follow the moved group")
	}
}

func TestFadeTileLastWriteWins(t *testing.T) {
	f := newFixture(t)
	g := f.grid(makeCards(2, "card"), WithFade(0.2, nil))
	_ = g.Initialize(context.Background(), f.groups())

	in, err := g.FadeTile("0-0", 1)
	if err != nil {
		t.Fatal(err)
	}
	g.Update(0.1)
	tile, _ := g.Tile("0-0")
	mid := tile.Background().Opacity()
	if mid <= g.RestingOpacity() || mid >= 1 {
		t.Errorf("mid-fade opacity = %v", mid)
	}

	out, _ := g.FadeTile("0-0", 0)
	if !in.Cancelled() {
		t.Error("a new fade must cancel the running one")
	}
	g.Update(0.3)
	if !out.Done() || tile.Background().Opacity() != 0 {
		t.Errorf("opacity after fade out = %v", tile.Background().Opacity())
	}

	if _, err := g.FadeTile("9-9", 1); !errors.Is(err, ErrUnknownTile) {
		t.Errorf("unknown tile = %v", err)
	}
	if err := g.SetTileOpacity("0-0", 0.5); err != nil || tile.Background().Opacity() != 0.5 {
		t.Errorf("SetTileOpacity: %v, opacity %v", err, tile.Background().Opacity())
	}
}

func TestClearDropsTiles(t *testing.T) {
	f := newFixture(t)
	g := f.grid(makeCards(2, "card"))
	_ = g.Initialize(context.Background(), f.groups())
	g.Clear()
	if g.Initialized() || len(g.Tiles()) != 0 || g.Stats().TotalTiles != 0 {
		t.Error("Clear must drop every tile")
	}
	if err := g.Initialize(context.Background(), f.groups()); err != nil {
		t.Errorf("reinitialize after Clear: %v", err)
	}
}

func TestFailedInitializeCanBeRetried(t *testing.T) {
	f := newFixture(t)
	factory := &flakyFactory{ResourceFactory: f.renderer, allow: 20}
	g := NewGrid(f.textures, factory, f.tracker, makeCards(5, "card"))

	if err := g.Initialize(context.Background(), f.groups()); err == nil {
		t.Fatal("Initialize should fail when a material cannot be created")
	}
	if g.Initialized() || len(g.Tiles()) != 0 {
		t.Fatalf("failed Initialize kept %d tiles", len(g.Tiles()))
	}
	if st := f.renderer.Stats(); st.Materials != 0 || st.Geometries != 0 {
		t.Errorf("failed Initialize leaked resources: %+v", st)
	}

	if err := g.Initialize(context.Background(), f.groups()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	want := 9 * g.TilesPerGroup()
	if n := len(g.Tiles()); n != want {
		t.Errorf("tiles after retry = %d, want %d", n, want)
	}
	if st := f.renderer.Stats(); st.Materials != 2*want {
		t.Errorf("materials after retry = %d, want %d", st.Materials, 2*want)
	}
}
