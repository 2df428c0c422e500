package scene

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/camera"
	"github.com/Carmen-Shannon/oxy-tiles/engine/grid"
	"github.com/Carmen-Shannon/oxy-tiles/engine/postprocess"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-2

func near(a, b, tol float32) bool {
	return math.Abs(float64(a-b)) <= float64(tol)
}

func makeCards(n int) []common.CardRecord {
	cards := make([]common.CardRecord, n)
	for i := range cards {
		cards[i] = common.CardRecord{Title: fmt.Sprintf("Project %d", i), Tags: []string{"tag"}}
	}
	return cards
}

type fixture struct {
	scene    Scene
	renderer renderer.Renderer
	closed   *int
}

func newFixture(t *testing.T, cards []common.CardRecord, opts ...SceneBuilderOption) fixture {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil, renderer.WithSize(1280, 720))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	t.Cleanup(r.Release)

	o := DefaultOptions()
	o.TextureSize = 32
	o.Workers = 2
	closed := 0
	opts = append([]SceneBuilderOption{
		WithOptions(o),
		WithSurfaceCloser(func() { closed++ }),
	}, opts...)
	s := NewScene(r, camera.NewCamera(), cards, opts...)
	t.Cleanup(s.Dispose)
	return fixture{scene: s, renderer: r, closed: &closed}
}

func (f fixture) init(t *testing.T) {
	t.Helper()
	if err := f.scene.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func TestFrameRoutesThroughPostProcess(t *testing.T) {
	f := newFixture(t, makeCards(5))
	f.init(t)
	if err := f.scene.Frame(1.0 / 60); err != nil {
		t.Fatalf("Frame: %v", err)
	}

	st := f.renderer.Stats()
	if st.DrawCalls != 81*2+1 || st.Passes != 2 || st.OffscreenPasses != 1 {
		t.Errorf("stats = %+v, want 163 draws in 2 passes", st)
	}
	if st.RenderTargets != 1 {
		t.Errorf("render targets = %d", st.RenderTargets)
	}
	rt := f.scene.Target()
	if rt == nil || rt.Width() != 1280 || rt.Height() != 720 {
		t.Fatalf("target = %v, want 1280x720", rt)
	}
	if f.scene.PostProcess().Material().Texture() != rt.Texture() {
		t.Error("post-process must sample the scene target")
	}
}

func TestFrameWithoutPostProcessDrawsDirect(t *testing.T) {
	f := newFixture(t, makeCards(5), WithPostProcessing(false))
	f.init(t)
	if err := f.scene.Frame(1.0 / 60); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	st := f.renderer.Stats()
	if st.DrawCalls != 162 || st.Passes != 1 || st.OffscreenPasses != 0 {
		t.Errorf("stats = %+v, want 162 draws in one screen pass", st)
	}
	if f.scene.Target() != nil || f.scene.PostProcess() != nil || st.RenderTargets != 0 {
		t.Error("disabled post-processing must not allocate a target or stage")
	}
}

func TestFrameBeforeInitializeIsNoop(t *testing.T) {
	f := newFixture(t, makeCards(3))
	if err := f.scene.Frame(0.016); err != nil {
		t.Errorf("Frame = %v", err)
	}
	if err := f.scene.Tick(0.016); err != nil {
		t.Errorf("Tick = %v", err)
	}
	if f.renderer.Stats().Frames != 0 {
		t.Error("nothing should render before Initialize")
	}
}

func TestInitializeWithoutCardsFails(t *testing.T) {
	f := newFixture(t, nil)
	err := f.scene.Initialize(context.Background())
	if !errors.Is(err, grid.ErrNoCards) {
		t.Errorf("Initialize = %v, want ErrNoCards", err)
	}
}

// checkGroups asserts the wraparound invariant: every group lies within half a span of the
// origin, columns and rows stay rigid, and the groups cover one group size around the centre.
func checkGroups(t *testing.T, s Scene) {
	t.Helper()
	gw, gh := s.Grid().GroupSize()
	span := mgl32.Vec2{gw * groupsPerAxis, gh * groupsPerAxis}
	pos := s.GroupPositions()
	if len(pos) != 9 {
		t.Fatalf("got %d groups", len(pos))
	}

	var xs, ys []float32
	for i, p := range pos {
		if p.X() < -span.X()/2-eps || p.X() > span.X()/2+eps || p.Y() < -span.Y()/2-eps || p.Y() > span.Y()/2+eps {
			t.Fatalf("group %d at %v outside span %v", i, p, span)
		}
		col, row := i%groupsPerAxis, i/groupsPerAxis
		if !near(p.X(), pos[col].X(), eps) || !near(p.Y(), pos[row*groupsPerAxis].Y(), eps) {
			t.Fatalf("group %d at %v broke its row or column", i, p)
		}
		if row == 0 {
			xs = append(xs, p.X())
		}
		if col == 0 {
			ys = append(ys, p.Y())
		}
	}
	for _, axis := range []struct {
		name string
		vals []float32
		size float32
	}{{"x", xs, gw}, {"y", ys, gh}} {
		sort.Slice(axis.vals, func(i, j int) bool { return axis.vals[i] < axis.vals[j] })
		for i := 1; i < len(axis.vals); i++ {
			if !near(axis.vals[i]-axis.vals[i-1], axis.size, eps) {
				t.Fatalf("%s positions %v are not contiguous", axis.name, axis.vals)
			}
		}
		lo := axis.vals[0] - axis.size/2
		hi := axis.vals[len(axis.vals)-1] + axis.size/2
		if lo > -axis.size+eps || hi < axis.size-eps {
			t.Fatalf("%s coverage [%v, %v] misses [-%v, %v]", axis.name, lo, hi, axis.size, axis.size)
		}
	}
}

func TestWraparoundHoldsUnderHugeDeltas(t *testing.T) {
	f := newFixture(t, makeCards(4))
	f.init(t)
	checkGroups(t, f.scene)

	deltas := []mgl32.Vec2{
		{0.3, 0}, {-5, 2}, {1000, 0}, {0, -777.7}, {-12345.6, 4321}, {0.01, -0.01}, {250, 250}, {-3, -3},
	}
	for _, d := range deltas {
		if err := f.scene.ScrollBy(d.X(), d.Y()); err != nil {
			t.Fatal(err)
		}
		checkGroups(t, f.scene)
		if err := f.scene.Frame(1.0 / 60); err != nil {
			t.Fatalf("Frame after %v: %v", d, err)
		}
		checkGroups(t, f.scene)
	}
}

func TestInertiaScrollKeepsInvariantAndSettles(t *testing.T) {
	f := newFixture(t, makeCards(4))
	f.init(t)
	if err := f.scene.SetVelocity(mgl32.Vec2{55, -40}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 600; i++ {
		if err := f.scene.Tick(1.0 / 60); err != nil {
			t.Fatal(err)
		}
		if err := f.scene.Frame(1.0 / 60); err != nil {
			t.Fatal(err)
		}
		checkGroups(t, f.scene)
	}
	if v := f.scene.Stats().Velocity; v.Len() != 0 {
		t.Errorf("velocity = %v, want settled", v)
	}
}

func TestWrapAxis(t *testing.T) {
	tests := []struct {
		name string
		p    float32
		dir  int
		want float32
	}{
		{"inside", 1, -1, 0},
		{"negative edge", -5, -1, 0},
		{"past negative side", -5.5, -1, 10},
		{"far past negative side", -35.5, -1, 40},
		{"past positive side", 6, 1, -10},
		{"far past positive side", 1006, 1, -1010},
		{"positive side ignored moving negative", 6, -1, 0},
		{"negative side ignored moving positive", -6, 1, 0},
		{"neutral checks both", -6, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapAxis(tt.p, 10, tt.dir); got != tt.want {
				t.Errorf("wrapAxis(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestCoverage(t *testing.T) {
	if !covers(4, 3, 1, 1, 3.5, 3) {
		t.Error("2+1 <= 3.5 should cover")
	}
	if covers(6, 3, 1, 1, 3.5, 3) {
		t.Error("3+1 > 3.5 should not cover")
	}

	f := newFixture(t, makeCards(2))
	f.init(t)
	if !f.scene.CoverageOK() {
		t.Error("default options should cover a 16:9 view")
	}
	if err := f.scene.Resize(4000, 500); err != nil {
		t.Fatal(err)
	}
	if f.scene.CoverageOK() {
		t.Error("an 8:1 view should not be covered by the default layout")
	}
}

func TestResizeResizesAndRebindsTarget(t *testing.T) {
	f := newFixture(t, makeCards(3))
	f.init(t)
	rt := f.scene.Target()
	gen := rt.Generation()

	if err := f.scene.Resize(640, 480); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if rt.Width() != 640 || rt.Height() != 480 || rt.Generation() == gen {
		t.Errorf("target = %dx%d gen %d", rt.Width(), rt.Height(), rt.Generation())
	}
	if w, h := f.renderer.Size(); w != 640 || h != 480 {
		t.Errorf("surface = %dx%d", w, h)
	}
	if f.scene.PostProcess().Material().Texture() != rt.Texture() {
		t.Error("post-process input was not rebound after resize")
	}
	if !near(f.scene.Camera().Aspect(), 640.0/480.0, 1e-4) {
		t.Errorf("aspect = %v", f.scene.Camera().Aspect())
	}
	if err := f.scene.Frame(0.016); err != nil {
		t.Fatalf("Frame after resize: %v", err)
	}
	if err := f.scene.Resize(0, 0); err != nil {
		t.Error("a minimized window should be ignored")
	}
}

func TestClickActivatesCardUnderPointer(t *testing.T) {
	cards := makeCards(7)
	var got []common.CardRecord
	f := newFixture(t, cards, WithActivation(func(c common.CardRecord) { got = append(got, c) }))
	f.init(t)

	// the centre pixel looks at tile 4 of group 4
	hit, ok := f.scene.Pick(640, 360)
	if !ok || hit.Key != "4-4" {
		t.Fatalf("Pick = %+v, %v", hit, ok)
	}
	in := f.scene.Input()
	in.PointerDown(640, 360)
	in.PointerMove(642, 361)
	in.PointerUp(642, 361)
	if len(got) != 1 || got[0].Title != cards[40%7].Title {
		t.Fatalf("activated %v, want %q", got, cards[40%7].Title)
	}

	in.PointerDown(640, 360)
	in.PointerMove(690, 360)
	in.PointerUp(640, 360)
	if len(got) != 1 {
		t.Error("a drag must not activate")
	}
}

func TestDisposeTwiceAndValidate(t *testing.T) {
	f := newFixture(t, makeCards(5))
	f.init(t)
	cancelled := 0
	f.scene.Start(schedulerFunc(func(tick, frame func(float32) error) func() {
		return func() { cancelled++ }
	}))
	for i := 0; i < 3; i++ {
		if err := f.scene.Frame(0.016); err != nil {
			t.Fatal(err)
		}
	}

	f.scene.Dispose()
	f.scene.Dispose()

	if r := f.scene.ValidateDisposal(); !r.OK() {
		t.Fatalf("ValidateDisposal = %s", r)
	}
	if cancelled != 1 || *f.closed != 1 {
		t.Errorf("cancelled=%d closed=%d, want 1 each", cancelled, *f.closed)
	}
	if !f.renderer.Released() {
		t.Error("renderer should be released")
	}
	st := f.renderer.Stats()
	if st.Materials != 0 || st.Geometries != 0 || st.Textures != 0 || st.RenderTargets != 0 {
		t.Errorf("leaked GPU resources: %+v", st)
	}
	if f.scene.Grid().Stats().TotalTiles != 0 {
		t.Error("tiles should be cleared")
	}

	if err := f.scene.Frame(0.016); !errors.Is(err, ErrDisposed) {
		t.Errorf("Frame after dispose = %v", err)
	}
	if err := f.scene.Initialize(context.Background()); !errors.Is(err, ErrDisposed) {
		t.Errorf("Initialize after dispose = %v", err)
	}
	if err := f.scene.ScrollBy(1, 1); !errors.Is(err, ErrDisposed) {
		t.Errorf("ScrollBy after dispose = %v", err)
	}
	if err := f.scene.Resize(10, 10); !errors.Is(err, ErrDisposed) {
		t.Errorf("Resize after dispose = %v", err)
	}
}

func TestPostProcessUnavailableAfterDispose(t *testing.T) {
	f := newFixture(t, makeCards(5))
	f.init(t)
	post := f.scene.PostProcess()
	f.scene.Dispose()

	if f.scene.PostProcess() != nil {
		t.Error("PostProcess should be nil after Dispose")
	}
	if err := post.SetDistortion(0.5); !errors.Is(err, postprocess.ErrReleased) {
		t.Errorf("SetDistortion on a disposed scene's stage = %v", err)
	}
}

func TestStartAfterDisposeDoesNotSchedule(t *testing.T) {
	f := newFixture(t, makeCards(5))
	f.init(t)
	f.scene.Dispose()

	scheduled := 0
	f.scene.Start(schedulerFunc(func(tick, frame func(float32) error) func() {
		scheduled++
		return func() {}
	}))
	if scheduled != 0 {
		t.Errorf("Start after Dispose scheduled %d times", scheduled)
	}
	if r := f.scene.ValidateDisposal(); r.LoopRunning || !r.OK() {
		t.Errorf("ValidateDisposal = %s", r)
	}
}

type schedulerFunc func(tick, frame func(float32) error) func()

func (f schedulerFunc) Schedule(tick, frame func(float32) error) func() { return f(tick, frame) }

func TestPartialCleanupKeepsTargetAndReinitializes(t *testing.T) {
	f := newFixture(t, makeCards(5))
	f.init(t)
	if err := f.scene.PostProcess().SetDistortion(-0.3); err != nil {
		t.Fatal(err)
	}
	rt := f.scene.Target()

	if err := f.scene.PartialCleanup(); err != nil {
		t.Fatal(err)
	}
	st := f.renderer.Stats()
	if st.Materials != 0 || st.Geometries != 0 || st.Textures != 0 {
		t.Errorf("partial cleanup left %+v", st)
	}
	if st.RenderTargets != 1 || rt.Released() || f.renderer.Released() {
		t.Error("partial cleanup must keep the target and the renderer")
	}
	if f.scene.Initialized() {
		t.Error("scene should need reinitialization")
	}

	if err := f.scene.Reinitialize(context.Background()); err != nil {
		t.Fatalf("Reinitialize: %v", err)
	}
	if f.scene.Target() != rt {
		t.Error("the render target should be reused")
	}
	if d := f.scene.PostProcess().Params().Distortion; !near(d, -0.3, 1e-6) {
		t.Errorf("distortion = %v, want it carried over", d)
	}
	if err := f.scene.Frame(0.016); err != nil {
		t.Fatal(err)
	}
	if st := f.renderer.Stats(); st.DrawCalls != 163 || st.Materials != 163 {
		t.Errorf("stats after reinit = %+v", st)
	}

	// reinitializing a live scene cleans up first
	if err := f.scene.Reinitialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if st := f.renderer.Stats(); st.Materials != 163 || st.Geometries != 2 {
		t.Errorf("stats after second reinit = %+v", st)
	}
}

func TestFailedFrameIsClosed(t *testing.T) {
	f := newFixture(t, makeCards(2))
	f.init(t)
	f.scene.Target().Release()

	for i := 0; i < 2; i++ {
		err := f.scene.Frame(0.016)
		if err == nil {
			t.Fatal("drawing into a released target should fail")
		}
		if strings.Contains(err.Error(), "not yet presented") {
			t.Fatalf("frame %d left the previous frame open: %v", i, err)
		}
	}
}

func TestUpdateCardDataRequiresInitialize(t *testing.T) {
	f := newFixture(t, makeCards(2))
	if err := f.scene.UpdateCardData(context.Background(), makeCards(3)); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("UpdateCardData = %v", err)
	}
	f.init(t)
	if err := f.scene.UpdateCardData(context.Background(), makeCards(3)); err != nil {
		t.Fatal(err)
	}
	if got := f.scene.Stats().Grid.TotalTextures; got != 6 {
		t.Errorf("total textures = %d, want 6", got)
	}
}

func TestTextureOptionsReachGenerator(t *testing.T) {
	f := newFixture(t, makeCards(1), WithTextureOptions(texture.WithEdge(0)))
	if err := f.scene.Initialize(context.Background()); !errors.Is(err, texture.ErrRasterUnavailable) {
		t.Errorf("Initialize = %v, want ErrRasterUnavailable", err)
	}
}

func TestDefaultOptionsPostParams(t *testing.T) {
	o := DefaultOptions()
	if o.PostParams() != postprocess.DefaultParams() {
		t.Errorf("PostParams = %+v", o.PostParams())
	}
	if o.hoverEasing()(0.5) == 0.5 {
		t.Error("quad-out should not be linear")
	}
}
