// Package scene drives the tile wall: it owns the camera view of the nine tile groups, wraps
// groups around as the wall scrolls, renders every frame (through the post-process stage when
// enabled) and tears everything down through the disposal manager.
package scene

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/camera"
	"github.com/Carmen-Shannon/oxy-tiles/engine/disposal"
	"github.com/Carmen-Shannon/oxy-tiles/engine/grid"
	"github.com/Carmen-Shannon/oxy-tiles/engine/input"
	"github.com/Carmen-Shannon/oxy-tiles/engine/postprocess"
	"github.com/Carmen-Shannon/oxy-tiles/engine/profiler"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-tiles/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrDisposed is returned by every operation on a disposed scene.
	ErrDisposed = errors.New("scene: disposed")

	// ErrNotInitialized is returned by operations that need Initialize to have run.
	ErrNotInitialized = errors.New("scene: not initialized")
)

// Scheduler runs the tick and frame callbacks of a scene. The returned cancel function stops
// both; a cancelled client never receives another call.
type Scheduler interface {
	Schedule(tick, frame func(dt float32) error) (cancel func())
}

// Stats is a diagnostic snapshot of the wall.
type Stats struct {
	Renderer       renderer.Stats
	Grid           grid.Stats
	Scroll         mgl32.Vec2
	Velocity       mgl32.Vec2
	PostProcessing bool
	CoverageOK     bool
}

type scene struct {
	mu *sync.Mutex

	opts     Options
	renderer renderer.Renderer
	camera   camera.Camera
	textures texture.Generator
	grid     grid.Grid
	post     postprocess.Stage
	target   resource.RenderTarget
	boundGen int
	disposal disposal.Manager
	reporter *profiler.ErrorReporter

	scroll  *input.ScrollState
	handler input.Handler
	source  input.InputSource

	anchors []*groupAnchor
	span    mgl32.Vec2

	textureOptions []texture.GeneratorBuilderOption
	surfaceCloser  func()
	activate       input.ActivationFunc

	attached    bool
	initialized bool
	disposed    bool
	coverageOK  bool
}

// Scene is the render driver of the tile wall.
type Scene interface {
	// Initialize builds the tiles, the post-process stage and its render target, sizes the camera
	// to the framebuffer and attaches the input source.
	//
	// Parameters:
	//   - ctx: cancels image fetches during texture generation
	//
	// Returns:
	//   - error: ErrDisposed, grid.ErrNoCards, or a generation or GPU error
	Initialize(ctx context.Context) error

	// Initialized reports whether the tiles exist.
	Initialized() bool

	// Start registers Tick and Frame with sched. Disposal cancels the registration.
	Start(sched Scheduler)

	// Tick advances inertia, hover fades and post-process animation by dt seconds.
	Tick(dt float32) error

	// Frame wraps the groups, syncs the tile transforms and renders one frame. Panics are
	// recovered and returned as errors so a bad frame never stops the loop. Before Initialize
	// the call is a no-op.
	Frame(dt float32) error

	// UpdatePositions wraps the tile groups around the current scroll offset and records the
	// offset as the last seen one.
	UpdatePositions()

	// Resize resizes the surface, the camera and the offscreen target, and rebinds the
	// post-process input.
	Resize(width, height int) error

	// ScrollBy moves the wall by (dx, dy) world units.
	ScrollBy(dx, dy float32) error

	// SetVelocity starts inertial scrolling.
	SetVelocity(v mgl32.Vec2) error

	// UpdateCardData replaces the card records and rebinds every tile.
	UpdateCardData(ctx context.Context, cards []common.CardRecord) error

	// OnActivate sets the callback receiving the card of a clicked tile.
	OnActivate(fn input.ActivationFunc)

	// Pick returns the foreground tile under a framebuffer pixel.
	Pick(x, y float32) (input.Hit, bool)

	// PostProcess returns the post-process stage, nil while post-processing is disabled or before
	// Initialize.
	PostProcess() postprocess.Stage

	// Target returns the offscreen render target, nil while post-processing is disabled.
	Target() resource.RenderTarget

	// Grid returns the grid manager.
	Grid() grid.Grid

	// Camera returns the camera.
	Camera() camera.Camera

	// Input returns the interaction handler.
	Input() input.Handler

	// Disposal returns the disposal manager.
	Disposal() disposal.Manager

	// GroupPositions returns the current world position of every tile group in index order.
	GroupPositions() []mgl32.Vec3

	// CoverageOK reports whether the groups cover the viewport plus one tile of margin at the
	// current size.
	CoverageOK() bool

	// Stats returns diagnostic counters.
	Stats() Stats

	// Dispose stops the loop, detaches input, releases every GPU resource, clears the caches,
	// releases the renderer and closes the surface. Idempotent.
	Dispose()

	// Disposed reports whether Dispose has run.
	Disposed() bool

	// ValidateDisposal checks that nothing tracked is left alive.
	ValidateDisposal() disposal.Report

	// PartialCleanup releases tiles, textures and the post-process stage but keeps the renderer,
	// camera, render target and input wiring.
	PartialCleanup() error

	// Reinitialize rebuilds the tiles after PartialCleanup, or cleans up and rebuilds them.
	Reinitialize(ctx context.Context) error
}

var _ Scene = &scene{}
var _ input.Picker = &scene{}

// NewScene creates a Scene rendering through r and viewed through cam.
//
// Parameters:
//   - r: the renderer (must not be nil)
//   - cam: the camera (must not be nil)
//   - cards: the initial card records
//   - options: functional options
//
// Returns:
//   - Scene: the scene
func NewScene(r renderer.Renderer, cam camera.Camera, cards []common.CardRecord, options ...SceneBuilderOption) Scene {
	if r == nil || cam == nil {
		panic("scene: NewScene requires a renderer and a camera")
	}
	s := &scene{
		mu:       &sync.Mutex{},
		opts:     DefaultOptions(),
		renderer: r,
		camera:   cam,
		disposal: disposal.NewManager(),
	}
	for _, opt := range options {
		opt(s)
	}
	o := s.opts
	if s.reporter == nil {
		s.reporter = profiler.NewErrorReporter(5*time.Second, func() string { return r.Stats().String() })
	}

	cam.SetDistance(o.CameraDistance)
	cam.SetFov(mgl32.DegToRad(o.FovDegrees))

	s.textures = texture.NewGenerator(r, append([]texture.GeneratorBuilderOption{
		texture.WithEdge(o.TextureSize),
		texture.WithWorkers(o.Workers),
		texture.WithMipmaps(o.Mipmaps),
	}, s.textureOptions...)...)

	s.grid = grid.NewGrid(s.textures, r, s.disposal, cards,
		grid.WithLayout(o.Columns, o.Rows),
		grid.WithTileSize(o.TileWidth, o.TileHeight),
		grid.WithGap(o.Gap),
		grid.WithBackgroundOpacity(o.BackgroundOpacity, o.HoverOpacity),
		grid.WithBlurRadius(o.BlurRadius),
		grid.WithFade(o.HoverFade, o.hoverEasing()),
	)

	gw, gh := s.grid.GroupSize()
	s.span = mgl32.Vec2{gw * groupsPerAxis, gh * groupsPerAxis}
	s.anchors = newGroupAnchors(gw, gh)

	s.scroll = input.NewScrollState(1)
	s.handler = input.NewHandler(s.scroll, s, s.grid,
		input.WithDragThreshold(o.DragThreshold),
		input.WithResistance(o.Resistance),
		input.WithMinVelocity(o.MinVelocity),
		input.WithMaxVelocity(o.MaxVelocity),
		input.WithWheelSpeed(o.WheelSpeed),
		input.WithOnScroll(s.UpdatePositions),
		input.WithActivation(s.activate),
	)

	s.disposal.AddClearable("tiles", disposal.ClearableFuncs{
		ClearFunc: s.grid.Clear,
		LenFunc:   func() int { return len(s.grid.Tiles()) },
	})
	s.disposal.AddClearable("texture cache", disposal.ClearableFuncs{
		ClearFunc: s.textures.ClearCache,
		LenFunc:   s.textures.CacheLen,
	})
	closer := s.surfaceCloser
	s.disposal.SetSurfaceCloser(func() {
		s.textures.Close()
		r.Release()
		if closer != nil {
			closer()
		}
	})
	return s
}

func (s *scene) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	if s.initialized {
		return errors.New("scene: already initialized")
	}

	if err := s.renderer.RegisterMaterials(material.NewRegistry()); err != nil {
		return fmt.Errorf("scene: register materials: %w", err)
	}
	w, h := s.renderer.Size()
	s.fitCameraLocked(w, h)

	anchors := make([]grid.GroupAnchor, len(s.anchors))
	for i, a := range s.anchors {
		anchors[i] = a
	}
	if err := s.grid.Initialize(ctx, anchors); err != nil {
		return fmt.Errorf("scene: initialize grid: %w", err)
	}

	if s.opts.PostProcessing {
		if err := s.initPostLocked(w, h); err != nil {
			return err
		}
	}

	if s.source != nil && !s.attached {
		s.disposal.AddDetacher(s.handler.Attach(s.source))
		s.attached = true
	}

	s.updatePositionsLocked()
	s.grid.SyncTransforms()
	s.initialized = true
	log.Printf("[Scene] initialized %dx%d, post-processing %v", w, h, s.post != nil)
	return nil
}

// initPostLocked creates the post-process stage, reusing the parameters of a previous stage, and
// the offscreen target it samples. The target survives PartialCleanup.
func (s *scene) initPostLocked(w, h int) error {
	if s.post == nil || s.post.Material().Released() {
		params := s.opts.PostParams()
		if s.post != nil {
			params = s.post.Params()
		}
		post, err := postprocess.NewStage(s.renderer, postprocess.WithParams(params))
		if err != nil {
			return fmt.Errorf("scene: post-process stage: %w", err)
		}
		s.disposal.Track(resource.KindMaterial, post.Material())
		s.disposal.Track(resource.KindGeometry, post.Geometry())
		s.post = post
	}
	if s.target == nil {
		rt, err := s.renderer.CreateRenderTarget("Scene Target", w, h)
		if err != nil {
			return fmt.Errorf("scene: render target: %w", err)
		}
		s.disposal.Track(resource.KindRenderTarget, rt)
		s.target = rt
	}
	if err := s.post.Bind(s.target.Texture()); err != nil {
		return fmt.Errorf("scene: bind post-process input: %w", err)
	}
	s.boundGen = s.target.Generation()
	return nil
}

// fitCameraLocked matches the camera aspect, the drag scale and the coverage check to a
// framebuffer of w x h pixels.
func (s *scene) fitCameraLocked(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	s.camera.SetAspect(float32(w) / float32(h))
	vw, vh := s.camera.VisibleExtent()
	s.scroll.SetScale(vh / float32(h))

	tw, th := s.grid.TileSize()
	gw, gh := s.grid.GroupSize()
	s.coverageOK = covers(vw, vh, tw, th, gw, gh)
	if !s.coverageOK {
		log.Printf("[Scene] warning: groups of %.2fx%.2f cannot cover a %.2fx%.2f view plus one tile; raise columns/rows or bring the camera within %.2f",
			gw, gh, vw, vh, maxCoverDistance(s.camera.Fov(), s.camera.Aspect(), tw, th, gw, gh))
	}
}

func (s *scene) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func (s *scene) Start(sched Scheduler) {
	if s.Disposed() {
		log.Printf("[Scene] start after dispose ignored")
		return
	}
	cancel := sched.Schedule(s.Tick, s.Frame)
	s.disposal.SetCancel(cancel)
}

func (s *scene) Tick(dt float32) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	ready := s.initialized
	post := s.post
	s.mu.Unlock()
	if !ready {
		return nil
	}

	// the handler calls back into UpdatePositions, so no scene lock here
	s.handler.Tick(dt)
	s.grid.Update(dt)
	if post != nil {
		post.Update(dt)
	}
	return nil
}

func (s *scene) Frame(dt float32) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scene: frame panic: %v", p)
		}
		if err != nil && !errors.Is(err, ErrDisposed) {
			s.reporter.Report("Frame", err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	if !s.initialized {
		return nil
	}

	s.updatePositionsLocked()
	s.grid.SyncTransforms()
	return s.renderLocked()
}

// renderLocked draws the tiles, into the offscreen target when post-processing is on, and the
// post-process pass to the screen. A failed frame is closed so the next one can begin.
func (s *scene) renderLocked() error {
	r := s.renderer
	uniform := s.camera.Uniform()
	if err := r.WriteCamera(uniform.Marshal()); err != nil {
		return fmt.Errorf("scene: write camera: %w", err)
	}
	if s.post != nil && s.target.Generation() != s.boundGen {
		if err := s.post.Bind(s.target.Texture()); err != nil {
			return err
		}
		s.boundGen = s.target.Generation()
	}

	if err := r.BeginFrame(); err != nil {
		return fmt.Errorf("scene: begin frame: %w", err)
	}
	if err := s.drawLocked(); err != nil {
		_ = r.EndFrame()
		_ = r.Present()
		return err
	}
	if err := r.EndFrame(); err != nil {
		_ = r.Present()
		return fmt.Errorf("scene: end frame: %w", err)
	}
	return r.Present()
}

func (s *scene) drawLocked() error {
	r := s.renderer
	var target resource.RenderTarget
	if s.post != nil {
		target = s.target
	}
	if err := r.BeginPass(target); err != nil {
		return fmt.Errorf("scene: begin tile pass: %w", err)
	}
	quad := s.grid.Quad()
	tiles := s.grid.Tiles()
	// every background first so hovered frames never cover a neighbouring card
	for _, t := range tiles {
		if err := r.Draw(quad, t.Background()); err != nil {
			return fmt.Errorf("scene: draw %s background: %w", t.Key(), err)
		}
	}
	for _, t := range tiles {
		if err := r.Draw(quad, t.Foreground()); err != nil {
			return fmt.Errorf("scene: draw %s: %w", t.Key(), err)
		}
	}
	if err := r.EndPass(); err != nil {
		return err
	}

	if s.post == nil {
		return nil
	}
	if err := r.BeginPass(nil); err != nil {
		return fmt.Errorf("scene: begin post pass: %w", err)
	}
	if err := s.post.Render(); err != nil {
		return fmt.Errorf("scene: post pass: %w", err)
	}
	return r.EndPass()
}

func (s *scene) UpdatePositions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.updatePositionsLocked()
}

func (s *scene) updatePositionsLocked() {
	dx, dy := s.scroll.Direction()
	cur := s.scroll.Current()
	for _, a := range s.anchors {
		a.wrap(cur, s.span, dx, dy)
	}
	s.scroll.Snapshot()
}

func (s *scene) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	if width <= 0 || height <= 0 {
		// minimized
		return nil
	}
	if err := s.renderer.Resize(width, height); err != nil {
		return fmt.Errorf("scene: resize surface: %w", err)
	}
	s.fitCameraLocked(width, height)
	if s.target == nil || s.target.Released() {
		return nil
	}
	if err := s.renderer.ResizeRenderTarget(s.target, width, height); err != nil {
		return fmt.Errorf("scene: resize render target: %w", err)
	}
	if s.post != nil && s.target.Generation() != s.boundGen {
		if err := s.post.Bind(s.target.Texture()); err != nil {
			return fmt.Errorf("scene: rebind post-process input: %w", err)
		}
		s.boundGen = s.target.Generation()
	}
	return nil
}

func (s *scene) ScrollBy(dx, dy float32) error {
	if s.Disposed() {
		return ErrDisposed
	}
	s.scroll.Add(mgl32.Vec2{dx, dy})
	s.UpdatePositions()
	return nil
}

func (s *scene) SetVelocity(v mgl32.Vec2) error {
	if s.Disposed() {
		return ErrDisposed
	}
	s.handler.SetVelocity(v)
	return nil
}

func (s *scene) UpdateCardData(ctx context.Context, cards []common.CardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	if !s.initialized {
		return ErrNotInitialized
	}
	return s.grid.UpdateCardData(ctx, cards)
}

func (s *scene) OnActivate(fn input.ActivationFunc) {
	s.handler.OnActivate(fn)
}

func (s *scene) Pick(x, y float32) (input.Hit, bool) {
	w, h := s.renderer.Size()
	ray, ok := s.camera.Ray(x, y, w, h)
	if !ok {
		return input.Hit{}, false
	}
	t, _, ok := s.grid.Intersect(ray)
	if !ok {
		return input.Hit{}, false
	}
	return input.Hit{GroupIndex: t.GroupIndex(), TileIndex: t.TileIndex(), Key: t.Key()}, true
}

func (s *scene) PostProcess() postprocess.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.post
}

func (s *scene) Target() resource.RenderTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

func (s *scene) Grid() grid.Grid {
	return s.grid
}

func (s *scene) Camera() camera.Camera {
	return s.camera
}

func (s *scene) Input() input.Handler {
	return s.handler
}

func (s *scene) Disposal() disposal.Manager {
	return s.disposal
}

func (s *scene) GroupPositions() []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(s.anchors))
	for i, a := range s.anchors {
		out[i] = a.Position()
	}
	return out
}

func (s *scene) CoverageOK() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coverageOK
}

func (s *scene) Stats() Stats {
	s.mu.Lock()
	post := s.post != nil
	coverage := s.coverageOK
	s.mu.Unlock()
	return Stats{
		Renderer:       s.renderer.Stats(),
		Grid:           s.grid.Stats(),
		Scroll:         s.scroll.Current(),
		Velocity:       s.handler.Velocity(),
		PostProcessing: post,
		CoverageOK:     coverage,
	}
}

func (s *scene) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.initialized = false
	post := s.post
	s.post = nil
	s.mu.Unlock()

	s.handler.Stop()
	if post != nil {
		post.StopAnimation()
	}
	s.disposal.Dispose()
	if post != nil {
		post.Release()
	}
}

func (s *scene) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *scene) ValidateDisposal() disposal.Report {
	return s.disposal.ValidateDisposal()
}

func (s *scene) PartialCleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	s.partialCleanupLocked()
	return nil
}

func (s *scene) partialCleanupLocked() {
	s.handler.Stop()
	if s.post != nil {
		s.post.StopAnimation()
	}
	s.disposal.PartialCleanup()
	s.initialized = false
}

func (s *scene) Reinitialize(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.initialized {
		s.partialCleanupLocked()
	}
	s.mu.Unlock()
	return s.Initialize(ctx)
}

// maxCoverDistance returns the largest camera distance at which the groups still cover the view
// plus one tile of margin.
func maxCoverDistance(fov, aspect, tileW, tileH, groupW, groupH float32) float32 {
	t := float32(math.Tan(float64(fov) / 2))
	if t <= 0 || aspect <= 0 {
		return 0
	}
	return max(min((groupH-tileH)/t, (groupW-tileW)/(t*aspect)), 0)
}
