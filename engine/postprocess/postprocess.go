// Package postprocess implements the full-screen lens distortion and vignette pass applied to
// the rendered tile wall.
package postprocess

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-tiles/engine/animation"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/resource"
)

// ErrNotBound is returned by Render before an input texture has been bound.
var ErrNotBound = errors.New("postprocess: no input texture bound")

// ErrReleased is returned by every parameter or binding call made after Release.
var ErrReleased = errors.New("postprocess: stage released")

const animationKey = "post-process"

// Params are the animatable uniform values of the stage.
type Params struct {
	// Distortion is the radial displacement intensity. Negative pinches, positive bulges.
	Distortion float32 `yaml:"distortion"`
	// VignetteOffset is the centre distance (0 centre, 1 edge) where darkening starts.
	VignetteOffset float32 `yaml:"vignette_offset"`
	// VignetteDarkness is the distance where darkening is complete. Kept above VignetteOffset.
	VignetteDarkness float32 `yaml:"vignette_darkness"`
}

// DefaultParams returns the resting look. A freshly constructed stage already shows it, so a
// remount never animates in from a neutral state.
func DefaultParams() Params {
	return Params{Distortion: -0.12, VignetteOffset: 0.45, VignetteDarkness: 1.15}
}

func (p Params) vector() []float32 {
	return []float32{p.Distortion, p.VignetteOffset, p.VignetteDarkness}
}

func (p Params) uniform() [4]float32 {
	return [4]float32{p.Distortion, p.VignetteOffset, p.VignetteDarkness, 0}
}

// normalized keeps darkness strictly past offset so smoothstep stays well defined.
func (p Params) normalized() Params {
	if p.VignetteDarkness <= p.VignetteOffset {
		p.VignetteDarkness = p.VignetteOffset + 1e-3
	}
	return p
}

// Device is the part of the renderer the stage draws with.
type Device interface {
	CreateGeometry(label string, vertices []float32, indices []uint32) (resource.Geometry, error)
	InitMaterial(m material.Material) error
	WriteMaterial(m material.Material) error
	Draw(geom resource.Geometry, m material.Material) error
}

type stage struct {
	mu *sync.Mutex

	device   Device
	material material.Material
	triangle resource.Geometry
	timeline *animation.Timeline

	params      Params
	enabled     bool
	initialized bool
	released    bool
}

// Stage is the post-process pass. It samples one color texture (the offscreen scene) and draws
// a full-screen triangle into the current pass.
type Stage interface {
	// Enabled reports whether the scene should route through this stage.
	Enabled() bool

	// Params returns the current parameters.
	Params() Params

	// SetParams replaces every parameter at once, cancelling any running animation, and pushes
	// the uniform.
	SetParams(p Params) error

	// SetDistortion sets the distortion intensity and pushes the uniform.
	SetDistortion(intensity float32) error

	// SetVignette sets the vignette range and pushes the uniform.
	SetVignette(offset, darkness float32) error

	// Animate interpolates all three parameters in lockstep toward target. The uniform is
	// pushed on every Update. Starting a new animation cancels the running one.
	//
	// Parameters:
	//   - target: the parameters to reach
	//   - duration: seconds
	//   - delay: seconds before the first step
	//   - easing: easing curve (nil = Linear)
	//
	// Returns:
	//   - *animation.Tween: the running tween, cancelable; nil once the stage is released
	Animate(target Params, duration, delay float32, easing animation.Easing) *animation.Tween

	// Update advances the running animation by dt seconds.
	Update(dt float32)

	// Animating reports whether an animation is in flight.
	Animating() bool

	// StopAnimation cancels the running animation, leaving the parameters where they are.
	StopAnimation()

	// Bind makes tex the stage input. The first call creates the GPU material; later calls (after a
	// render target resize) only rebind it.
	//
	// Parameters:
	//   - tex: the color texture to sample
	//
	// Returns:
	//   - error: an error if the material could not be bound
	Bind(tex resource.Texture) error

	// Render draws the full-screen pass into the renderer's current pass.
	Render() error

	// Material returns the post-process material.
	Material() material.Material

	// Geometry returns the full-screen triangle.
	Geometry() resource.Geometry

	// Release cancels any animation and frees the material and the triangle. Idempotent.
	// Parameter and binding calls return ErrReleased afterwards.
	Release()

	// Released reports whether Release has been called.
	Released() bool
}

var _ Stage = &stage{}

// fullscreenTriangle covers clip space with one triangle; uv (0,0) maps to the top-left texel.
var (
	fullscreenVertices = []float32{
		-1, -1, 0, 0, 1,
		3, -1, 0, 2, 1,
		-1, 3, 0, 0, -1,
	}
	fullscreenIndices = []uint32{0, 1, 2}
)

// NewStage creates the stage and its full-screen triangle. The GPU material is created on the
// first Bind, once an input texture exists.
//
// Parameters:
//   - device: the renderer (must not be nil)
//   - options: functional options
//
// Returns:
//   - Stage: the stage
//   - error: an error if the triangle could not be created
func NewStage(device Device, options ...StageBuilderOption) (Stage, error) {
	if device == nil {
		panic("postprocess: NewStage requires a device")
	}
	s := &stage{
		mu:       &sync.Mutex{},
		device:   device,
		timeline: animation.NewTimeline(),
		params:   DefaultParams(),
		enabled:  true,
	}
	for _, opt := range options {
		opt(s)
	}
	s.params = s.params.normalized()
	s.material = material.NewMaterial("Post Process", material.RolePostProcess,
		material.WithPostParams(s.params.uniform()),
	)

	tri, err := device.CreateGeometry("Post Process Triangle", fullscreenVertices, fullscreenIndices)
	if err != nil {
		s.material.Release()
		return nil, fmt.Errorf("postprocess: create triangle: %w", err)
	}
	s.triangle = tri
	return s, nil
}

func (s *stage) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *stage) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// apply stores p and pushes it to the GPU once the material exists.
func (s *stage) apply(p Params) error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return ErrReleased
	}
	s.params = p.normalized()
	s.material.SetPostParams(s.params.uniform())
	push := s.initialized
	s.mu.Unlock()

	if !push {
		return nil
	}
	if err := s.device.WriteMaterial(s.material); err != nil {
		return fmt.Errorf("postprocess: push uniform: %w", err)
	}
	return nil
}

func (s *stage) SetParams(p Params) error {
	s.timeline.Cancel(animationKey)
	return s.apply(p)
}

func (s *stage) SetDistortion(intensity float32) error {
	p := s.Params()
	p.Distortion = intensity
	return s.apply(p)
}

func (s *stage) SetVignette(offset, darkness float32) error {
	p := s.Params()
	p.VignetteOffset, p.VignetteDarkness = offset, darkness
	return s.apply(p)
}

func (s *stage) Animate(target Params, duration, delay float32, easing animation.Easing) *animation.Tween {
	if s.Released() {
		log.Printf("[PostProcess] animate after release ignored")
		return nil
	}
	tw := animation.NewTween(s.Params().vector(), target.vector(), duration, delay, easing, func(v []float32) {
		_ = s.apply(Params{Distortion: v[0], VignetteOffset: v[1], VignetteDarkness: v[2]})
	})
	return s.timeline.Play(animationKey, tw)
}

func (s *stage) Update(dt float32) {
	s.timeline.Update(dt)
}

func (s *stage) Animating() bool {
	return s.timeline.Running(animationKey)
}

func (s *stage) StopAnimation() {
	s.timeline.Cancel(animationKey)
}

func (s *stage) Bind(tex resource.Texture) error {
	if tex == nil || tex.Released() {
		return errors.New("postprocess: bind of a released texture")
	}
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return ErrReleased
	}
	first := !s.initialized
	s.material.SetTexture(tex)
	s.mu.Unlock()

	var err error
	if first {
		err = s.device.InitMaterial(s.material)
	} else {
		err = s.device.WriteMaterial(s.material)
	}
	if err != nil {
		return fmt.Errorf("postprocess: bind input: %w", err)
	}
	if first {
		s.mu.Lock()
		s.initialized = true
		s.mu.Unlock()
	}
	return nil
}

func (s *stage) Render() error {
	s.mu.Lock()
	ready := s.initialized && !s.released
	s.mu.Unlock()
	if !ready {
		return ErrNotBound
	}
	return s.device.Draw(s.triangle, s.material)
}

func (s *stage) Material() material.Material {
	return s.material
}

func (s *stage) Geometry() resource.Geometry {
	return s.triangle
}

func (s *stage) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	s.timeline.Clear()
	s.material.Release()
	s.triangle.Release()
}

func (s *stage) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
