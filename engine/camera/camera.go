package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix           mgl32.Mat4
	projectionMatrix     mgl32.Mat4
	viewProjectionMatrix mgl32.Mat4
}

// Camera defines the interface for the perspective camera looking at the tile wall.
// The camera sits on the +Z axis at a configurable distance and looks down -Z at the
// plane z = 0 where the tiles lie. Matrices are recomputed on every setter.
type Camera interface {
	// Position returns the camera position in world space.
	Position() mgl32.Vec3

	// Target returns the point the camera looks at.
	Target() mgl32.Vec3

	// Distance returns the distance from the camera to the tile plane.
	Distance() float32

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// ViewMatrix returns the current view matrix.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the current projection matrix, already remapped to the WebGPU
	// depth range.
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns the combined view-projection matrix.
	ViewProjectionMatrix() mgl32.Mat4

	// VisibleExtent returns the world-space width and height visible on the tile plane (z = 0).
	//
	// Returns:
	//   - width, height: the visible extent in world units
	VisibleExtent() (width, height float32)

	// Ray builds the world-space pick ray through a framebuffer pixel.
	//
	// Parameters:
	//   - px, py: pointer position in pixels, origin top-left
	//   - width, height: framebuffer size in pixels
	//
	// Returns:
	//   - common.Ray: the pick ray
	//   - bool: false when no ray can be built (empty framebuffer)
	Ray(px, py float32, width, height int) (common.Ray, bool)

	// Uniform returns the GPU representation of the camera.
	Uniform() GPUCameraUniform

	// SetDistance moves the camera along +Z to the given distance from the tile plane.
	//
	// Parameters:
	//   - distance: positive distance in world units
	SetDistance(distance float32)

	// SetFov sets the vertical field of view in radians.
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height). Non-positive values are ignored.
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance.
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	SetFar(far float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings, placed 5 units in front
// of the tile plane.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		position: mgl32.Vec3{0, 0, 5},
		up:       mgl32.Vec3{0, 1, 0},
		fov:      45.0 * (math.Pi / 180.0), // radians
		aspect:   1.0,
		near:     0.1,
		far:      100.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Distance() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position.Z() - c.target.Z()
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) VisibleExtent() (width, height float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	distance := c.position.Z() - c.target.Z()
	height = 2 * distance * float32(math.Tan(float64(c.fov)/2))
	return height * c.aspect, height
}

func (c *cameraImpl) Ray(px, py float32, width, height int) (common.Ray, bool) {
	return common.RayFromScreen(px, py, width, height, c.ViewProjectionMatrix())
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{
		ViewProj:       c.viewProjectionMatrix,
		CameraPosition: c.position,
	}
}

func (c *cameraImpl) SetDistance(distance float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if distance <= 0 {
		return
	}
	c.position = mgl32.Vec3{c.target.X(), c.target.Y(), c.target.Z() + distance}
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if aspect <= 0 {
		return
	}
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

// updateMatrices recalculates the view, projection and view-projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.viewMatrix = mgl32.LookAtV(c.position, c.target, c.up)
	c.projectionMatrix = common.WebGPUClipCorrection.Mul4(mgl32.Perspective(c.fov, c.aspect, c.near, c.far))
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
}
