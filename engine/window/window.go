package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides the platform window of the tile wall: the WebGPU surface, its framebuffer size
// and the pointer, wheel and key events that drive the wall. Pointer positions are reported in
// framebuffer pixels, so they line up with the renderer's viewport on high-DPI displays.
// Callbacks run on the thread that calls ProcessMessages.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press events. Escape always closes the window.
	//
	// Parameters:
	//   - callback: function receiving the GLFW key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetPointerDownCallback sets the callback for left button presses.
	//
	// Parameters:
	//   - callback: function receiving the pointer position in framebuffer pixels (nil detaches)
	SetPointerDownCallback(callback func(x, y float32))

	// SetPointerUpCallback sets the callback for left button releases.
	SetPointerUpCallback(callback func(x, y float32))

	// SetPointerMoveCallback sets the callback for pointer movement.
	SetPointerMoveCallback(callback func(x, y float32))

	// SetWheelCallback sets the callback for wheel and trackpad scrolling.
	//
	// Parameters:
	//   - callback: function receiving the horizontal and vertical offsets (positive dy = up)
	SetWheelCallback(callback func(dx, dy float32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	IsRunning() bool

	// Close destroys the window and releases platform resources. Calling it again is a no-op.
	//
	// Returns:
	//   - error: error if the window was never created
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls the update callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	title string

	// size limits in screen coordinates, 0 = unlimited
	maxWidth  int
	maxHeight int
	minWidth  int
	minHeight int

	// framebuffer size in pixels
	width  int
	height int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	onUpdate      func()
	onResize      func(width, height int)
	onKeyDown     func(keyCode uint32)
	onPointerDown func(x, y float32)
	onPointerUp   func(x, y float32)
	onPointerMove func(x, y float32)
	onWheel       func(dx, dy float32)
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window
//   - error: error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-tiles",
		minWidth:  320,
		minHeight: 240,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("window: create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetPointerDownCallback(callback func(x, y float32)) {
	w.onPointerDown = callback
}

func (w *engineWindow) SetPointerUpCallback(callback func(x, y float32)) {
	w.onPointerUp = callback
}

func (w *engineWindow) SetPointerMoveCallback(callback func(x, y float32)) {
	w.onPointerMove = callback
}

func (w *engineWindow) SetWheelCallback(callback func(dx, dy float32)) {
	w.onWheel = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
