package common

// Virtual key codes used by the demo key bindings.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyP     = 80  // P key (ASCII), toggles the post-process resting/emphasis animation
	KeyR     = 82  // R key (ASCII), rebuilds the wall after a partial cleanup
	KeySpace = 32  // Spacebar (ASCII), stops inertial scrolling
	KeyEsc   = 256 // Escape key (GLFW)
)

// Arrow keys nudge the wall by one tile spacing.
const (
	KeyRight = 262 // Right arrow (GLFW)
	KeyLeft  = 263 // Left arrow (GLFW)
	KeyDown  = 264 // Down arrow (GLFW)
	KeyUp    = 265 // Up arrow (GLFW)
)
