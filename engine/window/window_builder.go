package window

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial window size in screen coordinates. On high-DPI displays the
// framebuffer reported by Width and Height is larger.
//
// Parameters:
//   - width, height: initial size, values <= 0 keep the default 1280x720
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if width > 0 {
			w.width = width
		}
		if height > 0 {
			w.height = height
		}
	}
}

// WithMinSize sets the smallest size the user can resize the window to. 0 leaves an axis
// unlimited.
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth = max(width, 0)
		w.minHeight = max(height, 0)
	}
}

// WithMaxSize sets the largest size the user can resize the window to. 0 leaves an axis
// unlimited.
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.maxWidth = max(width, 0)
		w.maxHeight = max(height, 0)
	}
}
