package input

import "time"

// HandlerBuilderOption is a functional option applied to a handler during construction via
// NewHandler.
type HandlerBuilderOption func(*handler)

// WithDragThreshold sets the pointer travel in pixels above which a press becomes a drag.
func WithDragThreshold(pixels float32) HandlerBuilderOption {
	return func(h *handler) {
		h.threshold = max(pixels, 0)
	}
}

// WithResistance sets the fraction of inertial velocity kept per 60 Hz step. Values outside
// (0, 1) are ignored.
//
// Parameters:
//   - resistance: the per-step retention, 0.92 by default
//
// Returns:
//   - HandlerBuilderOption: a function that applies the resistance option to a handler
func WithResistance(resistance float32) HandlerBuilderOption {
	return func(h *handler) {
		if resistance > 0 && resistance < 1 {
			h.inertia.Resistance = resistance
		}
	}
}

// WithMinVelocity sets the speed below which inertia stops.
func WithMinVelocity(v float32) HandlerBuilderOption {
	return func(h *handler) {
		h.inertia.MinVelocity = max(v, 0)
	}
}

// WithMaxVelocity caps the inertial speed. Zero removes the cap.
func WithMaxVelocity(v float32) HandlerBuilderOption {
	return func(h *handler) {
		h.inertia.MaxVelocity = max(v, 0)
	}
}

// WithWheelSpeed sets the world units per wheel notch, applied as velocity over one 60 Hz step.
func WithWheelSpeed(speed float32) HandlerBuilderOption {
	return func(h *handler) {
		h.wheelSpeed = speed
	}
}

// WithOnScroll sets a function called after every scroll change made by the handler.
//
// Parameters:
//   - fn: usually the wraparound pass of the scene
//
// Returns:
//   - HandlerBuilderOption: a function that applies the callback option to a handler
func WithOnScroll(fn func()) HandlerBuilderOption {
	return func(h *handler) {
		h.onScroll = fn
	}
}

// WithActivation sets the activation callback.
func WithActivation(fn ActivationFunc) HandlerBuilderOption {
	return func(h *handler) {
		h.activate = fn
	}
}

// WithClock replaces the time source used for velocity sampling.
func WithClock(now func() time.Time) HandlerBuilderOption {
	return func(h *handler) {
		if now != nil {
			h.now = now
		}
	}
}
