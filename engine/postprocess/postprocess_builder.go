package postprocess

// StageBuilderOption is a functional option applied to a stage during construction via NewStage.
type StageBuilderOption func(*stage)

// WithParams sets the initial parameters. They should already be the resting look.
//
// Parameters:
//   - p: the initial parameters
//
// Returns:
//   - StageBuilderOption: a function that applies the params option to a stage
func WithParams(p Params) StageBuilderOption {
	return func(s *stage) {
		s.params = p
	}
}

// WithEnabled toggles whether the scene routes its frames through the stage.
//
// Parameters:
//   - enabled: false to render straight to the screen
//
// Returns:
//   - StageBuilderOption: a function that applies the enabled option to a stage
func WithEnabled(enabled bool) StageBuilderOption {
	return func(s *stage) {
		s.enabled = enabled
	}
}
