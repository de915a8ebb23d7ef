package agent

import "errors"

var (
	// ErrLoopDetected is the controller-initiated graceful stop when the
	// planning service keeps proposing the identical action.
	ErrLoopDetected = errors.New("stopped: repeated action, no progress")

	// ErrMaxIterations is the controller-initiated stop at budget
	// exhaustion.
	ErrMaxIterations = errors.New("max iterations reached")
)
