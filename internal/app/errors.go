package app

import "errors"

// Sentinel kinds for submission errors.
var (
	// ErrSubmitPending is returned when the submit guard is on and a
	// submission from the same handle has not finished yet.
	ErrSubmitPending = errors.New("a submission is already pending")
	// ErrModeUnavailable is returned when the selected mode has no backend.
	ErrModeUnavailable = errors.New("mode is not available yet")
)
