package profiler

import "errors"

var (
	// ErrAlreadyRunning is returned when starting a session that is running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning is returned when stopping a session that is idle.
	ErrNotRunning = errors.New("not running")

	// ErrInvalidInterval is returned for a sampling interval that is not positive.
	ErrInvalidInterval = errors.New("sampling interval must be a positive number of microseconds")
)
