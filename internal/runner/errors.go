package runner

import "errors"

var (
	// ErrToolNotFound is returned when the executable is not on PATH.
	ErrToolNotFound = errors.New("external tool not found")

	// ErrTimeout is returned when a process outlives its timeout and is killed.
	ErrTimeout = errors.New("external tool timed out")

	// ErrEmptyCommand is returned when Command.Name is blank.
	ErrEmptyCommand = errors.New("empty command name")
)
