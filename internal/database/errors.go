package database

import "errors"

var (
	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrNoRunID is returned when saving an outcome without a run ID.
	ErrNoRunID = errors.New("outcome has no run ID")

	// ErrNotTerminal is returned when saving an outcome that has not finished.
	ErrNotTerminal = errors.New("outcome is not in a terminal state")
)
