package server

import "errors"

var (
	// ErrPortInUse is returned by Listen when another process holds the port.
	ErrPortInUse = errors.New("port already in use")

	// ErrNotListening is returned by Serve when Listen has not succeeded.
	ErrNotListening = errors.New("server is not listening")

	// ErrRootNotDir is returned when the served root is not a directory.
	ErrRootNotDir = errors.New("server root is not a directory")
)
