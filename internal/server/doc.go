// Package server provides the local static file server that exposes the
// source document to the external validators.
//
// The server is an owned resource: Listen binds the port before any
// validator runs, Serve blocks until Shutdown, and Shutdown releases the
// port when the run reaches a terminal state.
package server
