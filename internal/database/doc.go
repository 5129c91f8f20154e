// Package database provides SQLite-based storage of validation run history.
//
// Each finished run is stored with its document, result and the full
// outcome as JSON, so earlier runs can be listed and compared with the
// current one. The database lives in the XDG data directory.
package database
