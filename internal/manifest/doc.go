// Package manifest derives the link checker's ignore list from a manifest file.
//
// A manifest lists documents that are published elsewhere, one per line.
// Links to those documents are expected to fail locally, so their paths are
// excluded from link checking.
package manifest
