// Package model defines the core data structures used throughout specvalidate.
//
// This package contains the following main types:
//   - Request: The immutable validation request built from CLI flags
//   - State: The orchestrator state machine (Start through Success or Failed)
//   - Artifact: The HTML file produced by the document processor
//   - Outcome: The aggregated pass/fail result of one invocation
//
// Models live in their own package so that pipeline, report and database
// can share them without import cycles. Outcome is serializable to JSON for
// report output and the run history database.
package model
