// Package runner starts external validator processes and reports their
// exit status together with the text they printed.
//
// Every stage of a validation run is exactly one blocking call to
// Runner.Run. The process is killed when its timeout elapses or the
// caller's context is cancelled.
package runner
