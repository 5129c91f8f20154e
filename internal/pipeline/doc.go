// Package pipeline runs the validation stages in sequence and drives the
// run's state machine.
//
// A run moves Start -> Generating -> MarkupChecking -> LinkChecking ->
// Success. The markup and link stages are entered only when enabled, and
// only after the previous stage passed. Any failure moves the run to Failed
// and the remaining stages never start. Nothing is retried.
//
// Each stage is a Step that makes exactly one blocking call to a
// runner.Runner.
package pipeline
