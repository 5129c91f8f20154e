package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/specvalidate/internal/model"
)

var (
	// ErrStageFailed matches every *StageError with errors.Is.
	ErrStageFailed = errors.New("validation stage failed")

	// ErrNoArtifact is returned by a checking stage that runs without a
	// generated artifact.
	ErrNoArtifact = errors.New("no generated artifact to check")
)

// StageError describes a failed stage.
type StageError struct {
	// Stage is the stage that failed.
	Stage model.Stage

	// ExitCode is the exit status of the process, -1 if it never finished.
	ExitCode int

	// Output is the captured text of the process.
	Output string

	// Err is the cause when the failure was not a plain non-zero exit,
	// e.g. a missing tool, a timeout or an unusable artifact.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s stage failed with exit code %d", e.Stage, e.ExitCode)
}

// Unwrap returns the cause, if any.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStageFailed.
func (e *StageError) Is(target error) bool {
	return target == ErrStageFailed
}

// Diagnostic returns the text shown to the user for this failure: the
// process output followed by the cause.
func (e *StageError) Diagnostic() string {
	out := strings.TrimRight(e.Output, "\n")
	switch {
	case e.Err == nil:
		return out
	case out == "":
		return e.Err.Error()
	default:
		return out + "\n" + e.Err.Error()
	}
}
