package model

import (
	"fmt"
	"path/filepath"
	"time"
)

// Artifact is the HTML file produced by the document processor.
// At most one artifact exists per invocation.
type Artifact struct {
	// Path is the absolute path of the generated HTML file.
	Path string `json:"path"`

	// Title is the text of the artifact's <title> element, if any.
	Title string `json:"title,omitempty"`

	// LinkCount is the number of <a href> elements found in the artifact.
	LinkCount int `json:"link_count"`

	// ExternalLinkCount is the number of those links that are absolute
	// http(s) URLs.
	ExternalLinkCount int `json:"external_link_count"`

	// BrokenFragments lists "#id" links whose target id is missing.
	// They are reported as warnings; the link checker decides pass/fail.
	BrokenFragments []string `json:"broken_fragments,omitempty"`
}

// Dir returns the directory containing the artifact.
// The link checker is scoped to this directory.
func (a *Artifact) Dir() string {
	return filepath.Dir(a.Path)
}

// StageResult records what happened when one stage ran.
type StageResult struct {
	// Stage is the stage that ran.
	Stage Stage `json:"stage"`

	// Passed is true when the external process exited with status 0.
	Passed bool `json:"passed"`

	// ExitCode is the exit status of the external process.
	// It is -1 when the process could not be started or was killed.
	ExitCode int `json:"exit_code"`

	// Output is the captured stdout and stderr of the process.
	Output string `json:"output,omitempty"`

	// Duration is the wall-clock time the stage took.
	Duration time.Duration `json:"duration"`
}

// Outcome is the aggregated result of one validation run.
type Outcome struct {
	// RunID uniquely identifies the run in the history database.
	RunID string `json:"run_id"`

	// Document is the validated document path or URL.
	Document string `json:"document"`

	// State is the current state; terminal once the run has finished.
	State State `json:"state"`

	// Transitions lists every state the run has entered, in order,
	// starting with StateStart.
	Transitions []State `json:"transitions"`

	// Stages holds one result per stage that ran, in execution order.
	Stages []StageResult `json:"stages"`

	// Artifact is the generated document, nil if generation failed.
	Artifact *Artifact `json:"artifact,omitempty"`

	// FailedStage is the stage that failed, empty on success.
	FailedStage Stage `json:"failed_stage,omitempty"`

	// Diagnostic is the captured output of the failing process or the
	// error message when the process could not be run.
	Diagnostic string `json:"diagnostic,omitempty"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run reached a terminal state.
	FinishedAt time.Time `json:"finished_at"`
}

// NewOutcome creates an Outcome in StateStart.
func NewOutcome(runID, document string) *Outcome {
	return &Outcome{
		RunID:       runID,
		Document:    document,
		State:       StateStart,
		Transitions: []State{StateStart},
		Stages:      make([]StageResult, 0, 3),
		StartedAt:   time.Now(),
	}
}

// Transition moves the outcome to the given state.
// It returns ErrInvalidTransition if the state machine forbids the move.
func (o *Outcome) Transition(to State) error {
	if !CanTransition(o.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.State, to)
	}
	o.State = to
	o.Transitions = append(o.Transitions, to)
	if to.IsTerminal() {
		o.FinishedAt = time.Now()
	}
	return nil
}

// Record appends a stage result.
func (o *Outcome) Record(result StageResult) {
	o.Stages = append(o.Stages, result)
}

// Fail records the failing stage and its diagnostic text.
// The state change itself is done with Transition.
func (o *Outcome) Fail(stage Stage, diagnostic string) {
	o.FailedStage = stage
	o.Diagnostic = diagnostic
}

// Passed reports whether the run finished successfully.
func (o *Outcome) Passed() bool {
	return o.State == StateSuccess
}

// ExitCode maps the terminal state to a process exit status.
func (o *Outcome) ExitCode() int {
	if o.Passed() {
		return 0
	}
	return 1
}

// PassedStages returns the stages that passed, in execution order.
func (o *Outcome) PassedStages() []Stage {
	passed := make([]Stage, 0, len(o.Stages))
	for _, s := range o.Stages {
		if s.Passed {
			passed = append(passed, s.Stage)
		}
	}
	return passed
}

// Duration returns how long the run took. It is zero until the run
// reaches a terminal state.
func (o *Outcome) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}
