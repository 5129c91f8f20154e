package pipeline

import (
	"fmt"
	"io"

	"github.com/nao1215/specvalidate/internal/model"
)

// Progress receives stage events while a pipeline executes.
type Progress interface {
	// StageStarted is called before a stage's process starts.
	StageStarted(stage model.Stage)

	// StagePassed is called after a stage passed.
	StagePassed(stage model.Stage)

	// StageFailed is called after a stage failed, before Finished.
	StageFailed(stage model.Stage, err *StageError)

	// Finished is called exactly once, when the outcome is terminal.
	Finished(outcome *model.Outcome)
}

type nopProgress struct{}

func (nopProgress) StageStarted(model.Stage)             {}
func (nopProgress) StagePassed(model.Stage)              {}
func (nopProgress) StageFailed(model.Stage, *StageError) {}
func (nopProgress) Finished(*model.Outcome)              {}

// Messages printed by TextProgress.
const (
	MessageSuccess = "🎉 All checks passed"
	MessageFailure = "❌ Validation failed"
)

// stageLabels holds the "running" and "passed" wording of each stage.
var stageLabels = map[model.Stage][2]string{
	model.StageGenerate: {"Generating document...", "Generation passed"},
	model.StageMarkup:   {"Checking markup...", "Markup check passed"},
	model.StageLinks:    {"Checking links...", "Link check passed"},
}

// TextProgress prints progress markers to Out and failure diagnostics to Err.
type TextProgress struct {
	Out io.Writer
	Err io.Writer
}

// NewTextProgress creates a TextProgress.
func NewTextProgress(out, errOut io.Writer) *TextProgress {
	return &TextProgress{Out: out, Err: errOut}
}

// StageStarted prints the running marker.
func (p *TextProgress) StageStarted(stage model.Stage) {
	fmt.Fprintf(p.Out, "⏳ %s\n", label(stage, 0)) //nolint:errcheck // terminal output
}

// StagePassed prints the success marker.
func (p *TextProgress) StagePassed(stage model.Stage) {
	fmt.Fprintf(p.Out, "✅ %s\n", label(stage, 1)) //nolint:errcheck // terminal output
}

// StageFailed prints the captured diagnostic of the failing process.
func (p *TextProgress) StageFailed(_ model.Stage, err *StageError) {
	if diag := err.Diagnostic(); diag != "" {
		fmt.Fprintln(p.Err, diag) //nolint:errcheck // terminal output
	}
}

// Finished prints the summary message.
func (p *TextProgress) Finished(outcome *model.Outcome) {
	if outcome.Passed() {
		fmt.Fprintln(p.Out, MessageSuccess) //nolint:errcheck // terminal output
		return
	}
	fmt.Fprintln(p.Err, MessageFailure) //nolint:errcheck // terminal output
}

func label(stage model.Stage, i int) string {
	if l, ok := stageLabels[stage]; ok {
		return l[i]
	}
	return string(stage)
}
