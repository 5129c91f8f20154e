package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/specvalidate/internal/model"
)

// SimpleWriter outputs a human-readable text summary.
type SimpleWriter struct {
	baseWriter

	// verbose includes the captured output of every stage.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the outcome in human-readable format.
func (w *SimpleWriter) Write(outcome *model.Outcome) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, outcome)
	w.writeStages(&sb, outcome)
	w.writeArtifact(&sb, outcome)
	w.writeFooter(&sb, outcome)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, outcome *model.Outcome) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       SPECVALIDATE REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Document:  %s\n", outcome.Document)
	if outcome.RunID != "" {
		fmt.Fprintf(sb, "Run ID:    %s\n", outcome.RunID)
	}
	fmt.Fprintf(sb, "Started:   %s\n", outcome.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:  %s\n", formatDuration(outcome.Duration()))

	if outcome.Passed() {
		sb.WriteString("Result:    PASSED\n")
	} else {
		fmt.Fprintf(sb, "Result:    FAILED (%s)\n", outcome.FailedStage)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeStages(sb *strings.Builder, outcome *model.Outcome) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("STAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(outcome.Stages) == 0 {
		sb.WriteString("  No stage ran.\n\n")
		return
	}

	for _, st := range outcome.Stages {
		indicator := "[PASS]"
		if !st.Passed {
			indicator = "[FAIL]"
		}
		fmt.Fprintf(sb, "  %s %-12s exit %-3d %s\n",
			indicator, stageTitle(st.Stage), st.ExitCode, formatDuration(st.Duration))

		if w.verbose && st.Output != "" {
			for _, line := range strings.Split(strings.TrimRight(st.Output, "\n"), "\n") {
				sb.WriteString("         | ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeArtifact(sb *strings.Builder, outcome *model.Outcome) {
	a := outcome.Artifact
	if a == nil {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ARTIFACT\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  Path:   %s\n", a.Path)
	if a.Title != "" {
		fmt.Fprintf(sb, "  Title:  %s\n", a.Title)
	}
	fmt.Fprintf(sb, "  Links:  %d (%d external)\n", a.LinkCount, a.ExternalLinkCount)
	if len(a.BrokenFragments) > 0 {
		fmt.Fprintf(sb, "  Fragment links without target: %s\n", strings.Join(a.BrokenFragments, ", "))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, outcome *model.Outcome) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	if !outcome.Passed() && outcome.Diagnostic != "" && !w.verbose {
		sb.WriteString("Diagnostic of the failing stage:\n")
		sb.WriteString(strings.TrimRight(outcome.Diagnostic, "\n"))
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("=", 70))
		sb.WriteString("\n")
	}
}
