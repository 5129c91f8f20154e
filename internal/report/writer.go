package report

import (
	"io"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/specvalidate/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the outcome to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(outcome *model.Outcome) (int, error)
}

// Format selects a report writer.
type Format string

const (
	// FormatSimple is plain terminal text.
	FormatSimple Format = "simple"

	// FormatJSON is indented JSON.
	FormatJSON Format = "json"

	// FormatMarkdown is GitHub-flavored Markdown.
	FormatMarkdown Format = "markdown"
)

// New returns the writer for format. Unknown formats fall back to simple text.
func New(format Format, output io.Writer, version string, verbose bool) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version))
	case FormatMarkdown:
		return NewMarkdownWriter(output, WithMarkdownOutput(verbose))
	default:
		return NewSimpleWriter(output, WithVerbose(verbose))
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

var titleCaser = cases.Title(language.English)

// stageTitle returns the display name of a stage, e.g. "Generation".
func stageTitle(stage model.Stage) string {
	return titleCaser.String(string(stage))
}

// resultText returns "passed" or "failed".
func resultText(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(100 * time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Millisecond).String()
	default:
		return d.String()
	}
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
