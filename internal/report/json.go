package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/specvalidate/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is recorded in the report wrapper.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the tool version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps an outcome with output-only fields.
type JSONReport struct {
	// Version is the specvalidate version that produced the report.
	Version string `json:"version,omitempty"`

	// Passed mirrors the terminal state for consumers that only need a bool.
	Passed bool `json:"passed"`

	// ExitCode is the process exit status of the run.
	ExitCode int `json:"exit_code"`

	// DurationMS is the total run time in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// Outcome is the full run outcome.
	Outcome *model.Outcome `json:"outcome"`
}

// NewJSONReport builds the wrapper for outcome.
func NewJSONReport(outcome *model.Outcome, version string) *JSONReport {
	return &JSONReport{
		Version:    version,
		Passed:     outcome.Passed(),
		ExitCode:   outcome.ExitCode(),
		DurationMS: outcome.Duration().Milliseconds(),
		Outcome:    outcome,
	}
}

// Write outputs the outcome wrapped in a JSONReport.
func (w *JSONWriter) Write(outcome *model.Outcome) (int, error) {
	return w.writeJSON(NewJSONReport(outcome, w.version))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
