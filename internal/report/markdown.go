package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/specvalidate/internal/model"
)

// maxDetailsOutput caps the captured output embedded in a Markdown report.
const maxDetailsOutput = 4000

// MarkdownWriter outputs reports in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter

	// includeOutput embeds the output of passing stages too.
	includeOutput bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownOutput embeds the captured output of every stage, not only
// the failing one.
func WithMarkdownOutput(include bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.includeOutput = include
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the outcome in Markdown format.
func (w *MarkdownWriter) Write(outcome *model.Outcome) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, outcome)
	w.writeAlert(md, outcome)
	w.writeStages(md, outcome)
	w.writeArtifact(md, outcome)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, outcome *model.Outcome) {
	md.H1("Validation Report")
	md.PlainText("")

	status := "✅ Passed"
	if !outcome.Passed() {
		status = "❌ Failed at " + stageTitle(outcome.FailedStage)
	}

	rows := [][]string{
		{"Document", "`" + outcome.Document + "`"},
		{"Started", outcome.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", formatDuration(outcome.Duration())},
		{"Status", status},
	}
	if outcome.RunID != "" {
		rows = append(rows, []string{"Run ID", "`" + outcome.RunID + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, outcome *model.Outcome) {
	if outcome.Passed() {
		md.Tip(fmt.Sprintf("All %d stage(s) passed.", len(outcome.Stages)))
	} else {
		md.Cautionf("The %s stage failed. Later stages did not run.", outcome.FailedStage)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeStages(md *markdown.Markdown, outcome *model.Outcome) {
	md.H2("Stages")
	md.PlainText("")

	if len(outcome.Stages) == 0 {
		md.PlainText("No stage ran.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(outcome.Stages))
	for i, st := range outcome.Stages {
		indicator := "✅"
		if !st.Passed {
			indicator = "❌"
		}
		rows[i] = []string{
			stageTitle(st.Stage),
			indicator + " " + resultText(st.Passed),
			strconv.Itoa(st.ExitCode),
			formatDuration(st.Duration),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Stage", "Result", "Exit Code", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(outcome.Stages) > 1 {
		w.writeDurationChart(md, outcome)
	}

	for _, st := range outcome.Stages {
		if st.Output == "" || (st.Passed && !w.includeOutput) {
			continue
		}
		md.Details(stageTitle(st.Stage)+" output",
			"\n```\n"+truncateString(strings.TrimRight(st.Output, "\n"), maxDetailsOutput)+"\n```\n")
	}
	md.PlainText("")
}

// writeDurationChart writes a mermaid pie chart of time spent per stage.
func (w *MarkdownWriter) writeDurationChart(md *markdown.Markdown, outcome *model.Outcome) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Time per stage (ms)"),
		piechart.WithShowData(true),
	)
	for _, st := range outcome.Stages {
		ms := st.Duration.Milliseconds()
		if ms < 0 {
			ms = 0
		}
		chart.LabelAndIntValue(stageTitle(st.Stage), uint64(ms))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeArtifact(md *markdown.Markdown, outcome *model.Outcome) {
	a := outcome.Artifact
	if a == nil {
		return
	}

	md.H2("Artifact")
	md.PlainText("")

	items := []string{
		"Path: `" + a.Path + "`",
		"Links: " + strconv.Itoa(a.LinkCount) + " (" + strconv.Itoa(a.ExternalLinkCount) + " external)",
	}
	if a.Title != "" {
		items = append([]string{"Title: " + a.Title}, items...)
	}
	md.BulletList(items...)
	md.PlainText("")

	if len(a.BrokenFragments) > 0 {
		md.Warningf("%d fragment link(s) have no target: %s",
			len(a.BrokenFragments), strings.Join(a.BrokenFragments, ", "))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [specvalidate](https://github.com/nao1215/specvalidate)*")
}
