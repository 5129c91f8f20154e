// Package report writes the summary of a validation run.
//
// Three formats are available:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: structured output for CI tooling
//   - MarkdownWriter: a summary suitable for pull request comments
//
// Writers implement the Writer interface and take a *model.Outcome.
package report
