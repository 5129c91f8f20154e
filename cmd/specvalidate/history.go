package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/specvalidate/internal/config"
	"github.com/nao1215/specvalidate/internal/database"
	"github.com/nao1215/specvalidate/internal/report"
)

// defaultHistoryLimit is the number of runs listed when --limit is not given.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// This command shows validation runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past validation runs",
		Long: `History lists validation runs recorded in the database.

Every validation run is recorded unless --no-history is given. The database
lives in the XDG data directory (~/.local/share/specvalidate on Linux).

Examples:
  # List the most recent runs of every document
  specvalidate history

  # List runs of one document
  specvalidate history --document spec.html

  # Show the full result of one run
  specvalidate history --id 3f2c9a1e-...

  # List every document with recorded runs
  specvalidate history --list-documents

  # Keep only the newest 10 runs of each document
  specvalidate history --prune 10`,
		Args: usageArgs(cobra.NoArgs),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("document", "d", "", "Only list runs of this document")
	cmd.Flags().BoolP("list-documents", "L", false, "List all documents with recorded runs")
	cmd.Flags().StringP("id", "i", "", "Show the full result of the run with this ID")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of runs to list (0 lists all)")
	cmd.Flags().Int("prune", -1, "Delete all but the newest N runs of each document")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")

	// Output format flags, used with --id
	cmd.Flags().BoolP("json", "j", false, "Show the run in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Show the run in Markdown format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	out := cmd.OutOrStdout()

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No validation history found.")
		fmt.Fprintln(out, "\nRun 'specvalidate [document]' to validate a document.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	keep, err := flags.GetInt("prune")
	if err != nil {
		return err
	}
	if keep >= 0 {
		deleted, err := db.PruneRuns(ctx, keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d run(s).\n", deleted)
		return nil
	}

	listDocuments, err := flags.GetBool("list-documents")
	if err != nil {
		return err
	}
	if listDocuments {
		return listValidatedDocuments(ctx, db, out)
	}

	id, err := flags.GetString("id")
	if err != nil {
		return err
	}
	if id != "" {
		format, err := historyFormat(cmd)
		if err != nil {
			return err
		}
		return showRun(ctx, db, id, format, getVerboseFlag(cmd), out)
	}

	document, err := flags.GetString("document")
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	return listRuns(ctx, db, document, limit, out)
}

// historyFormat returns the output format selected for --id.
func historyFormat(cmd *cobra.Command) (report.Format, error) {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return "", err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return "", err
	}
	switch {
	case jsonOutput && markdownOutput:
		return "", config.ErrConflictingReportFormats
	case jsonOutput:
		return report.FormatJSON, nil
	case markdownOutput:
		return report.FormatMarkdown, nil
	default:
		return report.FormatSimple, nil
	}
}

// listValidatedDocuments prints every document with recorded runs.
func listValidatedDocuments(ctx context.Context, db *database.HistoryDB, out io.Writer) error {
	documents, err := db.ListDocuments(ctx)
	if err != nil {
		return err
	}

	if len(documents) == 0 {
		fmt.Fprintln(out, "No validated documents found in the database.")
		return nil
	}

	fmt.Fprintf(out, "Validated documents (%d):\n\n", len(documents))
	for _, document := range documents {
		fmt.Fprintf(out, "  • %s\n", document)
	}
	return nil
}

// showRun prints the stored outcome of one run.
func showRun(ctx context.Context, db *database.HistoryDB, id string, format report.Format, verbose bool, out io.Writer) error {
	outcome, err := db.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			return fmt.Errorf("%w: %s (use 'specvalidate history' to see run IDs)", err, id)
		}
		return err
	}

	_, err = report.New(format, out, getVersion(), verbose).Write(outcome)
	return err
}

// listRuns prints a table of runs, newest first.
func listRuns(ctx context.Context, db *database.HistoryDB, document string, limit int, out io.Writer) error {
	runs, err := db.ListRuns(ctx, document, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		if document != "" {
			fmt.Fprintf(out, "No runs recorded for %s.\n", document)
		} else {
			fmt.Fprintln(out, "No runs recorded.")
		}
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-19s  %-6s  %-10s  %-9s  %s\n",
		"ID", "STARTED", "RESULT", "FAILED AT", "DURATION", "DOCUMENT")
	fmt.Fprintln(out, strings.Repeat("-", 100))
	for _, run := range runs {
		failedAt := run.FailedStage
		if failedAt == "" {
			failedAt = "-"
		}
		fmt.Fprintf(out, "%-36s  %-19s  %-6s  %-10s  %-9s  %s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			strings.ToUpper(resultWord(run.Passed)),
			failedAt,
			run.Duration.Round(time.Millisecond),
			run.Document,
		)
	}
	return nil
}
