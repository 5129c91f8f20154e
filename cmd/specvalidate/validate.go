package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/specvalidate/internal/config"
	"github.com/nao1215/specvalidate/internal/database"
	"github.com/nao1215/specvalidate/internal/log"
	"github.com/nao1215/specvalidate/internal/manifest"
	"github.com/nao1215/specvalidate/internal/model"
	"github.com/nao1215/specvalidate/internal/pipeline"
	"github.com/nao1215/specvalidate/internal/report"
	"github.com/nao1215/specvalidate/internal/runner"
	"github.com/nao1215/specvalidate/internal/server"
)

// shutdownTimeout bounds how long the file server may take to stop.
const shutdownTimeout = 5 * time.Second

// validateDeps holds the parts of a validation run that tests replace.
type validateDeps struct {
	// newRunner creates the runner for the external validators.
	newRunner func(cfg *config.Config, logger *slog.Logger, stderr io.Writer) runner.Runner

	// lookupTools checks that the validator executables exist.
	// Nil skips the check.
	lookupTools func(names ...string) error

	// getenv reads environment variables.
	getenv func(string) string

	// dotEnvFiles are loaded into the environment before flags are read.
	dotEnvFiles []string
}

// defaultDeps returns the dependencies used by the real CLI.
func defaultDeps() validateDeps {
	return validateDeps{
		newRunner: func(cfg *config.Config, logger *slog.Logger, stderr io.Writer) runner.Runner {
			opts := []runner.Option{runner.WithLogger(logger)}
			if cfg.Debug {
				opts = append(opts, runner.WithEcho(stderr))
			}
			return runner.NewExecRunner(opts...)
		},
		lookupTools: runner.LookupTools,
		getenv:      os.Getenv,
		dotEnvFiles: []string{".env"},
	}
}

// newValidateCmd creates the command that validates one document.
// It is the root command of the CLI.
func newValidateCmd(deps validateDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specvalidate [document]",
		Short: "Validate a specification document",
		Long: `specvalidate checks that a specification document builds cleanly and
produces valid, link-correct HTML.

It serves the current directory on a local port, then runs in order:
- the document processor (respec), which renders the document and fails on
  any error or warning
- the HTML/CSS conformance validator (vnu) on the generated file
- the link checker (linkinator) on the generated file's directory

The first failing stage stops the run. The exit status is 0 only if every
enabled stage passed.

Examples:
  # Validate index.html in the current directory
  specvalidate

  # Validate another document without checking links
  specvalidate spec.html --no-links

  # Override the publication status and authenticate to GitHub
  specvalidate --status WD --token "$GITHUB_TOKEN" --user octocat

  # Skip links that point to published documents listed in a manifest
  specvalidate --manifest MANIFEST

  # Write a Markdown summary for a CI job
  specvalidate --markdown -o report.md

A document named like a subcommand (init, history, version) must be
given with a path prefix, e.g. "specvalidate ./history".

Environment:
  SPECVALIDATE_DEBUG=1  enable debug logging, stream validator output and
                        keep the generated artifact`,
		Version:       getVersion(),
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateCmd(cmd, args, deps)
		},
	}

	// Stage selection flags
	cmd.Flags().BoolP("no-links", "l", false, "Skip link checking")
	cmd.Flags().BoolP("no-markup", "n", false, "Skip HTML/CSS conformance checking")
	cmd.Flags().BoolP("use-get", "g", false, "Probe links with GET instead of HEAD")

	// Document overrides
	cmd.Flags().StringP("status", "s", "", "Override the publication status of the document")
	cmd.Flags().StringP("token", "t", "", "Authentication token for the document processor")
	cmd.Flags().StringP("user", "u", "", "User associated with the token (requires --token)")
	cmd.Flags().StringP("manifest", "M", "", "Manifest of published documents excluded from link checking")

	// Server flags
	cmd.Flags().IntP("port", "p", config.DefaultPort, "Port of the local file server")
	cmd.Flags().StringP("root", "r", ".", "Directory served by the local file server")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .specvalidate in current directory or XDG config)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false, "Print a JSON summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Print a Markdown summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "", "Write the summary to the specified file")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")

	return cmd
}

// runValidateCmd executes a validation run from the command line.
func runValidateCmd(cmd *cobra.Command, args []string, deps validateDeps) error {
	if err := config.LoadDotEnv(deps.dotEnvFiles...); err != nil {
		return err
	}

	cfg, err := buildConfig(cmd, args, deps.getenv)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runValidate(ctx, cfg, deps, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the configuration file and cobra flags.
// Flags override the file only when they were given explicitly.
func buildConfig(cmd *cobra.Command, args []string, getenv func(string) string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user named a config file it must exist; otherwise a missing
	// file just means built-in defaults.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if len(args) > 0 {
		cfg.Document = args[0]
	}

	if cfg.SkipLinks, err = flags.GetBool("no-links"); err != nil {
		return nil, err
	}
	if cfg.SkipMarkup, err = flags.GetBool("no-markup"); err != nil {
		return nil, err
	}
	if cfg.UseGet, err = flags.GetBool("use-get"); err != nil {
		return nil, err
	}
	if cfg.Status, err = flags.GetString("status"); err != nil {
		return nil, err
	}
	if cfg.Token, err = flags.GetString("token"); err != nil {
		return nil, err
	}
	if cfg.User, err = flags.GetString("user"); err != nil {
		return nil, err
	}

	if flags.Changed("manifest") {
		if cfg.ManifestPath, err = flags.GetString("manifest"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("port") {
		if cfg.Port, err = flags.GetInt("port"); err != nil {
			return nil, err
		}
	}
	if cfg.RootDir, err = flags.GetString("root"); err != nil {
		return nil, err
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory

	cfg.Debug = config.DebugFromEnv(getenv)
	cfg.Verbose = getVerboseFlag(cmd) || cfg.Debug

	return cfg, nil
}

// runValidate performs one validation run. It returns an error wrapping
// ErrValidationFailed when a stage failed and any other error when the
// run could not be carried out.
func runValidate(ctx context.Context, cfg *config.Config, deps validateDeps, stdout, stderr io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ignore, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	logger := log.NewSecureLogger(stderr, cfg.Verbose)
	req := cfg.Request()

	if deps.lookupTools != nil {
		if err := deps.lookupTools(toolCommands(cfg, req)...); err != nil {
			return err
		}
	}

	workDir, err := os.MkdirTemp("", config.AppName+"-*")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer func() {
		if cfg.Debug {
			logger.Warn("debug mode: keeping generated artifact", "dir", workDir)
			return
		}
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("failed to remove work directory", "dir", workDir, "error", err)
		}
	}()

	srv := server.New(cfg.RootDir,
		server.WithPort(cfg.Port),
		server.WithLogger(logger),
	)
	if err := srv.Listen(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)

	outcome := model.NewOutcome(uuid.NewString(), cfg.Document)
	sourceURL := srv.URL(cfg.Document, req.Overrides())
	logger.Info("starting validation",
		"run_id", outcome.RunID,
		"document", cfg.Document,
		"source", sourceURL,
		"stages", req.Stages(),
	)

	p := pipeline.DefaultPipeline(cfg, deps.newRunner(cfg, logger, stderr), sourceURL, workDir, ignore,
		pipeline.WithLogger(logger),
		pipeline.WithProgress(pipeline.NewTextProgress(stdout, stderr)),
	)
	execErr := p.Execute(gctx, outcome)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to stop file server", "error", err)
	}
	if err := g.Wait(); err != nil {
		logger.Warn("file server stopped with error", "error", err)
	}

	if !outcome.State.IsTerminal() {
		return execErr
	}

	if err := writeReport(cfg, outcome, stdout); err != nil {
		logger.Error("failed to write report", "error", err)
	}

	if cfg.SaveHistory {
		recordHistory(ctx, cfg.DBDir, outcome, logger, stdout)
	}

	if execErr != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, execErr)
	}
	return nil
}

// toolCommands returns the executables of the enabled stages.
func toolCommands(cfg *config.Config, req model.Request) []string {
	var names []string
	for _, stage := range req.Stages() {
		switch stage {
		case model.StageGenerate:
			names = append(names, cfg.Generator.Command)
		case model.StageMarkup:
			names = append(names, cfg.Markup.Command)
		case model.StageLinks:
			names = append(names, cfg.LinkChecker.Command)
		}
	}
	return names
}

// reportFormat returns the summary format requested by the configuration.
// The zero value means no summary was requested.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	case cfg.ReportFile != "":
		return report.FormatSimple
	default:
		return ""
	}
}

// writeReport writes the run summary when one was requested, to the
// report file if set and to stdout otherwise.
func writeReport(cfg *config.Config, outcome *model.Outcome, stdout io.Writer) error {
	format := reportFormat(cfg)
	if format == "" {
		return nil
	}

	output := stdout
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain validator output for unpublished documents.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	_, err := report.New(format, output, getVersion(), cfg.Verbose).Write(outcome)
	return err
}

// recordHistory stores the outcome in the history database and tells the
// user when the result differs from the previous run of the document.
// Failures are logged; they never change the exit status.
func recordHistory(ctx context.Context, dbDir string, outcome *model.Outcome, logger *slog.Logger, stdout io.Writer) {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("history unavailable", "dir", dbDir, "error", err)
		return
	}
	defer db.Close()

	previous, err := db.LatestRun(ctx, outcome.Document)
	if err != nil && !errors.Is(err, database.ErrRunNotFound) {
		logger.Warn("failed to read previous run", "error", err)
	}

	if err := db.SaveOutcome(ctx, outcome); err != nil {
		logger.Warn("failed to record run", "error", err)
		return
	}
	logger.Debug("run recorded", "run_id", outcome.RunID, "db", db.Path())

	if previous != nil && previous.Passed() != outcome.Passed() {
		fmt.Fprintf(stdout, "Result changed since the previous run (%s): %s -> %s\n",
			previous.StartedAt.Local().Format(time.DateTime),
			resultWord(previous.Passed()),
			resultWord(outcome.Passed()),
		)
	}
}

// resultWord returns "passed" or "failed".
func resultWord(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}
