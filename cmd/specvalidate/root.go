package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Process exit statuses.
const (
	// ExitOK is returned when every enabled stage passed.
	ExitOK = 0

	// ExitFailure is returned for validation failures and runtime errors.
	ExitFailure = 1

	// ExitUsage is returned for unrecognized flags and surplus arguments.
	// Missing or invalid flag values exit with ExitFailure.
	ExitUsage = 127
)

// ErrValidationFailed is returned when a stage failed. Its diagnostic has
// already been printed by the progress output, so Execute stays quiet.
var ErrValidationFailed = errors.New("validation failed")

// UsageError reports a command line the CLI cannot parse.
type UsageError struct {
	Err error
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the parse error.
func (e *UsageError) Unwrap() error {
	return e.Err
}

// NewRootCmd creates the root command for specvalidate.
// Running it without a subcommand validates a document.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultDeps())
}

func newRootCmd(deps validateDeps) *cobra.Command {
	cmd := newValidateCmd(deps)

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		if isUnknownFlag(err) {
			return &UsageError{Err: err}
		}
		return err
	})

	// Add subcommands
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with its status.
func Execute() {
	os.Exit(execute(NewRootCmd(), os.Stderr))
}

// execute runs cmd, prints any error worth showing to stderr and returns
// the process exit status.
func execute(cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.Execute()
	if err == nil {
		return ExitOK
	}
	if !errors.Is(err, ErrValidationFailed) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return exitCode(err)
}

// exitCode maps an error returned by a command to an exit status.
func exitCode(err error) int {
	var usageErr *UsageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &usageErr):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// isUnknownFlag reports whether a flag parse error names a flag the
// command does not define. Missing or malformed flag values are ordinary
// errors.
func isUnknownFlag(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown flag") || strings.HasPrefix(msg, "unknown shorthand flag")
}

// usageArgs wraps a positional argument validator so that its errors
// become usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}
