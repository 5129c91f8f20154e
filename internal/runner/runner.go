package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Command describes one external process invocation.
type Command struct {
	// Name is the executable name or path.
	Name string

	// Args are the process arguments, not including Name.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Timeout bounds the process lifetime. Zero means no limit beyond the
	// caller's context.
	Timeout time.Duration
}

// String returns the command line, space separated.
// Callers that log it should go through the secure logger, which masks tokens.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is the structured outcome of a finished process.
type Result struct {
	// ExitCode is the process exit status.
	ExitCode int

	// Output is the interleaved stdout and stderr text.
	Output string

	// Duration is the wall-clock time the process ran.
	Duration time.Duration
}

// Success reports whether the process exited with status 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Runner runs external processes.
// A non-zero exit status is not an error: it is reported in Result.
// Errors mean the process could not be started, timed out, or was cancelled.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger *slog.Logger
	echo   io.Writer
}

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithLogger sets the logger used for process start and exit messages.
func WithLogger(logger *slog.Logger) Option {
	return func(r *ExecRunner) {
		r.logger = logger
	}
}

// WithEcho copies process output to w while it is captured.
// Debug mode uses it to stream validator output to the terminal.
func WithEcho(w io.Writer) Option {
	return func(r *ExecRunner) {
		r.echo = w
	}
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run starts cmd, waits for it to exit and returns its result.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if strings.TrimSpace(cmd.Name) == "" {
		return nil, ErrEmptyCommand
	}

	path, err := exec.LookPath(cmd.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, cmd.Name)
	}

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	var output bytes.Buffer
	var sink io.Writer = &output
	if r.echo != nil {
		sink = io.MultiWriter(&output, r.echo)
	}

	c := exec.CommandContext(runCtx, path, cmd.Args...) //nolint:gosec // validator commands come from the user's configuration
	c.Dir = cmd.Dir
	c.Stdout = sink
	c.Stderr = sink
	// Children that inherit the output pipes must not block Wait forever.
	c.WaitDelay = 5 * time.Second

	r.logger.Debug("starting process", "command", cmd.Name, "args", cmd.Args, "dir", cmd.Dir)

	start := time.Now()
	err = c.Run()
	duration := time.Since(start)

	if runCtx.Err() != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s interrupted: %w", cmd.Name, ctx.Err())
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return &Result{ExitCode: -1, Output: output.String(), Duration: duration},
				fmt.Errorf("%w: %s after %s", ErrTimeout, cmd.Name, cmd.Timeout)
		}
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to run %s: %w", cmd.Name, err)
		}
		exitCode = exitErr.ExitCode()
	}

	r.logger.Debug("process exited",
		"command", cmd.Name,
		"exit_code", exitCode,
		"duration", duration,
	)

	return &Result{
		ExitCode: exitCode,
		Output:   output.String(),
		Duration: duration,
	}, nil
}

// LookupTools checks that every named executable is on PATH.
// It returns an error wrapping ErrToolNotFound naming all missing tools.
func LookupTools(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrToolNotFound, strings.Join(missing, ", "))
	}
	return nil
}

// Func adapts an ordinary function to the Runner interface.
type Func func(ctx context.Context, cmd Command) (*Result, error)

// Run calls f(ctx, cmd).
func (f Func) Run(ctx context.Context, cmd Command) (*Result, error) {
	return f(ctx, cmd)
}
