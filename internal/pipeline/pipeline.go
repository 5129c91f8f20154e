package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/specvalidate/internal/log"
	"github.com/nao1215/specvalidate/internal/model"
	"github.com/nao1215/specvalidate/internal/runner"
)

// Step is one validation stage.
type Step interface {
	// Do runs the stage's external process and returns its result.
	// A non-zero exit is reported through the result, not the error.
	// Errors mean the process could not produce a usable result.
	Do(ctx context.Context, outcome *model.Outcome) (*runner.Result, error)

	// Stage identifies the step in the state machine and in reports.
	Stage() model.Stage
}

// Pipeline executes steps in order and stops at the first failure.
type Pipeline struct {
	steps    []Step
	logger   *slog.Logger
	progress Progress
	secrets  []string
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithProgress sets the receiver of stage progress events.
func WithProgress(progress Progress) Option {
	return func(p *Pipeline) {
		p.progress = progress
	}
}

// WithSecrets sets values that are masked in the stage output and the
// diagnostic stored in the outcome. Empty values are ignored.
func WithSecrets(secrets ...string) Option {
	return func(p *Pipeline) {
		for _, s := range secrets {
			if s != "" {
				p.secrets = append(p.secrets, s)
			}
		}
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0, 3),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.progress == nil {
		p.progress = nopProgress{}
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// Stages returns the stages of all steps in execution order.
func (p *Pipeline) Stages() []model.Stage {
	stages := make([]model.Stage, len(p.steps))
	for i, step := range p.steps {
		stages[i] = step.Stage()
	}
	return stages
}

// Execute runs every step in order, moving outcome through the state
// machine. It leaves outcome in a terminal state and returns the
// *StageError of the failing step, or nil when all steps passed.
//
// The outcome must be in StateStart and the pipeline must have at least
// one step.
func (p *Pipeline) Execute(ctx context.Context, outcome *model.Outcome) error {
	if len(p.steps) == 0 {
		return errors.New("pipeline has no steps")
	}

	for _, step := range p.steps {
		stage := step.Stage()
		if err := outcome.Transition(stage.State()); err != nil {
			return err
		}

		p.progress.StageStarted(stage)
		p.logger.Info("executing stage", "stage", stage, "document", outcome.Document)

		if stageErr := p.runStep(ctx, step, outcome); stageErr != nil {
			p.logger.Error("stage failed",
				"stage", stage,
				"exit_code", stageErr.ExitCode,
				"error", stageErr,
			)
			outcome.Fail(stage, p.redact(stageErr.Diagnostic()))
			if err := outcome.Transition(model.StateFailed); err != nil {
				return err
			}
			p.progress.StageFailed(stage, stageErr)
			p.progress.Finished(outcome)
			return stageErr
		}

		p.logger.Debug("stage passed", "stage", stage)
		p.progress.StagePassed(stage)
	}

	if err := outcome.Transition(model.StateSuccess); err != nil {
		return err
	}
	p.progress.Finished(outcome)
	return nil
}

// runStep runs one step, records its result and returns a *StageError
// when the stage did not pass.
func (p *Pipeline) runStep(ctx context.Context, step Step, outcome *model.Outcome) *StageError {
	stage := step.Stage()
	start := time.Now()

	var (
		result *runner.Result
		err    error
	)
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("not started: %w", ctxErr)
	} else {
		result, err = step.Do(ctx, outcome)
	}

	record := model.StageResult{
		Stage:    stage,
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if result != nil {
		record.ExitCode = result.ExitCode
		record.Output = p.redact(result.Output)
	}
	record.Passed = err == nil && result != nil && result.Success()
	outcome.Record(record)

	if record.Passed {
		return nil
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr
	}
	stageErr = &StageError{
		Stage:    stage,
		ExitCode: record.ExitCode,
		Err:      err,
	}
	if result != nil {
		stageErr.Output = result.Output
	}
	return stageErr
}

// redact masks token query parameters and the configured secrets in text
// that is kept in the outcome. The outcome ends up in reports and history.
func (p *Pipeline) redact(text string) string {
	text = log.RedactURL(text)
	for _, secret := range p.secrets {
		text = strings.ReplaceAll(text, secret, log.MaskValue)
	}
	return text
}
