package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/nao1215/gatewayscan/internal/model"
)

// Step is one stage of the per-candidate state machine.
// Steps run in sequence and share the candidate's Scan.
type Step interface {
	// Do executes the step. A non-nil error moves the candidate to FAILED.
	// Errors of type *StepError keep their kind; any other error is
	// recorded as model.KindUnexpected.
	Do(ctx context.Context, scan *Scan) error

	// Name returns the step's name for logging.
	Name() string

	// State returns the analyzer state entered while the step runs.
	State() model.State
}

// StepError is a classified step failure.
type StepError struct {
	Kind   model.ErrorKind
	Detail string
	Err    error
}

// Error implements error.
func (e *StepError) Error() string {
	if e.Err != nil && e.Detail != e.Err.Error() {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline executes steps in order for one candidate.
// A Pipeline holds no per-candidate state and may be reused.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
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

// Execute runs the steps until one fails or all succeed, then moves the
// candidate to REPORTED or FAILED. It never panics: a panicking step is
// recorded as an unexpected failure. A scan already in a terminal state
// is left untouched.
func (p *Pipeline) Execute(ctx context.Context, scan *Scan) {
	if scan.Candidate.State.IsTerminal() {
		return
	}
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("analysis cancelled",
				"step", step.Name(),
				"url", scan.Candidate.DisplayURL(),
				"reason", err,
			)
			scan.fail(model.KindUnexpected, "cancelled: "+err.Error())
			return
		}

		scan.Candidate.State = step.State()
		p.logger.Debug("executing step",
			"step", step.Name(),
			"state", step.State().String(),
			"url", scan.Candidate.DisplayURL(),
		)

		if err := p.run(ctx, step, scan); err != nil {
			kind := model.KindUnexpected
			detail := err.Error()
			var se *StepError
			if errors.As(err, &se) {
				kind = se.Kind
				detail = se.Detail
			}
			p.logger.Warn("step failed",
				"step", step.Name(),
				"url", scan.Candidate.DisplayURL(),
				"kind", kind.String(),
				"error", err,
			)
			scan.fail(kind, detail)
			return
		}
	}
	scan.Candidate.State = model.StateReported
}

// run executes one step and converts a panic into an error.
func (p *Pipeline) run(ctx context.Context, step Step, scan *Scan) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("step panicked",
				"step", step.Name(),
				"url", scan.Candidate.DisplayURL(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = &StepError{Kind: model.KindUnexpected, Detail: fmt.Sprintf("Error: %v", r)}
		}
	}()
	return step.Do(ctx, scan)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
