package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/acsmirror/internal/burst"
	"github.com/nao1215/acsmirror/internal/metadata"
	"github.com/nao1215/acsmirror/internal/model"
)

// State carries what the steps of one pipeline produced.
// Each step fills in its own part; later steps may read earlier parts.
type State struct {
	// Summaries holds one crawl summary per crawl step, in step order.
	Summaries []*model.Summary

	// Burst is set by BurstStep.
	Burst *burst.Result

	// Assembly is set by AssembleStep.
	Assembly *metadata.Stats

	// Performed lists the names of the steps that completed.
	Performed []string

	// Err is the error of the step that stopped the pipeline.
	Err error
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the state left by the
// previous ones.
type Step interface {
	// Do executes the step. A returned error stops the pipeline unless it
	// was created with WithContinueOnError.
	Do(ctx context.Context, state *State) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in order.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing steps after one fails. The first
// failure is still kept in State.Err and returned.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
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

// Execute runs all steps in sequence and returns the resulting state.
// Cancellation is checked before each step; a step in progress handles
// it on its own.
func (p *Pipeline) Execute(ctx context.Context) (*State, error) {
	state := &State{}
	p.logger.Debug("running pipeline", "steps", p.StepCount(), "names", p.StepNames())
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline canceled", "step", step.Name(), "reason", err)
			if state.Err == nil {
				state.Err = err
			}
			return state, state.Err
		}

		p.logger.Debug("executing step", "step", step.Name())
		if err := step.Do(ctx, state); err != nil {
			p.logger.Error("step failed", "step", step.Name(), "error", err)
			if state.Err == nil {
				state.Err = err
			}
			if !p.continueOnError {
				return state, err
			}
			continue
		}
		state.Performed = append(state.Performed, step.Name())
	}
	return state, state.Err
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
