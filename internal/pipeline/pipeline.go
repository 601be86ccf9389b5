package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jgivc/rocketimages/internal/entity"
)

// Pipeline is a validated, immutable list of steps. It can be run many times.
type Pipeline struct {
	name  string
	steps []Step
	log   *slog.Logger
	now   func() time.Time
}

/*
New validates steps and rejects:
  - an empty step list
  - empty or duplicate step names
  - a step input naming an unknown or later step
*/
func New(name string, log *slog.Logger, steps ...Step) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, invalidf("no steps")
	}

	index := make(map[string]int, len(steps))
	for i, s := range steps {
		if s.name == "" {
			return nil, invalidf("step %d has no name", i)
		}

		if s.run == nil {
			return nil, invalidf("step %q has no func", s.name)
		}

		if _, exists := index[s.name]; exists {
			return nil, invalidf("duplicate step name: %q", s.name)
		}

		if s.input != "" {
			if _, exists := index[s.input]; !exists {
				return nil, invalidf("step %q input %q must be an earlier step", s.name, s.input)
			}
		}

		index[s.name] = i
	}

	return &Pipeline{
		name:  name,
		steps: append([]Step(nil), steps...),
		log:   log.With(slog.String("item", "Pipeline"), slog.String("pipeline", name)),
		now:   time.Now,
	}, nil
}

func (p *Pipeline) Name() string { return p.name }

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.name
	}

	return names
}

/*
Run executes every step in order. A failed step, or a context done before a
step starts, ends the run: the remaining steps are SKIPPED and the error is
returned as *StepError. The result is always non-nil.
*/
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	res := newResult(uuid.NewString(), p.name, p.steps, p.now())
	log := p.log.With(slog.String("run_id", res.RunID))
	log.Info("Start run", slog.Any("steps", p.Steps()))

	var runErr error
	for i, s := range p.steps {
		if err := ctx.Err(); err != nil {
			runErr = &StepError{Step: s.name, Err: err}
			res.fail(i, err, p.now())
			res.skipFrom(i + 1)

			break
		}

		res.start(i, p.now())
		stepLog := log.With(slog.String("step", s.name))
		stepLog.Info("Start step")

		var in any
		if s.input != "" {
			in = res.Outputs[s.input]
		}

		out, err := s.run(ctx, in)
		if err != nil {
			runErr = &StepError{Step: s.name, Err: err}
			res.fail(i, err, p.now())
			res.skipFrom(i + 1)
			stepLog.Error("Step failed", slog.Any("error", err))

			break
		}

		res.complete(i, out, p.now())
		stepLog.Info("Step completed", slog.Duration("took", res.Steps[i].FinishedAt.Sub(res.Steps[i].StartedAt)))
	}

	res.FinishedAt = p.now()
	res.Err = runErr

	if runErr != nil {
		log.Error("Run failed", slog.Any("error", runErr))

		return res, runErr
	}

	log.Info("Run succeeded", slog.Duration("took", res.FinishedAt.Sub(res.StartedAt)))

	return res, nil
}

// Result is the outcome of one Run.
type Result struct {
	RunID      string
	Pipeline   string
	Steps      []StepResult // In execution order
	Outputs    map[string]any
	Order      []string // Steps that were started
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

type StepResult struct {
	Name       string
	State      entity.StepState
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

func newResult(runID, name string, steps []Step, now time.Time) *Result {
	res := &Result{
		RunID:     runID,
		Pipeline:  name,
		Steps:     make([]StepResult, len(steps)),
		Outputs:   make(map[string]any, len(steps)),
		StartedAt: now,
	}

	for i, s := range steps {
		res.Steps[i] = StepResult{Name: s.name, State: entity.StepPending}
	}

	return res
}

func (r *Result) Succeeded() bool {
	return r.Err == nil
}

// State returns the state of the named step and whether the step exists.
func (r *Result) State(name string) (entity.StepState, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s.State, true
		}
	}

	return "", false
}

// Output returns the typed output of the named step.
func Output[T any](r *Result, name string) (T, bool) {
	v, ok := r.Outputs[name].(T)

	return v, ok
}

func (r *Result) start(i int, now time.Time) {
	r.transition(i, entity.StepPending, entity.StepRunning)
	r.Steps[i].StartedAt = now
	r.Order = append(r.Order, r.Steps[i].Name)
}

func (r *Result) complete(i int, out any, now time.Time) {
	r.transition(i, entity.StepRunning, entity.StepCompleted)
	r.Steps[i].FinishedAt = now
	r.Outputs[r.Steps[i].Name] = out
}

func (r *Result) fail(i int, err error, now time.Time) {
	r.Steps[i].State = entity.StepFailed
	r.Steps[i].Err = err
	r.Steps[i].FinishedAt = now
}

func (r *Result) skipFrom(i int) {
	for ; i < len(r.Steps); i++ {
		r.transition(i, entity.StepPending, entity.StepSkipped)
	}
}

// transition panics on a move the runner never makes; it indicates a bug in Run.
func (r *Result) transition(i int, from, to entity.StepState) {
	if cur := r.Steps[i].State; cur != from {
		panic(fmt.Sprintf("invalid transition for %q: expected %s, got %s", r.Steps[i].Name, from, cur))
	}
	r.Steps[i].State = to
}

// Run converts the result to a run history record.
func (r *Result) Run() *entity.Run {
	run := &entity.Run{
		ID:         r.RunID,
		Pipeline:   r.Pipeline,
		Status:     entity.RunSucceeded,
		Steps:      make([]entity.StepRun, len(r.Steps)),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}

	if r.Err != nil {
		run.Status = entity.RunFailed
		run.Error = r.Err.Error()
	}

	for i, s := range r.Steps {
		run.Steps[i] = entity.StepRun{
			Name:       s.Name,
			State:      s.State,
			StartedAt:  s.StartedAt,
			FinishedAt: s.FinishedAt,
		}

		if s.Err != nil {
			run.Steps[i].Error = s.Err.Error()
		}
	}

	return run
}
