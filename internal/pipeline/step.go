package pipeline

import (
	"context"
	"fmt"
)

type runFunc func(ctx context.Context, in any) (any, error)

// Step is a named unit of work. Build it with Source or Stage.
type Step struct {
	name  string
	input string
	run   runFunc
}

func (s Step) Name() string { return s.name }

// Input is the name of the step whose output this step consumes, empty for a source.
func (s Step) Input() string { return s.input }

// Source makes a step without input.
func Source[Out any](name string, fn func(ctx context.Context) (Out, error)) Step {
	return Step{
		name: name,
		run: func(ctx context.Context, _ any) (any, error) {
			return fn(ctx)
		},
	}
}

// Stage makes a step that receives the output of the step named input.
func Stage[In, Out any](name, input string, fn func(ctx context.Context, in In) (Out, error)) Step {
	return Step{
		name:  name,
		input: input,
		run: func(ctx context.Context, in any) (any, error) {
			v, ok := in.(In)
			if !ok {
				var want In
				return nil, fmt.Errorf("%w: step %q wants %T, got %T", ErrInputType, name, want, in)
			}

			return fn(ctx, v)
		},
	}
}
