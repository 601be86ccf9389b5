package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jgivc/rocketimages/internal/entity"
	"github.com/stretchr/testify/require"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func noop(ctx context.Context) (string, error) { return "ok", nil }

func TestNewValidation(t *testing.T) {
	testCases := []struct {
		name  string
		steps []Step
	}{
		{name: "No steps"},
		{name: "Empty name", steps: []Step{Source("", noop)}},
		{name: "Zero step", steps: []Step{{name: "zero"}}},
		{name: "Duplicate name", steps: []Step{Source("a", noop), Source("a", noop)}},
		{name: "Unknown input", steps: []Step{Source("a", noop), Stage("b", "x", func(ctx context.Context, in string) (int, error) { return 0, nil })}},
		{name: "Later input", steps: []Step{
			Stage("b", "a", func(ctx context.Context, in string) (int, error) { return 0, nil }),
			Source("a", noop),
		}},
		{name: "Self input", steps: []Step{Stage("a", "a", func(ctx context.Context, in string) (int, error) { return 0, nil })}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := New("test", discardLog(), tc.steps...)
			require.ErrorIs(t, err, ErrInvalidPipeline)
			require.Nil(t, p)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestRunPassesOutputs(t *testing.T) {
	var calls []string

	p, err := New("test", discardLog(),
		Source("greet", func(ctx context.Context) (string, error) {
			calls = append(calls, "greet")
			return "hello", nil
		}),
		Source("extract", func(ctx context.Context) ([]int, error) {
			calls = append(calls, "extract")
			return []int{1, 2, 3}, nil
		}),
		Stage("transform", "extract", func(ctx context.Context, in []int) (int, error) {
			calls = append(calls, "transform")
			sum := 0
			for _, v := range in {
				sum += v
			}
			return sum, nil
		}),
	)
	require.NoError(t, err)
	require.Equal(t, []string{"greet", "extract", "transform"}, p.Steps())

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	require.NotEmpty(t, res.RunID)
	require.Equal(t, []string{"greet", "extract", "transform"}, calls)
	require.Equal(t, []string{"greet", "extract", "transform"}, res.Order)

	sum, ok := Output[int](res, "transform")
	require.True(t, ok)
	require.Equal(t, 6, sum)

	greeting, ok := Output[string](res, "greet")
	require.True(t, ok)
	require.Equal(t, "hello", greeting)

	for _, s := range res.Steps {
		require.Equal(t, entity.StepCompleted, s.State)
		require.False(t, s.StartedAt.IsZero())
		require.False(t, s.FinishedAt.Before(s.StartedAt))
	}

	run := res.Run()
	require.Equal(t, entity.RunSucceeded, run.Status)
	require.Equal(t, res.RunID, run.ID)
	require.Equal(t, "test", run.Pipeline)
	require.Len(t, run.Steps, 3)
}

func TestRunFailureSkipsRemaining(t *testing.T) {
	boom := errors.New("boom")
	var reached bool

	p, err := New("test", discardLog(),
		Source("greet", noop),
		Source("extract", func(ctx context.Context) (string, error) { return "", boom }),
		Stage("transform", "extract", func(ctx context.Context, in string) (string, error) {
			reached = true
			return in, nil
		}),
		Source("notify", noop),
	)
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	require.False(t, res.Succeeded())
	require.False(t, reached)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, "extract", stepErr.Step)

	want := map[string]entity.StepState{
		"greet":     entity.StepCompleted,
		"extract":   entity.StepFailed,
		"transform": entity.StepSkipped,
		"notify":    entity.StepSkipped,
	}
	for name, state := range want {
		got, ok := res.State(name)
		require.True(t, ok)
		require.Equal(t, state, got, name)
	}
	require.Equal(t, []string{"greet", "extract"}, res.Order)

	run := res.Run()
	require.Equal(t, entity.RunFailed, run.Status)
	require.Contains(t, run.Error, "boom")
	require.Equal(t, "boom", run.Steps[1].Error)
	require.Empty(t, run.Steps[2].Error)
}

func TestRunInputTypeMismatch(t *testing.T) {
	p, err := New("test", discardLog(),
		Source("a", noop),
		Stage("b", "a", func(ctx context.Context, in int) (int, error) { return in, nil }),
	)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.ErrorIs(t, err, ErrInputType)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p, err := New("test", discardLog(),
		Source("a", func(context.Context) (string, error) {
			cancel()
			return "a", nil
		}),
		Source("b", noop),
		Source("c", noop),
	)
	require.NoError(t, err)

	res, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	states := make([]entity.StepState, 0, len(res.Steps))
	for _, s := range res.Steps {
		states = append(states, s.State)
	}
	require.Equal(t, []entity.StepState{entity.StepCompleted, entity.StepFailed, entity.StepSkipped}, states)
	require.Equal(t, []string{"a"}, res.Order)
}

func TestRunTwice(t *testing.T) {
	p, err := New("test", discardLog(), Source("a", noop))
	require.NoError(t, err)

	first, err := p.Run(context.Background())
	require.NoError(t, err)

	second, err := p.Run(context.Background())
	require.NoError(t, err)

	require.NotEqual(t, first.RunID, second.RunID)
}

func TestStateUnknownStep(t *testing.T) {
	p, err := New("test", discardLog(), Source("a", noop))
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	_, ok := res.State("missing")
	require.False(t, ok)
}
