package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPipeline = errors.New("invalid pipeline")
	ErrInputType       = errors.New("unexpected step input type")
)

// ValidationError wraps pipeline definition failures.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	if e.Msg == "" {
		return ErrInvalidPipeline.Error()
	}

	return fmt.Sprintf("%s: %s", ErrInvalidPipeline, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPipeline }

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StepError is returned by Run when a step fails.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
