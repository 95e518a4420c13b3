package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Failure kinds surfaced by a pipeline run. The orchestrator treats the first
// failure as authoritative; callers discriminate with errors.Is.
var (
	ErrSourceNotFound       = errors.New("source not found")
	ErrAnalysisFailure      = errors.New("analysis failure")
	ErrReadFailure          = errors.New("chunk read failure")
	ErrTransformFailure     = errors.New("chunk transform failure")
	ErrWriteFailure         = errors.New("chunk write failure")
	ErrCancelled            = errors.New("transcode cancelled")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// failf wraps a root cause with its failure kind so both survive errors.Is.
func failf(kind error, cause error) error {
	if cause == nil {
		return kind
	}
	// Causes already classified by a collaborator keep their kind.
	if errors.Is(cause, ErrSourceNotFound) || errors.Is(cause, ErrCancelled) || errors.Is(cause, ErrInvalidConfiguration) {
		return cause
	}
	// A cause triggered by context teardown is a cancellation, whatever
	// stage it surfaced in.
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCancelled, cause)
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
