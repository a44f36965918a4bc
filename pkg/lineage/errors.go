package lineage

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNoLinks          = errors.New("experiment has no links")
	ErrSameTimePoint    = errors.New("link connects two positions in the same time point")
	ErrTooManyDaughters = errors.New("position already has two selected successors")
	ErrCellMerge        = errors.New("position already has a selected predecessor")
)

// TrackingError provides structured error information for tracking operations.
type TrackingError struct {
	Op       string   // Operation that failed (e.g., "SelectLink", "Compile")
	Position Position // Position involved, if applicable
	Cause    error    // Underlying error
	Context  string   // Additional context
}

// Error implements the error interface.
func (e *TrackingError) Error() string {
	zero := Position{}
	if e.Position != zero {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Position, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s (%s): %v", e.Op, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *TrackingError) Unwrap() error {
	return e.Cause
}
