package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientData marks an empty or near-empty track set. Aggregation
	// degrades to documented defaults instead; clustering and recommendation
	// over zero candidates report it explicitly.
	ErrInsufficientData = errors.New("insufficient listening data")

	// ErrModelNotFit is returned by cluster assignment before any fit. Callers
	// fall back to the default single-cluster assignment rather than surfacing
	// the failure.
	ErrModelNotFit = errors.New("cluster model not fitted")
)

// DimensionMismatchError indicates a feature vector of unexpected length
// reached clustering or recommendation. It is an upstream contract violation
// and must never be silently coerced.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("feature vector dimension mismatch: want %d, got %d", e.Want, e.Got)
}

func IsDimensionMismatch(err error) bool {
	var target *DimensionMismatchError
	return errors.As(err, &target)
}
