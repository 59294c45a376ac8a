package cutplan

import (
	"errors"
	"fmt"
)

// ErrInvalidPlan matches every validation error below via errors.Is.
var ErrInvalidPlan = errors.New("invalid cut plan")

type PlanStructureError struct {
	Reason string
}

func (e *PlanStructureError) Error() string {
	return fmt.Sprintf("cut plan: %s", e.Reason)
}

func (e *PlanStructureError) Is(target error) bool { return target == ErrInvalidPlan }

type CutStructureError struct {
	Index int
}

func (e *CutStructureError) Error() string {
	return fmt.Sprintf("cut entry at index %d is not an object", e.Index)
}

func (e *CutStructureError) Is(target error) bool { return target == ErrInvalidPlan }

type CutBoundsTypeError struct {
	CutID string
}

func (e *CutBoundsTypeError) Error() string {
	return fmt.Sprintf("cut %s must include numeric 'start_ms' and 'end_ms'", e.CutID)
}

func (e *CutBoundsTypeError) Is(target error) bool { return target == ErrInvalidPlan }

type CutBoundsRangeError struct {
	CutID   string
	StartMs int64
	EndMs   int64
}

func (e *CutBoundsRangeError) Error() string {
	return fmt.Sprintf("cut %s has invalid time bounds: %d -> %d", e.CutID, e.StartMs, e.EndMs)
}

func (e *CutBoundsRangeError) Is(target error) bool { return target == ErrInvalidPlan }

// CutIDError is a cut id that cannot be used as part of a file name.
type CutIDError struct {
	CutID string
}

func (e *CutIDError) Error() string {
	return fmt.Sprintf("cut id %q must not contain path separators or control characters", e.CutID)
}

func (e *CutIDError) Is(target error) bool { return target == ErrInvalidPlan }
