package courier

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tfkr-ae/courier/domain"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when an operation targets an unknown id.
	ErrNotFound = domain.ErrNotFound
	// ErrStoreMissing is returned when the engine is used without the store an operation needs.
	ErrStoreMissing = errors.New("store not configured")
)

// ValidationError reports malformed input, such as an empty member list on group creation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// LookupFailure reports that an underlying store call failed. Scope is the zero Scope when the
// call was not tied to a variable scope.
type LookupFailure struct {
	Scope domain.Scope
	Op    string
	Err   error
}

func (e *LookupFailure) Error() string {
	if e.Scope.IsZero() {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s for %s: %v", e.Op, e.Scope, e.Err)
}

func (e *LookupFailure) Unwrap() error {
	return e.Err
}

// DuplicationStep names the stage of a workspace duplication.
type DuplicationStep string

const (
	StepCreateWorkspace DuplicationStep = "create workspace"
	StepReadSource      DuplicationStep = "read source"
	StepCopyCollection  DuplicationStep = "copy collection"
	StepCopyRequest     DuplicationStep = "copy request"
	StepCopyStandalone  DuplicationStep = "copy standalone request"
	StepCopyVariable    DuplicationStep = "copy variable"
	StepCreateSyncGroup DuplicationStep = "create sync group"
)

// DuplicationFailure reports a duplication that aborted partway. Entities created before the
// failure are not rolled back, Copied counts them (the new workspace included).
type DuplicationFailure struct {
	Step     DuplicationStep
	EntityID uuid.UUID // The source entity being copied when the step failed.
	Copied   int
	Err      error
}

func (e *DuplicationFailure) Error() string {
	return fmt.Sprintf("duplicating workspace: %s %s failed after %d copied: %v", e.Step, e.EntityID, e.Copied, e.Err)
}

func (e *DuplicationFailure) Unwrap() error {
	return e.Err
}
