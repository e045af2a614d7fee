package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Precondition errors are rejected locally, before any remote call.
var (
	// ErrValidationRequired is returned when execution is requested before a
	// validation run exists on the snapshot.
	ErrValidationRequired = errors.New("validation has not been run for this job")

	// ErrValidationFailed is returned when execution is requested but the
	// last validation run did not pass.
	ErrValidationFailed = errors.New("last validation run did not pass")

	// ErrExecutionInFlight suppresses a second begin-execution while one is
	// already running.
	ErrExecutionInFlight = errors.New("execution already in flight for this job")

	// ErrNotRollbackable is returned when rollback is requested for a job
	// that is not in the completed status.
	ErrNotRollbackable = errors.New("rollback is only valid for a completed job")

	// ErrRollbackInFlight suppresses a second rollback while one is already
	// running. Rollback is destructive; re-invocation is never retried.
	ErrRollbackInFlight = errors.New("rollback already in flight for this job")

	// ErrNoActiveJob is returned when an operation is invoked before the
	// controller has been attached to a job.
	ErrNoActiveJob = errors.New("no active migration job")
)

// MappingIncompleteError is returned when a save is refused because required
// target fields are not covered by the mapping.
type MappingIncompleteError struct {
	Missing []string
}

func (e *MappingIncompleteError) Error() string {
	return fmt.Sprintf("mapping incomplete: required fields not mapped: %s",
		strings.Join(e.Missing, ", "))
}

// TargetTakenError is returned when a target field is already mapped from
// another source column.
type TargetTakenError struct {
	Column     string // column the caller tried to map
	Field      string // target field requested
	MappedFrom string // column that already maps to Field
}

func (e *TargetTakenError) Error() string {
	return fmt.Sprintf("target field %q is already mapped from column %q", e.Field, e.MappedFrom)
}
