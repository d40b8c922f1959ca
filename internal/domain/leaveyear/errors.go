package leaveyear

import (
	"errors"
	"fmt"
)

var (
	ErrSettingsNotFound = errors.New("leave year settings not found")
	ErrNoPreviousYear   = errors.New("no previous leave year to revert to")
	ErrNoForwardBackup  = errors.New("no reverted leave year to restore")
	ErrRolloverHalted   = errors.New("a failed rollover must be resumed or resolved first")
	ErrPartialRollover  = errors.New("rollover failed after updating some employees")
	ErrRunNotFound      = errors.New("rollover run not found")
	ErrRunNotResumable  = errors.New("rollover run is not in a failed or running state")
	ErrInvalidOperation = errors.New("invalid rollover operation")
	ErrSnapshotNotFound = errors.New("rollover snapshot not found")
)

// PartialRolloverError lists the employees a failed rollover already
// committed. The run stays blocking until resumed or resolved.
type PartialRolloverError struct {
	RunID              string
	Operation          Operation
	UpdatedEmployeeIDs []string
	Err                error
}

func (e *PartialRolloverError) Error() string {
	return fmt.Sprintf("rollover %s (run %s) failed after updating %d employees: %v",
		e.Operation, e.RunID, len(e.UpdatedEmployeeIDs), e.Err)
}

func (e *PartialRolloverError) Unwrap() []error {
	return []error{ErrPartialRollover, e.Err}
}

// HaltedError carries the run that blocks new rollovers.
type HaltedError struct {
	RunID  string
	Status RunStatus
}

func (e *HaltedError) Error() string {
	return fmt.Sprintf("rollover run %s is %s: %v", e.RunID, e.Status, ErrRolloverHalted)
}

func (e *HaltedError) Unwrap() error {
	return ErrRolloverHalted
}
