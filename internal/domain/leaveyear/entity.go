package leaveyear

import "time"

// Settings is the leave-year singleton. PreviousYear is set only while a
// rollover can be reverted.
type Settings struct {
	ID           string
	CurrentYear  int
	PreviousYear *int
	UpdatedAt    time.Time
}

type Operation string

const (
	OperationAdvance        Operation = "advance"
	OperationRevertPrevious Operation = "revert_previous"
	OperationRevertNext     Operation = "revert_next"
)

func (o Operation) Valid() bool {
	switch o {
	case OperationAdvance, OperationRevertPrevious, OperationRevertNext:
		return true
	}
	return false
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed means some employees were rolled over and some were not.
	RunStatusFailed RunStatus = "failed"
	// RunStatusAborted means the run failed before anything was committed.
	RunStatusAborted  RunStatus = "aborted"
	RunStatusResolved RunStatus = "resolved"
)

// Blocking reports whether a run in this status halts further rollovers.
func (s RunStatus) Blocking() bool {
	return s == RunStatusRunning || s == RunStatusFailed
}

// Run records one execution of a rollover operation. Cursor is the ID of the
// last employee committed, so a resumed run continues after it.
type Run struct {
	ID          string
	Operation   Operation
	FromYear    int
	ToYear      int
	Status      RunStatus
	Cursor      string
	SnapshotKey *string
	Error       *string
	AdminID     string
	StartedAt   time.Time
	FinishedAt  *time.Time
}
