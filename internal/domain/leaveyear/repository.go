package leaveyear

import "context"

type SettingsRepository interface {
	Get(ctx context.Context) (Settings, error)
	// Create inserts the singleton if it does not exist yet.
	Create(ctx context.Context, s Settings) (Settings, error)
	Update(ctx context.Context, s Settings) error
}

type RunRepository interface {
	Create(ctx context.Context, run Run) (Run, error)
	GetByID(ctx context.Context, id string) (Run, error)
	// FindBlocking returns the newest running or failed run, or nil.
	FindBlocking(ctx context.Context) (*Run, error)
	List(ctx context.Context, limit int) ([]Run, error)

	// MarkApplied records employeeID under the run and advances its cursor.
	// Recording the same pair twice is an error.
	MarkApplied(ctx context.Context, runID, employeeID string) error
	UpdatedEmployeeIDs(ctx context.Context, runID string) ([]string, error)
	SetSnapshotKey(ctx context.Context, runID, key string) error
	Finish(ctx context.Context, runID string, status RunStatus, errMsg *string) error
}
