package leaveyear

import "context"

type RolloverService interface {
	// EnsureSettings seeds the singleton with defaultYear when it is missing.
	EnsureSettings(ctx context.Context, defaultYear int) (Settings, error)
	GetSettings(ctx context.Context) (SettingsResponse, error)

	Advance(ctx context.Context, adminID string) (RunResponse, error)
	RevertToPrevious(ctx context.Context, adminID string) (RunResponse, error)
	RevertToNext(ctx context.Context, adminID string) (RunResponse, error)

	Resume(ctx context.Context, runID string, adminID string) (RunResponse, error)
	Resolve(ctx context.Context, runID string) (RunResponse, error)
	GetRun(ctx context.Context, runID string) (RunResponse, error)
	ListRuns(ctx context.Context, limit int) ([]RunResponse, error)
	// Snapshot returns the balances archived before the run started.
	Snapshot(ctx context.Context, runID string) (SnapshotFile, error)
}
