package leaveyear

import "time"

type SettingsResponse struct {
	CurrentYear    int     `json:"current_year"`
	PreviousYear   *int    `json:"previous_year,omitempty"`
	CanRevert      bool    `json:"can_revert"`
	CanRestoreNext bool    `json:"can_restore_next"`
	BlockingRunID  *string `json:"blocking_run_id,omitempty"`
}

type RunResponse struct {
	ID                 string     `json:"id"`
	Operation          Operation  `json:"operation"`
	FromYear           int        `json:"from_year"`
	ToYear             int        `json:"to_year"`
	Status             RunStatus  `json:"status"`
	SnapshotKey        *string    `json:"snapshot_key,omitempty"`
	Error              *string    `json:"error,omitempty"`
	AdminID            string     `json:"admin_id"`
	UpdatedEmployeeIDs []string   `json:"updated_employee_ids,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
}

func NewRunResponse(run Run, updated []string) RunResponse {
	return RunResponse{
		ID:                 run.ID,
		Operation:          run.Operation,
		FromYear:           run.FromYear,
		ToYear:             run.ToYear,
		Status:             run.Status,
		SnapshotKey:        run.SnapshotKey,
		Error:              run.Error,
		AdminID:            run.AdminID,
		UpdatedEmployeeIDs: updated,
		StartedAt:          run.StartedAt,
		FinishedAt:         run.FinishedAt,
	}
}

// SnapshotFile carries either the archived content or, when the store
// hands out signed links, a URL to fetch it from.
type SnapshotFile struct {
	Filename string
	Content  []byte
	URL      string
}
