package leaveyear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leaveyear"
)

const snapshotPageSize = 500

type snapshotEmployee struct {
	ID                    string `json:"id"`
	EmployeeNumber        string `json:"employee_number"`
	Name                  string `json:"name"`
	PriorYearBalance      int    `json:"prior_year_balance"`
	CurrentYearBalance    int    `json:"current_year_balance"`
	TwoYearsAgoBalance    int    `json:"two_years_ago_balance"`
	NextYearBackupBalance *int   `json:"next_year_backup_balance"`
	Version               int64  `json:"version"`
}

type snapshot struct {
	RunID     string             `json:"run_id"`
	Operation string             `json:"operation"`
	FromYear  int                `json:"from_year"`
	ToYear    int                `json:"to_year"`
	TakenAt   time.Time          `json:"taken_at"`
	Employees []snapshotEmployee `json:"employees"`
}

func snapshotKey(runID string) string {
	return fmt.Sprintf("rollovers/%s/snapshot.json", runID)
}

// archiveSnapshot stores every employee's buckets before run touches them.
// It is a no-op without file storage.
func (s *RolloverServiceImpl) archiveSnapshot(ctx context.Context, run leaveyear.Run) error {
	if s.storage == nil {
		return nil
	}

	snap := snapshot{
		RunID:     run.ID,
		Operation: string(run.Operation),
		FromYear:  run.FromYear,
		ToYear:    run.ToYear,
		TakenAt:   time.Now().UTC(),
		Employees: make([]snapshotEmployee, 0),
	}
	cursor := ""
	for {
		page, err := s.employeeRepo.ListAfter(ctx, cursor, snapshotPageSize)
		if err != nil {
			return fmt.Errorf("list employees for snapshot: %w", err)
		}
		for _, e := range page {
			snap.Employees = append(snap.Employees, snapshotEmployee{
				ID:                    e.ID,
				EmployeeNumber:        e.EmployeeNumber,
				Name:                  e.Name,
				PriorYearBalance:      e.PriorYearBalance,
				CurrentYearBalance:    e.CurrentYearBalance,
				TwoYearsAgoBalance:    e.TwoYearsAgoBalance,
				NextYearBackupBalance: e.NextYearBackupBalance,
				Version:               e.Version,
			})
		}
		if len(page) < snapshotPageSize {
			break
		}
		cursor = page[len(page)-1].ID
	}

	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	key, err := s.storage.Upload(ctx, bytes.NewReader(body), snapshotKey(run.ID), "application/json")
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}
	if err := s.runRepo.SetSnapshotKey(ctx, run.ID, key); err != nil {
		return err
	}
	return nil
}
