package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leaveyear"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
)

type leaveYearSettingsRepositoryImpl struct {
	db *database.DB
}

func NewLeaveYearSettingsRepository(db *database.DB) leaveyear.SettingsRepository {
	return &leaveYearSettingsRepositoryImpl{db: db}
}

// Get implements leaveyear.SettingsRepository.
func (r *leaveYearSettingsRepositoryImpl) Get(ctx context.Context) (leaveyear.Settings, error) {
	q := GetQuerier(ctx, r.db)

	var s leaveyear.Settings
	err := q.QueryRow(ctx, `
		SELECT id, current_year, previous_year, updated_at
		FROM leave_year_settings
		LIMIT 1
	`).Scan(&s.ID, &s.CurrentYear, &s.PreviousYear, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leaveyear.Settings{}, leaveyear.ErrSettingsNotFound
		}
		return leaveyear.Settings{}, fmt.Errorf("failed to get leave year settings: %w", err)
	}
	return s, nil
}

// Create implements leaveyear.SettingsRepository.
func (r *leaveYearSettingsRepositoryImpl) Create(ctx context.Context, s leaveyear.Settings) (leaveyear.Settings, error) {
	q := GetQuerier(ctx, r.db)

	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	_, err := q.Exec(ctx, `
		INSERT INTO leave_year_settings (id, current_year, previous_year)
		VALUES ($1, $2, $3)
		ON CONFLICT (singleton) DO NOTHING
	`, s.ID, s.CurrentYear, s.PreviousYear)
	if err != nil {
		return leaveyear.Settings{}, fmt.Errorf("failed to create leave year settings: %w", err)
	}
	return r.Get(ctx)
}

// Update implements leaveyear.SettingsRepository.
func (r *leaveYearSettingsRepositoryImpl) Update(ctx context.Context, s leaveyear.Settings) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE leave_year_settings
		SET current_year = $2, previous_year = $3, updated_at = NOW()
		WHERE id = $1
	`, s.ID, s.CurrentYear, s.PreviousYear)
	if err != nil {
		return fmt.Errorf("failed to update leave year settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return leaveyear.ErrSettingsNotFound
	}
	return nil
}

const runColumns = `
	id, operation, from_year, to_year, status, cursor_employee_id,
	snapshot_key, error, admin_id, started_at, finished_at`

type rolloverRunRepositoryImpl struct {
	db *database.DB
}

func NewRolloverRunRepository(db *database.DB) leaveyear.RunRepository {
	return &rolloverRunRepositoryImpl{db: db}
}

func scanRun(row pgx.Row) (leaveyear.Run, error) {
	var (
		run       leaveyear.Run
		operation string
		status    string
	)
	err := row.Scan(
		&run.ID, &operation, &run.FromYear, &run.ToYear, &status, &run.Cursor,
		&run.SnapshotKey, &run.Error, &run.AdminID, &run.StartedAt, &run.FinishedAt,
	)
	run.Operation = leaveyear.Operation(operation)
	run.Status = leaveyear.RunStatus(status)
	return run, err
}

// Create implements leaveyear.RunRepository.
func (r *rolloverRunRepositoryImpl) Create(ctx context.Context, run leaveyear.Run) (leaveyear.Run, error) {
	q := GetQuerier(ctx, r.db)

	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return leaveyear.Run{}, fmt.Errorf("failed to generate run id: %w", err)
		}
		run.ID = id.String()
	}

	query := `
		INSERT INTO rollover_runs (id, operation, from_year, to_year, status, admin_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING` + runColumns

	created, err := scanRun(q.QueryRow(ctx, query,
		run.ID, string(run.Operation), run.FromYear, run.ToYear, string(run.Status), run.AdminID))
	if err != nil {
		return leaveyear.Run{}, fmt.Errorf("failed to create rollover run: %w", err)
	}
	return created, nil
}

// GetByID implements leaveyear.RunRepository.
func (r *rolloverRunRepositoryImpl) GetByID(ctx context.Context, id string) (leaveyear.Run, error) {
	q := GetQuerier(ctx, r.db)

	run, err := scanRun(q.QueryRow(ctx, `SELECT`+runColumns+` FROM rollover_runs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leaveyear.Run{}, leaveyear.ErrRunNotFound
		}
		return leaveyear.Run{}, fmt.Errorf("failed to get rollover run %s: %w", id, err)
	}
	return run, nil
}

// FindBlocking implements leaveyear.RunRepository.
func (r *rolloverRunRepositoryImpl) FindBlocking(ctx context.Context) (*leaveyear.Run, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT` + runColumns + `
		FROM rollover_runs
		WHERE status IN ('running', 'failed')
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`

	run, err := scanRun(q.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find blocking rollover run: %w", err)
	}
	return &run, nil
}

// List implements leaveyear.RunRepository.
func (r *rolloverRunRepositoryImpl) List(ctx context.Context, limit int) ([]leaveyear.Run, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT`+runColumns+` FROM rollover_runs ORDER BY started_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rollover runs: %w", err)
	}
	defer rows.Close()

	runs := make([]leaveyear.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rollover run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkApplied implements leaveyear.RunRepository.
func (r *rolloverRunRepositoryImpl) MarkApplied(ctx context.Context, runID, employeeID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `INSERT INTO rollover_run_items (run_id, employee_id) VALUES ($1, $2)`, runID, employeeID); err != nil {
		return fmt.Errorf("failed to record rollover of employee %s: %w", employeeID, err)
	}
	if _, err := q.Exec(ctx, `UPDATE rollover_runs SET cursor_employee_id = $2 WHERE id = $1`, runID, employeeID); err != nil {
		return fmt.Errorf("failed to advance rollover cursor: %w", err)
	}
	return nil
}

// UpdatedEmployeeIDs implements leaveyear.RunRepository.
func (r *rolloverRunRepositoryImpl) UpdatedEmployeeIDs(ctx context.Context, runID string) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT employee_id::text FROM rollover_run_items WHERE run_id = $1 ORDER BY 1`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rolled over employees: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetSnapshotKey implements leaveyear.RunRepository.
func (r *rolloverRunRepositoryImpl) SetSnapshotKey(ctx context.Context, runID, key string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `UPDATE rollover_runs SET snapshot_key = $2 WHERE id = $1`, runID, key); err != nil {
		return fmt.Errorf("failed to store snapshot key: %w", err)
	}
	return nil
}

// Finish implements leaveyear.RunRepository.
func (r *rolloverRunRepositoryImpl) Finish(ctx context.Context, runID string, status leaveyear.RunStatus, errMsg *string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE rollover_runs
		SET status = $2, error = $3, finished_at = NOW()
		WHERE id = $1
	`, runID, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("failed to finish rollover run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return leaveyear.ErrRunNotFound
	}
	return nil
}
