package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leaveyear"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
)

type leaveYearSettingsRepository struct {
	db *database.SQLiteDB
}

func NewLeaveYearSettingsRepository(db *database.SQLiteDB) leaveyear.SettingsRepository {
	return &leaveYearSettingsRepository{db: db}
}

// Get implements leaveyear.SettingsRepository.
func (r *leaveYearSettingsRepository) Get(ctx context.Context) (leaveyear.Settings, error) {
	q := getQuerier(ctx, r.db)

	var (
		s         leaveyear.Settings
		previous  sql.NullInt64
		updatedAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, current_year, previous_year, updated_at
		FROM leave_year_settings
		LIMIT 1
	`).Scan(&s.ID, &s.CurrentYear, &previous, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return leaveyear.Settings{}, leaveyear.ErrSettingsNotFound
		}
		return leaveyear.Settings{}, fmt.Errorf("failed to get leave year settings: %w", err)
	}
	if previous.Valid {
		p := int(previous.Int64)
		s.PreviousYear = &p
	}
	if s.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return leaveyear.Settings{}, err
	}
	return s, nil
}

// Create implements leaveyear.SettingsRepository.
func (r *leaveYearSettingsRepository) Create(ctx context.Context, s leaveyear.Settings) (leaveyear.Settings, error) {
	q := getQuerier(ctx, r.db)

	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO leave_year_settings (id, current_year, previous_year, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (singleton) DO NOTHING
	`, s.ID, s.CurrentYear, s.PreviousYear, now())
	if err != nil {
		return leaveyear.Settings{}, fmt.Errorf("failed to create leave year settings: %w", err)
	}
	return r.Get(ctx)
}

// Update implements leaveyear.SettingsRepository.
func (r *leaveYearSettingsRepository) Update(ctx context.Context, s leaveyear.Settings) error {
	q := getQuerier(ctx, r.db)

	res, err := q.ExecContext(ctx, `
		UPDATE leave_year_settings
		SET current_year = ?, previous_year = ?, updated_at = ?
		WHERE id = ?
	`, s.CurrentYear, s.PreviousYear, now(), s.ID)
	if err != nil {
		return fmt.Errorf("failed to update leave year settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leaveyear.ErrSettingsNotFound
	}
	return nil
}

const runColumns = `
	id, operation, from_year, to_year, status, cursor_employee_id,
	snapshot_key, error, admin_id, started_at, finished_at`

type rolloverRunRepository struct {
	db *database.SQLiteDB
}

func NewRolloverRunRepository(db *database.SQLiteDB) leaveyear.RunRepository {
	return &rolloverRunRepository{db: db}
}

func scanRun(row scanner) (leaveyear.Run, error) {
	var (
		run                 leaveyear.Run
		operation, status   string
		snapshotKey, errMsg sql.NullString
		startedAt           string
		finishedAt          sql.NullString
	)
	err := row.Scan(
		&run.ID, &operation, &run.FromYear, &run.ToYear, &status, &run.Cursor,
		&snapshotKey, &errMsg, &run.AdminID, &startedAt, &finishedAt,
	)
	if err != nil {
		return leaveyear.Run{}, err
	}
	run.Operation = leaveyear.Operation(operation)
	run.Status = leaveyear.RunStatus(status)
	if snapshotKey.Valid {
		run.SnapshotKey = &snapshotKey.String
	}
	if errMsg.Valid {
		run.Error = &errMsg.String
	}
	if run.StartedAt, err = parseTimestamp(startedAt); err != nil {
		return leaveyear.Run{}, err
	}
	if finishedAt.Valid {
		t, err := parseTimestamp(finishedAt.String)
		if err != nil {
			return leaveyear.Run{}, err
		}
		run.FinishedAt = &t
	}
	return run, nil
}

// Create implements leaveyear.RunRepository.
func (r *rolloverRunRepository) Create(ctx context.Context, run leaveyear.Run) (leaveyear.Run, error) {
	q := getQuerier(ctx, r.db)

	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return leaveyear.Run{}, fmt.Errorf("failed to generate run id: %w", err)
		}
		run.ID = id.String()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO rollover_runs (id, operation, from_year, to_year, status, admin_id, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, string(run.Operation), run.FromYear, run.ToYear, string(run.Status), run.AdminID, now())
	if err != nil {
		return leaveyear.Run{}, fmt.Errorf("failed to create rollover run: %w", err)
	}
	return r.GetByID(ctx, run.ID)
}

// GetByID implements leaveyear.RunRepository.
func (r *rolloverRunRepository) GetByID(ctx context.Context, id string) (leaveyear.Run, error) {
	q := getQuerier(ctx, r.db)

	run, err := scanRun(q.QueryRowContext(ctx, `SELECT`+runColumns+` FROM rollover_runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return leaveyear.Run{}, leaveyear.ErrRunNotFound
		}
		return leaveyear.Run{}, fmt.Errorf("failed to get rollover run %s: %w", id, err)
	}
	return run, nil
}

// FindBlocking implements leaveyear.RunRepository.
func (r *rolloverRunRepository) FindBlocking(ctx context.Context) (*leaveyear.Run, error) {
	q := getQuerier(ctx, r.db)

	run, err := scanRun(q.QueryRowContext(ctx, `
		SELECT`+runColumns+`
		FROM rollover_runs
		WHERE status IN ('running', 'failed')
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find blocking rollover run: %w", err)
	}
	return &run, nil
}

// List implements leaveyear.RunRepository.
func (r *rolloverRunRepository) List(ctx context.Context, limit int) ([]leaveyear.Run, error) {
	q := getQuerier(ctx, r.db)

	rows, err := q.QueryContext(ctx, `SELECT`+runColumns+` FROM rollover_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
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
func (r *rolloverRunRepository) MarkApplied(ctx context.Context, runID, employeeID string) error {
	q := getQuerier(ctx, r.db)

	if _, err := q.ExecContext(ctx, `INSERT INTO rollover_run_items (run_id, employee_id, applied_at) VALUES (?, ?, ?)`, runID, employeeID, now()); err != nil {
		return fmt.Errorf("failed to record rollover of employee %s: %w", employeeID, err)
	}
	if _, err := q.ExecContext(ctx, `UPDATE rollover_runs SET cursor_employee_id = ? WHERE id = ?`, employeeID, runID); err != nil {
		return fmt.Errorf("failed to advance rollover cursor: %w", err)
	}
	return nil
}

// UpdatedEmployeeIDs implements leaveyear.RunRepository.
func (r *rolloverRunRepository) UpdatedEmployeeIDs(ctx context.Context, runID string) ([]string, error) {
	q := getQuerier(ctx, r.db)

	rows, err := q.QueryContext(ctx, `SELECT employee_id FROM rollover_run_items WHERE run_id = ? ORDER BY employee_id`, runID)
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
func (r *rolloverRunRepository) SetSnapshotKey(ctx context.Context, runID, key string) error {
	q := getQuerier(ctx, r.db)

	if _, err := q.ExecContext(ctx, `UPDATE rollover_runs SET snapshot_key = ? WHERE id = ?`, key, runID); err != nil {
		return fmt.Errorf("failed to store snapshot key: %w", err)
	}
	return nil
}

// Finish implements leaveyear.RunRepository.
func (r *rolloverRunRepository) Finish(ctx context.Context, runID string, status leaveyear.RunStatus, errMsg *string) error {
	q := getQuerier(ctx, r.db)

	res, err := q.ExecContext(ctx, `
		UPDATE rollover_runs
		SET status = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, string(status), errMsg, now(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish rollover run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leaveyear.ErrRunNotFound
	}
	return nil
}
