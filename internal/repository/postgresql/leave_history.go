package postgresql

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
)

const historyColumns = `
	h.id, h.employee_id, h.kind, h.days, h.start_date, h.end_date,
	h.cancels_entry_id, h.reason, h.admin_id, h.created_at`

type leaveHistoryRepositoryImpl struct {
	db *database.DB
}

func NewLeaveHistoryRepository(db *database.DB) leave.HistoryRepository {
	return &leaveHistoryRepositoryImpl{db: db}
}

func scanHistoryEntry(row pgx.Row, extra ...any) (leave.HistoryEntry, error) {
	var (
		h          leave.HistoryEntry
		kind       string
		start, end *time.Time
	)
	dest := []any{
		&h.ID, &h.EmployeeID, &kind, &h.Days, &start, &end,
		&h.CancelsEntryID, &h.Reason, &h.AdminID, &h.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return leave.HistoryEntry{}, err
	}

	h.Kind = leave.Kind(kind)
	if start != nil && end != nil {
		h.Period = &leave.DateRange{Start: start.UTC(), End: end.UTC()}
	}
	return h, nil
}

// Append implements leave.HistoryRepository.
func (r *leaveHistoryRepositoryImpl) Append(ctx context.Context, entry leave.HistoryEntry) (string, error) {
	q := GetQuerier(ctx, r.db)

	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("failed to generate history id: %w", err)
		}
		entry.ID = id.String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var start, end *time.Time
	if entry.Period != nil {
		start, end = &entry.Period.Start, &entry.Period.End
	}

	query := `
		INSERT INTO leave_history (id, employee_id, kind, days, start_date, end_date,
			cancels_entry_id, reason, admin_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := q.Exec(ctx, query,
		entry.ID, entry.EmployeeID, string(entry.Kind), entry.Days, start, end,
		entry.CancelsEntryID, entry.Reason, entry.AdminID, entry.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to append history entry: %w", err)
	}
	return entry.ID, nil
}

// FindContaining implements leave.HistoryRepository.
func (r *leaveHistoryRepositoryImpl) FindContaining(ctx context.Context, employeeID string, kind leave.Kind, period leave.DateRange) (*leave.HistoryEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT` + historyColumns + `
		FROM leave_history h
		WHERE h.employee_id = $1 AND h.kind = $2
			AND h.start_date <= $3 AND h.end_date >= $4
		ORDER BY (h.end_date - h.start_date) ASC, h.created_at DESC, h.id DESC
		LIMIT 1
	`

	h, err := scanHistoryEntry(q.QueryRow(ctx, query, employeeID, string(kind), period.Start, period.End))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find history entry: %w", err)
	}
	return &h, nil
}

// ListByEmployee implements leave.HistoryRepository.
func (r *leaveHistoryRepositoryImpl) ListByEmployee(ctx context.Context, employeeID string) iter.Seq2[leave.HistoryEntry, error] {
	return func(yield func(leave.HistoryEntry, error) bool) {
		q := GetQuerier(ctx, r.db)

		query := `
			SELECT` + historyColumns + `
			FROM leave_history h
			WHERE h.employee_id = $1
			ORDER BY h.created_at DESC, h.id DESC
		`

		rows, err := q.Query(ctx, query, employeeID)
		if err != nil {
			yield(leave.HistoryEntry{}, fmt.Errorf("failed to list history: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			h, err := scanHistoryEntry(rows)
			if err != nil {
				yield(leave.HistoryEntry{}, fmt.Errorf("failed to scan history entry: %w", err))
				return
			}
			if !yield(h, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(leave.HistoryEntry{}, fmt.Errorf("failed to iterate history: %w", err))
		}
	}
}

// RestoredDays implements leave.HistoryRepository.
func (r *leaveHistoryRepositoryImpl) RestoredDays(ctx context.Context, consumptionID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var days int64
	err := q.QueryRow(ctx, `SELECT COALESCE(SUM(days), 0) FROM leave_history WHERE cancels_entry_id = $1`, consumptionID).Scan(&days)
	if err != nil {
		return 0, fmt.Errorf("failed to sum restored days: %w", err)
	}
	return int(days), nil
}

// OnLeaveEmployeeIDs implements leave.HistoryRepository.
func (r *leaveHistoryRepositoryImpl) OnLeaveEmployeeIDs(ctx context.Context, date time.Time) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT DISTINCT employee_id::text
		FROM leave_history
		WHERE kind = 'consumption' AND start_date <= $1 AND end_date >= $1
		ORDER BY 1
	`

	rows, err := q.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees on leave: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan employee id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List implements leave.HistoryRepository.
func (r *leaveHistoryRepositoryImpl) List(ctx context.Context, filter leave.HistoryFilter) ([]leave.HistoryRecord, error) {
	q := GetQuerier(ctx, r.db)

	var kind *string
	if filter.Kind != nil {
		k := string(*filter.Kind)
		kind = &k
	}

	query := `
		SELECT` + historyColumns + `, e.employee_number, e.name
		FROM leave_history h
		JOIN employees e ON e.id = h.employee_id
		WHERE ($1::uuid IS NULL OR h.employee_id = $1)
			AND ($2::text IS NULL OR h.kind = $2)
			AND ($3::date IS NULL OR h.created_at::date >= $3)
			AND ($4::date IS NULL OR h.created_at::date <= $4)
		ORDER BY h.created_at DESC, h.id DESC
		LIMIT NULLIF($5, 0)
	`

	rows, err := q.Query(ctx, query, filter.EmployeeID, kind, filter.From, filter.To, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	records := make([]leave.HistoryRecord, 0)
	for rows.Next() {
		var rec leave.HistoryRecord
		h, err := scanHistoryEntry(rows, &rec.EmployeeNumber, &rec.EmployeeName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		rec.HistoryEntry = h
		records = append(records, rec)
	}
	return records, rows.Err()
}
