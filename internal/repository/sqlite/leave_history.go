package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
)

const historyColumns = `
	h.id, h.employee_id, h.kind, h.days, h.start_date, h.end_date,
	h.cancels_entry_id, h.reason, h.admin_id, h.created_at`

type leaveHistoryRepository struct {
	db *database.SQLiteDB
}

func NewLeaveHistoryRepository(db *database.SQLiteDB) leave.HistoryRepository {
	return &leaveHistoryRepository{db: db}
}

func scanHistoryEntry(row scanner, extra ...any) (leave.HistoryEntry, error) {
	var (
		h          leave.HistoryEntry
		kind       string
		start, end sql.NullString
		cancels    sql.NullString
		createdAt  string
	)
	dest := []any{
		&h.ID, &h.EmployeeID, &kind, &h.Days, &start, &end,
		&cancels, &h.Reason, &h.AdminID, &createdAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return leave.HistoryEntry{}, err
	}

	h.Kind = leave.Kind(kind)
	if start.Valid && end.Valid {
		s, err := parseDate(start.String)
		if err != nil {
			return leave.HistoryEntry{}, err
		}
		e, err := parseDate(end.String)
		if err != nil {
			return leave.HistoryEntry{}, err
		}
		h.Period = &leave.DateRange{Start: s, End: e}
	}
	if cancels.Valid {
		h.CancelsEntryID = &cancels.String
	}
	var err error
	if h.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return leave.HistoryEntry{}, err
	}
	return h, nil
}

// Append implements leave.HistoryRepository.
func (r *leaveHistoryRepository) Append(ctx context.Context, entry leave.HistoryEntry) (string, error) {
	q := getQuerier(ctx, r.db)

	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("failed to generate history id: %w", err)
		}
		entry.ID = id.String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var start, end *string
	if entry.Period != nil {
		s, e := formatDate(entry.Period.Start), formatDate(entry.Period.End)
		start, end = &s, &e
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO leave_history (id, employee_id, kind, days, start_date, end_date,
			cancels_entry_id, reason, admin_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.EmployeeID, string(entry.Kind), entry.Days, start, end,
		entry.CancelsEntryID, entry.Reason, entry.AdminID, formatTimestamp(entry.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("failed to append history entry: %w", err)
	}
	return entry.ID, nil
}

// FindContaining implements leave.HistoryRepository.
func (r *leaveHistoryRepository) FindContaining(ctx context.Context, employeeID string, kind leave.Kind, period leave.DateRange) (*leave.HistoryEntry, error) {
	q := getQuerier(ctx, r.db)

	h, err := scanHistoryEntry(q.QueryRowContext(ctx, `
		SELECT`+historyColumns+`
		FROM leave_history h
		WHERE h.employee_id = ? AND h.kind = ?
			AND h.start_date <= ? AND h.end_date >= ?
		ORDER BY julianday(h.end_date) - julianday(h.start_date) ASC, h.created_at DESC, h.id DESC
		LIMIT 1
	`, employeeID, string(kind), formatDate(period.Start), formatDate(period.End)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find history entry: %w", err)
	}
	return &h, nil
}

// ListByEmployee implements leave.HistoryRepository.
func (r *leaveHistoryRepository) ListByEmployee(ctx context.Context, employeeID string) iter.Seq2[leave.HistoryEntry, error] {
	return func(yield func(leave.HistoryEntry, error) bool) {
		q := getQuerier(ctx, r.db)

		rows, err := q.QueryContext(ctx, `
			SELECT`+historyColumns+`
			FROM leave_history h
			WHERE h.employee_id = ?
			ORDER BY h.created_at DESC, h.id DESC
		`, employeeID)
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
func (r *leaveHistoryRepository) RestoredDays(ctx context.Context, consumptionID string) (int, error) {
	q := getQuerier(ctx, r.db)

	var days int
	err := q.QueryRowContext(ctx, `SELECT COALESCE(SUM(days), 0) FROM leave_history WHERE cancels_entry_id = ?`, consumptionID).Scan(&days)
	if err != nil {
		return 0, fmt.Errorf("failed to sum restored days: %w", err)
	}
	return days, nil
}

// OnLeaveEmployeeIDs implements leave.HistoryRepository.
func (r *leaveHistoryRepository) OnLeaveEmployeeIDs(ctx context.Context, date time.Time) ([]string, error) {
	q := getQuerier(ctx, r.db)

	d := formatDate(date)
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT employee_id
		FROM leave_history
		WHERE kind = 'consumption' AND start_date <= ? AND end_date >= ?
		ORDER BY employee_id
	`, d, d)
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
func (r *leaveHistoryRepository) List(ctx context.Context, filter leave.HistoryFilter) ([]leave.HistoryRecord, error) {
	q := getQuerier(ctx, r.db)

	var (
		conds []string
		args  []any
	)
	if filter.EmployeeID != nil {
		conds = append(conds, "h.employee_id = ?")
		args = append(args, *filter.EmployeeID)
	}
	if filter.Kind != nil {
		conds = append(conds, "h.kind = ?")
		args = append(args, string(*filter.Kind))
	}
	if filter.From != nil {
		conds = append(conds, "substr(h.created_at, 1, 10) >= ?")
		args = append(args, formatDate(*filter.From))
	}
	if filter.To != nil {
		conds = append(conds, "substr(h.created_at, 1, 10) <= ?")
		args = append(args, formatDate(*filter.To))
	}

	query := `
		SELECT` + historyColumns + `, e.employee_number, e.name
		FROM leave_history h
		JOIN employees e ON e.id = h.employee_id`
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\t\tORDER BY h.created_at DESC, h.id DESC"
	if filter.Limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
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
