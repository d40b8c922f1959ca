package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
)

const employeeColumns = `
	id, employee_number, name, position, department,
	prior_year_balance, current_year_balance, two_years_ago_balance, next_year_backup_balance,
	version, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

type employeeRepository struct {
	db *database.SQLiteDB
}

func NewEmployeeRepository(db *database.SQLiteDB) employee.EmployeeRepository {
	return &employeeRepository{db: db}
}

func scanEmployee(row scanner) (employee.Employee, error) {
	var (
		e                    employee.Employee
		forward              sql.NullInt64
		createdAt, updatedAt string
	)
	err := row.Scan(
		&e.ID, &e.EmployeeNumber, &e.Name, &e.Position, &e.Department,
		&e.PriorYearBalance, &e.CurrentYearBalance, &e.TwoYearsAgoBalance, &forward,
		&e.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return employee.Employee{}, err
	}
	if forward.Valid {
		v := int(forward.Int64)
		e.NextYearBackupBalance = &v
	}
	if e.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return employee.Employee{}, err
	}
	if e.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return employee.Employee{}, err
	}
	return e, nil
}

func collectEmployees(rows *sql.Rows) ([]employee.Employee, error) {
	defer rows.Close()

	employees := make([]employee.Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}
	return employees, nil
}

// Create implements employee.EmployeeRepository.
func (r *employeeRepository) Create(ctx context.Context, e employee.Employee) (employee.Employee, error) {
	q := getQuerier(ctx, r.db)

	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return employee.Employee{}, fmt.Errorf("failed to generate employee id: %w", err)
		}
		e.ID = id.String()
	}
	ts := now()

	_, err := q.ExecContext(ctx, `
		INSERT INTO employees (id, employee_number, name, position, department,
			prior_year_balance, current_year_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.EmployeeNumber, e.Name, e.Position, e.Department,
		e.PriorYearBalance, e.CurrentYearBalance, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return employee.Employee{}, employee.ErrEmployeeNumberExists
		}
		return employee.Employee{}, fmt.Errorf("failed to create employee: %w", err)
	}
	return r.GetByID(ctx, e.ID)
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepository) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := getQuerier(ctx, r.db)

	e, err := scanEmployee(q.QueryRowContext(ctx, `SELECT`+employeeColumns+` FROM employees WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee %s: %w", id, err)
	}
	return e, nil
}

// GetByIDForUpdate implements employee.EmployeeRepository. SQLite serializes
// writers, so the transaction itself is the lock.
func (r *employeeRepository) GetByIDForUpdate(ctx context.Context, id string) (employee.Employee, error) {
	return r.GetByID(ctx, id)
}

// Update implements employee.EmployeeRepository.
func (r *employeeRepository) Update(ctx context.Context, e employee.Employee) (employee.Employee, error) {
	q := getQuerier(ctx, r.db)

	res, err := q.ExecContext(ctx, `
		UPDATE employees
		SET employee_number = ?, name = ?, position = ?, department = ?, updated_at = ?
		WHERE id = ?
	`, e.EmployeeNumber, e.Name, e.Position, e.Department, now(), e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return employee.Employee{}, employee.ErrEmployeeNumberExists
		}
		return employee.Employee{}, fmt.Errorf("failed to update employee %s: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return r.GetByID(ctx, e.ID)
}

// Delete implements employee.EmployeeRepository.
func (r *employeeRepository) Delete(ctx context.Context, id string) error {
	q := getQuerier(ctx, r.db)

	res, err := q.ExecContext(ctx, `DELETE FROM employees WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete employee %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// List implements employee.EmployeeRepository.
func (r *employeeRepository) List(ctx context.Context, search string) ([]employee.Employee, error) {
	q := getQuerier(ctx, r.db)

	rows, err := q.QueryContext(ctx, `
		SELECT`+employeeColumns+`
		FROM employees
		WHERE ?1 = '' OR name LIKE '%' || ?1 || '%' OR employee_number LIKE '%' || ?1 || '%'
		ORDER BY name, id
	`, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return collectEmployees(rows)
}

// UpdateBalance implements employee.EmployeeRepository.
func (r *employeeRepository) UpdateBalance(ctx context.Context, id string, version int64, b leave.Balance) error {
	q := getQuerier(ctx, r.db)

	res, err := q.ExecContext(ctx, `
		UPDATE employees
		SET prior_year_balance = ?, current_year_balance = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, b.PriorYear, b.CurrentYear, now(), id, version)
	if err != nil {
		return fmt.Errorf("failed to update balance of employee %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrConcurrentUpdate
	}
	return nil
}

// ListAfter implements employee.EmployeeRepository.
func (r *employeeRepository) ListAfter(ctx context.Context, afterID string, limit int) ([]employee.Employee, error) {
	q := getQuerier(ctx, r.db)

	rows, err := q.QueryContext(ctx, `
		SELECT`+employeeColumns+`
		FROM employees
		WHERE id > ?
		ORDER BY id
		LIMIT ?
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to page employees: %w", err)
	}
	return collectEmployees(rows)
}

// UpdateRolloverState implements employee.EmployeeRepository.
func (r *employeeRepository) UpdateRolloverState(ctx context.Context, e employee.Employee) error {
	q := getQuerier(ctx, r.db)

	res, err := q.ExecContext(ctx, `
		UPDATE employees
		SET prior_year_balance = ?, current_year_balance = ?,
			two_years_ago_balance = ?, next_year_backup_balance = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, e.PriorYearBalance, e.CurrentYearBalance, e.TwoYearsAgoBalance, e.NextYearBackupBalance,
		now(), e.ID, e.Version)
	if err != nil {
		return fmt.Errorf("failed to roll over employee %s: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrConcurrentUpdate
	}
	return nil
}

// CountWithForwardBackup implements employee.EmployeeRepository.
func (r *employeeRepository) CountWithForwardBackup(ctx context.Context) (int64, error) {
	q := getQuerier(ctx, r.db)

	var count int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees WHERE next_year_backup_balance IS NOT NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count forward backups: %w", err)
	}
	return count, nil
}
