package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/auth"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
)

type adminRepository struct {
	db *database.SQLiteDB
}

func NewAdminRepository(db *database.SQLiteDB) auth.AdminRepository {
	return &adminRepository{db: db}
}

func scanAdmin(row scanner) (auth.Admin, error) {
	var (
		a                    auth.Admin
		createdAt, updatedAt string
	)
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &createdAt, &updatedAt); err != nil {
		return auth.Admin{}, err
	}
	var err error
	if a.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return auth.Admin{}, err
	}
	if a.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return auth.Admin{}, err
	}
	return a, nil
}

// Create implements auth.AdminRepository.
func (r *adminRepository) Create(ctx context.Context, admin auth.Admin) (auth.Admin, error) {
	q := getQuerier(ctx, r.db)

	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	ts := now()

	_, err := q.ExecContext(ctx, `
		INSERT INTO admins (id, email, name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, admin.ID, admin.Email, admin.Name, admin.PasswordHash, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.Admin{}, auth.ErrAdminEmailExists
		}
		return auth.Admin{}, fmt.Errorf("failed to create admin: %w", err)
	}
	return r.GetByID(ctx, admin.ID)
}

// GetByEmail implements auth.AdminRepository.
func (r *adminRepository) GetByEmail(ctx context.Context, email string) (auth.Admin, error) {
	return r.getBy(ctx, "email", email)
}

// GetByID implements auth.AdminRepository.
func (r *adminRepository) GetByID(ctx context.Context, id string) (auth.Admin, error) {
	return r.getBy(ctx, "id", id)
}

func (r *adminRepository) getBy(ctx context.Context, column, value string) (auth.Admin, error) {
	q := getQuerier(ctx, r.db)

	a, err := scanAdmin(q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM admins
		WHERE %s = ?
	`, column), value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Admin{}, auth.ErrAdminNotFound
		}
		return auth.Admin{}, fmt.Errorf("failed to get admin by %s: %w", column, err)
	}
	return a, nil
}
