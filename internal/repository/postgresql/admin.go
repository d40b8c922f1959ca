package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/auth"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
)

type adminRepositoryImpl struct {
	db *database.DB
}

func NewAdminRepository(db *database.DB) auth.AdminRepository {
	return &adminRepositoryImpl{db: db}
}

func scanAdmin(row pgx.Row) (auth.Admin, error) {
	var a auth.Admin
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Create implements auth.AdminRepository.
func (r *adminRepositoryImpl) Create(ctx context.Context, admin auth.Admin) (auth.Admin, error) {
	q := GetQuerier(ctx, r.db)

	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}

	created, err := scanAdmin(q.QueryRow(ctx, `
		INSERT INTO admins (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, name, password_hash, created_at, updated_at
	`, admin.ID, admin.Email, admin.Name, admin.PasswordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return auth.Admin{}, auth.ErrAdminEmailExists
		}
		return auth.Admin{}, fmt.Errorf("failed to create admin: %w", err)
	}
	return created, nil
}

// GetByEmail implements auth.AdminRepository.
func (r *adminRepositoryImpl) GetByEmail(ctx context.Context, email string) (auth.Admin, error) {
	return r.getBy(ctx, "email", email)
}

// GetByID implements auth.AdminRepository.
func (r *adminRepositoryImpl) GetByID(ctx context.Context, id string) (auth.Admin, error) {
	return r.getBy(ctx, "id", id)
}

func (r *adminRepositoryImpl) getBy(ctx context.Context, column, value string) (auth.Admin, error) {
	q := GetQuerier(ctx, r.db)

	query := fmt.Sprintf(`
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM admins
		WHERE %s = $1
	`, column)

	a, err := scanAdmin(q.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.Admin{}, auth.ErrAdminNotFound
		}
		return auth.Admin{}, fmt.Errorf("failed to get admin by %s: %w", column, err)
	}
	return a, nil
}
