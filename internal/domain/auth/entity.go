package auth

import "time"

// Admin is an operator allowed to record leave and run rollovers.
type Admin struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
