package auth

import "context"

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (TokenResponse, error)
	CreateAdmin(ctx context.Context, req CreateAdminRequest) (AdminResponse, error)
	// EnsureAdmin creates the admin unless the email is already registered.
	EnsureAdmin(ctx context.Context, req CreateAdminRequest) (AdminResponse, bool, error)
	Me(ctx context.Context, adminID string) (AdminResponse, error)
	SSEToken(ctx context.Context, adminID string) (SSETokenResponse, error)
}
