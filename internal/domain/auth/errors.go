package auth

import "errors"

var (
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrAdminNotFound          = errors.New("admin not found")
	ErrAdminEmailExists       = errors.New("email already registered")
	ErrAdminPrivilegeRequired = errors.New("admin privilege required")
)
