package employee

import "errors"

var (
	ErrEmployeeNotFound     = errors.New("employee not found")
	ErrEmployeeNumberExists = errors.New("employee number already exists")
	ErrNegativeBalance      = errors.New("leave balance must not be negative")
	ErrInvalidStatusFilter  = errors.New("status must be on_leave or active")
)
