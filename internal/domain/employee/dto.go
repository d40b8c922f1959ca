package employee

import (
	"strings"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/validator"
)

type CreateEmployeeRequest struct {
	EmployeeNumber     string `json:"employee_number"`
	Name               string `json:"name"`
	Position           string `json:"position"`
	Department         string `json:"department"`
	PriorYearBalance   *int   `json:"prior_year_balance,omitempty"`
	CurrentYearBalance *int   `json:"current_year_balance,omitempty"`
}

func (r *CreateEmployeeRequest) Validate() error {
	var errs validator.ValidationErrors

	r.EmployeeNumber = strings.TrimSpace(r.EmployeeNumber)
	r.Name = strings.TrimSpace(r.Name)
	r.Position = strings.TrimSpace(r.Position)
	r.Department = strings.TrimSpace(r.Department)

	errs = requireLength(errs, "employee_number", r.EmployeeNumber, 50)
	errs = requireLength(errs, "name", r.Name, 255)
	errs = requireLength(errs, "position", r.Position, 100)
	if len(r.Department) > 255 {
		errs = append(errs, validator.ValidationError{
			Field:   "department",
			Message: "department must not exceed 255 characters",
		})
	}
	errs = nonNegative(errs, "prior_year_balance", r.PriorYearBalance)
	errs = nonNegative(errs, "current_year_balance", r.CurrentYearBalance)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UpdateEmployeeRequest struct {
	ID             string  `json:"-"`
	EmployeeNumber *string `json:"employee_number,omitempty"`
	Name           *string `json:"name,omitempty"`
	Position       *string `json:"position,omitempty"`
	Department     *string `json:"department,omitempty"`
}

func (r *UpdateEmployeeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id is required",
		})
	}
	if r.EmployeeNumber != nil {
		*r.EmployeeNumber = strings.TrimSpace(*r.EmployeeNumber)
		errs = requireLength(errs, "employee_number", *r.EmployeeNumber, 50)
	}
	if r.Name != nil {
		*r.Name = strings.TrimSpace(*r.Name)
		errs = requireLength(errs, "name", *r.Name, 255)
	}
	if r.Position != nil {
		*r.Position = strings.TrimSpace(*r.Position)
		errs = requireLength(errs, "position", *r.Position, 100)
	}
	if r.Department != nil {
		*r.Department = strings.TrimSpace(*r.Department)
		if len(*r.Department) > 255 {
			errs = append(errs, validator.ValidationError{
				Field:   "department",
				Message: "department must not exceed 255 characters",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func requireLength(errs validator.ValidationErrors, field, value string, max int) validator.ValidationErrors {
	if value == "" {
		return append(errs, validator.ValidationError{
			Field:   field,
			Message: field + " is required",
		})
	}
	if len([]rune(value)) > max {
		return append(errs, validator.ValidationError{
			Field:   field,
			Message: field + " must not exceed " + validator.Itoa(max) + " characters",
		})
	}
	return errs
}

func nonNegative(errs validator.ValidationErrors, field string, value *int) validator.ValidationErrors {
	if value != nil && *value < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   field,
			Message: field + " must not be negative",
		})
	}
	return errs
}

// EmployeeFilter is the query of the employee list.
type EmployeeFilter struct {
	Search string
	Status *Status
	AsOf   time.Time
	Page   int
	Limit  int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Validate fills paging defaults and rejects unknown statuses.
func (f *EmployeeFilter) Validate() error {
	var errs validator.ValidationErrors

	f.Search = strings.TrimSpace(f.Search)
	if f.Status != nil && !f.Status.Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: ErrInvalidStatusFilter.Error(),
		})
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed " + validator.Itoa(MaxPageLimit),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type EmployeeResponse struct {
	ID                 string    `json:"id"`
	EmployeeNumber     string    `json:"employee_number"`
	Name               string    `json:"name"`
	Position           string    `json:"position"`
	Department         string    `json:"department"`
	PriorYearBalance   int       `json:"prior_year_balance"`
	CurrentYearBalance int       `json:"current_year_balance"`
	TotalBalance       int       `json:"total_balance"`
	LowBalance         bool      `json:"low_balance"`
	OnLeave            bool      `json:"on_leave"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type ListEmployeeResponse struct {
	Employees  []EmployeeResponse `json:"employees"`
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

type StatsResponse struct {
	Date           string `json:"date"`
	TotalEmployees int    `json:"total_employees"`
	OnLeave        int    `json:"on_leave"`
	LowBalance     int    `json:"low_balance"`
}
