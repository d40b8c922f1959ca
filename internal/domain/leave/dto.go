package leave

import (
	"strings"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/validator"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/workday"
)

const maxReasonLength = 500

// TakeLeaveRequest records leave taken over a period. Days defaults to the
// number of working days in the period.
type TakeLeaveRequest struct {
	EmployeeID string `json:"-"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Days       *int   `json:"days,omitempty"`
	Reason     string `json:"reason"`

	// Populated by Validate
	Period DateRange `json:"-"`
}

func (r *TakeLeaveRequest) Validate() error {
	var errs validator.ValidationErrors
	errs = validateEmployeeID(errs, r.EmployeeID)
	period, errs := validatePeriod(errs, r.StartDate, r.EndDate)
	errs = validateOptionalDays(errs, r.Days)
	r.Reason, errs = validateReason(errs, r.Reason)

	if len(errs) > 0 {
		return errs
	}
	r.Period = period
	return nil
}

// AddLeaveRequest credits days to the current-year bucket.
type AddLeaveRequest struct {
	EmployeeID string `json:"-"`
	Days       int    `json:"days"`
	Reason     string `json:"reason"`
}

func (r *AddLeaveRequest) Validate() error {
	var errs validator.ValidationErrors
	errs = validateEmployeeID(errs, r.EmployeeID)
	if r.Days <= 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "days",
			Message: "days must be greater than zero",
		})
	}
	r.Reason, errs = validateReason(errs, r.Reason)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CancelLeaveRequest restores previously taken leave over a period.
type CancelLeaveRequest struct {
	EmployeeID string `json:"-"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Days       *int   `json:"days,omitempty"`
	Reason     string `json:"reason"`

	Period DateRange `json:"-"`
}

func (r *CancelLeaveRequest) Validate() error {
	var errs validator.ValidationErrors
	errs = validateEmployeeID(errs, r.EmployeeID)
	period, errs := validatePeriod(errs, r.StartDate, r.EndDate)
	errs = validateOptionalDays(errs, r.Days)
	r.Reason, errs = validateReason(errs, r.Reason)

	if len(errs) > 0 {
		return errs
	}
	r.Period = period
	return nil
}

// NormalizePeriod moves the start of p to a working day and keeps the end
// from falling before it.
func NormalizePeriod(p DateRange) DateRange {
	start := workday.NormalizeToWorkday(p.Start)
	end := workday.Date(p.End)
	if end.Before(start) {
		end = start
	}
	return DateRange{Start: start, End: end}
}

func validateEmployeeID(errs validator.ValidationErrors, id string) validator.ValidationErrors {
	if validator.IsEmpty(id) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}
	return errs
}

func validatePeriod(errs validator.ValidationErrors, startStr, endStr string) (DateRange, validator.ValidationErrors) {
	start, startOK := validator.IsValidDate(startStr)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be a date in YYYY-MM-DD format",
		})
	}
	end, endOK := validator.IsValidDate(endStr)
	if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be a date in YYYY-MM-DD format",
		})
	}
	if !startOK || !endOK {
		return DateRange{}, errs
	}

	period := DateRange{Start: workday.Date(start), End: workday.Date(end)}
	if !period.Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: ErrInvalidDateRange.Error(),
		})
	}
	return period, errs
}

func validateOptionalDays(errs validator.ValidationErrors, days *int) validator.ValidationErrors {
	if days != nil && *days <= 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "days",
			Message: "days must be greater than zero",
		})
	}
	return errs
}

func validateReason(errs validator.ValidationErrors, reason string) (string, validator.ValidationErrors) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required",
		})
	}
	if len([]rune(reason)) > maxReasonLength {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must not exceed 500 characters",
		})
	}
	return reason, errs
}

// TransactionResponse is the outcome of a balance mutation.
type TransactionResponse struct {
	Entry              HistoryEntryResponse `json:"entry"`
	PriorYearBalance   int                  `json:"prior_year_balance"`
	CurrentYearBalance int                  `json:"current_year_balance"`
	TotalBalance       int                  `json:"total_balance"`
}

type HistoryEntryResponse struct {
	ID             string    `json:"id"`
	EmployeeID     string    `json:"employee_id"`
	Kind           Kind      `json:"kind"`
	Days           int       `json:"days"`
	StartDate      *string   `json:"start_date,omitempty"`
	EndDate        *string   `json:"end_date,omitempty"`
	CancelsEntryID *string   `json:"cancels_entry_id,omitempty"`
	Reason         string    `json:"reason"`
	AdminID        string    `json:"admin_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewHistoryEntryResponse(h HistoryEntry) HistoryEntryResponse {
	resp := HistoryEntryResponse{
		ID:             h.ID,
		EmployeeID:     h.EmployeeID,
		Kind:           h.Kind,
		Days:           h.Days,
		CancelsEntryID: h.CancelsEntryID,
		Reason:         h.Reason,
		AdminID:        h.AdminID,
		CreatedAt:      h.CreatedAt,
	}
	if h.Period != nil {
		start, end := workday.Format(h.Period.Start), workday.Format(h.Period.End)
		resp.StartDate, resp.EndDate = &start, &end
	}
	return resp
}

type OnLeaveResponse struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	OnLeave    bool   `json:"on_leave"`
}

type OnLeaveSetResponse struct {
	Date        string   `json:"date"`
	EmployeeIDs []string `json:"employee_ids"`
}
