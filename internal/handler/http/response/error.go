package response

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/auth"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leaveyear"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/validator"
)

// RetryAfterSeconds is sent with 503 responses for transient storage failures.
const RetryAfterSeconds = 5

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var insufficient *leave.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		errorWithDetails(w, http.StatusBadRequest, "INSUFFICIENT_BALANCE", "Insufficient leave balance", map[string]string{
			"available": strconv.Itoa(insufficient.Available),
			"requested": strconv.Itoa(insufficient.Requested),
		})
		return
	}

	var partial *leaveyear.PartialRolloverError
	if errors.As(err, &partial) {
		slog.Error("rollover partially applied", "run_id", partial.RunID, "operation", partial.Operation, "error", partial.Err)
		errorWithDetails(w, http.StatusInternalServerError, "PARTIAL_ROLLOVER", "Rollover failed after updating some employees", map[string]string{
			"run_id":               partial.RunID,
			"operation":            string(partial.Operation),
			"updated_count":        strconv.Itoa(len(partial.UpdatedEmployeeIDs)),
			"updated_employee_ids": strings.Join(partial.UpdatedEmployeeIDs, ","),
		})
		return
	}

	var halted *leaveyear.HaltedError
	if errors.As(err, &halted) {
		errorWithDetails(w, http.StatusConflict, "ROLLOVER_HALTED", leaveyear.ErrRolloverHalted.Error(), map[string]string{
			"run_id": halted.RunID,
			"status": string(halted.Status),
		})
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")
	case errors.Is(err, auth.ErrAdminNotFound):
		NotFound(w, "Admin not found")
	case errors.Is(err, auth.ErrAdminEmailExists):
		Conflict(w, "Email already registered")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeNumberExists):
		Conflict(w, "Employee number already exists")
	case errors.Is(err, employee.ErrNegativeBalance):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, employee.ErrInvalidStatusFilter):
		BadRequest(w, err.Error(), nil)

	// Leave domain errors
	case errors.Is(err, leave.ErrStorageUnavailable):
		slog.Error("leave storage unavailable", "error", err)
		ServiceUnavailable(w, "Storage temporarily unavailable, please retry", RetryAfterSeconds)
	case errors.Is(err, leave.ErrInsufficientBalance):
		BadRequest(w, "Insufficient leave balance", nil)
	case errors.Is(err, leave.ErrInvalidDateRange):
		ValidationError(w, map[string]string{"end_date": err.Error()})
	case errors.Is(err, leave.ErrInvalidDays):
		ValidationError(w, map[string]string{"days": err.Error()})
	case errors.Is(err, leave.ErrNoMatchingLeavePeriod):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, leave.ErrLeaveAlreadyCancelled):
		Conflict(w, err.Error())
	case errors.Is(err, leave.ErrConcurrentUpdate):
		Conflict(w, err.Error())

	// Leave year errors
	case errors.Is(err, leaveyear.ErrRolloverHalted),
		errors.Is(err, leaveyear.ErrNoPreviousYear),
		errors.Is(err, leaveyear.ErrNoForwardBackup),
		errors.Is(err, leaveyear.ErrRunNotResumable):
		Conflict(w, err.Error())
	case errors.Is(err, leaveyear.ErrRunNotFound):
		NotFound(w, "Rollover run not found")
	case errors.Is(err, leaveyear.ErrSnapshotNotFound):
		NotFound(w, "Rollover snapshot not found")
	case errors.Is(err, leaveyear.ErrSettingsNotFound):
		NotFound(w, "Leave year settings not found")
	case errors.Is(err, leaveyear.ErrInvalidOperation):
		BadRequest(w, err.Error(), nil)

	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
