package http

import (
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/handler/http/middleware"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/handler/http/response"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/validator"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/workday"
)

const defaultHistoryLimit = 100

type LeaveHandler interface {
	Take(w http.ResponseWriter, r *http.Request)
	Add(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	IsOnLeave(w http.ResponseWriter, r *http.Request)
	OnLeave(w http.ResponseWriter, r *http.Request)
}

type LeaveHandlerImpl struct {
	leaveService leave.LeaveService
	resolver     leave.OnLeaveResolver
}

func NewLeaveHandler(leaveService leave.LeaveService, resolver leave.OnLeaveResolver) LeaveHandler {
	return &LeaveHandlerImpl{
		leaveService: leaveService,
		resolver:     resolver,
	}
}

// employeeIDParam returns the {id} path parameter, writing a 404 when it is
// not a UUID.
func employeeIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		response.NotFound(w, employee.ErrEmployeeNotFound.Error())
		return "", false
	}
	return id, true
}

// dateQueryParam parses ?date=, defaulting to today.
func dateQueryParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return workday.Date(time.Now()), true
	}
	d, ok := validator.IsValidDate(raw)
	if !ok {
		response.ValidationError(w, map[string]string{"date": "date must be in YYYY-MM-DD format"})
		return time.Time{}, false
	}
	return d, true
}

// Take implements LeaveHandler.
func (l *LeaveHandlerImpl) Take(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDParam(w, r)
	if !ok {
		return
	}

	var req leave.TakeLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("TakeLeave decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EmployeeID = employeeID

	resp, err := l.leaveService.Take(r.Context(), middleware.AdminID(r.Context()), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Leave recorded successfully", resp)
}

// Add implements LeaveHandler.
func (l *LeaveHandlerImpl) Add(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDParam(w, r)
	if !ok {
		return
	}

	var req leave.AddLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("AddLeave decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EmployeeID = employeeID

	resp, err := l.leaveService.Add(r.Context(), middleware.AdminID(r.Context()), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Leave added successfully", resp)
}

// Cancel implements LeaveHandler.
func (l *LeaveHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDParam(w, r)
	if !ok {
		return
	}

	var req leave.CancelLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("CancelLeave decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EmployeeID = employeeID

	resp, err := l.leaveService.Cancel(r.Context(), middleware.AdminID(r.Context()), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Leave cancelled successfully", resp)
}

// History implements LeaveHandler.
func (l *LeaveHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDParam(w, r)
	if !ok {
		return
	}

	entries, err := l.leaveService.ListHistory(r.Context(), employeeID, getIntQueryParam(r, "limit", defaultHistoryLimit))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, entries)
}

// IsOnLeave implements LeaveHandler.
func (l *LeaveHandlerImpl) IsOnLeave(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDParam(w, r)
	if !ok {
		return
	}
	day, ok := dateQueryParam(w, r)
	if !ok {
		return
	}

	onLeave, err := l.resolver.IsOnLeave(r.Context(), employeeID, day)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, leave.OnLeaveResponse{
		EmployeeID: employeeID,
		Date:       workday.Format(day),
		OnLeave:    onLeave,
	})
}

// OnLeave implements LeaveHandler.
func (l *LeaveHandlerImpl) OnLeave(w http.ResponseWriter, r *http.Request) {
	day, ok := dateQueryParam(w, r)
	if !ok {
		return
	}

	set, err := l.resolver.OnLeaveSet(r.Context(), day)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	ids := slices.Sorted(maps.Keys(set))
	if ids == nil {
		ids = []string{}
	}
	response.Success(w, leave.OnLeaveSetResponse{
		Date:        workday.Format(day),
		EmployeeIDs: ids,
	})
}
