package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leaveyear"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/handler/http/middleware"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/handler/http/response"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/validator"
)

const defaultRunListLimit = 20

type LeaveYearHandler interface {
	GetSettings(w http.ResponseWriter, r *http.Request)
	Advance(w http.ResponseWriter, r *http.Request)
	RevertPrevious(w http.ResponseWriter, r *http.Request)
	RevertNext(w http.ResponseWriter, r *http.Request)

	ListRuns(w http.ResponseWriter, r *http.Request)
	GetRun(w http.ResponseWriter, r *http.Request)
	ResumeRun(w http.ResponseWriter, r *http.Request)
	ResolveRun(w http.ResponseWriter, r *http.Request)
	Snapshot(w http.ResponseWriter, r *http.Request)
}

type leaveYearHandlerImpl struct {
	rolloverService leaveyear.RolloverService
}

func NewLeaveYearHandler(rolloverService leaveyear.RolloverService) LeaveYearHandler {
	return &leaveYearHandlerImpl{
		rolloverService: rolloverService,
	}
}

func runIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		response.NotFound(w, leaveyear.ErrRunNotFound.Error())
		return "", false
	}
	return id, true
}

// GetSettings implements LeaveYearHandler.
func (h *leaveYearHandlerImpl) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.rolloverService.GetSettings(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, settings)
}

// Advance implements LeaveYearHandler.
func (h *leaveYearHandlerImpl) Advance(w http.ResponseWriter, r *http.Request) {
	run, err := h.rolloverService.Advance(r.Context(), middleware.AdminID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave year advanced", run)
}

// RevertPrevious implements LeaveYearHandler.
func (h *leaveYearHandlerImpl) RevertPrevious(w http.ResponseWriter, r *http.Request) {
	run, err := h.rolloverService.RevertToPrevious(r.Context(), middleware.AdminID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave year reverted to previous year", run)
}

// RevertNext implements LeaveYearHandler.
func (h *leaveYearHandlerImpl) RevertNext(w http.ResponseWriter, r *http.Request) {
	run, err := h.rolloverService.RevertToNext(r.Context(), middleware.AdminID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave year restored to next year", run)
}

// ListRuns implements LeaveYearHandler.
func (h *leaveYearHandlerImpl) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.rolloverService.ListRuns(r.Context(), getIntQueryParam(r, "limit", defaultRunListLimit))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, runs)
}

// GetRun implements LeaveYearHandler.
func (h *leaveYearHandlerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDParam(w, r)
	if !ok {
		return
	}

	run, err := h.rolloverService.GetRun(r.Context(), runID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, run)
}

// ResumeRun implements LeaveYearHandler.
func (h *leaveYearHandlerImpl) ResumeRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDParam(w, r)
	if !ok {
		return
	}

	run, err := h.rolloverService.Resume(r.Context(), runID, middleware.AdminID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Rollover resumed", run)
}

// ResolveRun implements LeaveYearHandler.
func (h *leaveYearHandlerImpl) ResolveRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDParam(w, r)
	if !ok {
		return
	}

	run, err := h.rolloverService.Resolve(r.Context(), runID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Rollover marked as resolved", run)
}

// Snapshot implements LeaveYearHandler. Stores that sign links get a
// redirect; the rest stream the archived JSON.
func (h *leaveYearHandlerImpl) Snapshot(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDParam(w, r)
	if !ok {
		return
	}

	file, err := h.rolloverService.Snapshot(r.Context(), runID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if file.URL != "" {
		http.Redirect(w, r, file.URL, http.StatusFound)
		return
	}
	response.File(w, file.Filename, "application/json", file.Content)
}
