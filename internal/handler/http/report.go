package http

import (
	"net/http"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/report"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/handler/http/response"
)

type ReportHandler interface {
	EmployeeBalances(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	EmployeeHistory(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reportService report.ReportService
}

func NewReportHandler(reportService report.ReportService) ReportHandler {
	return &reportHandlerImpl{
		reportService: reportService,
	}
}

// EmployeeBalances handles GET /reports/employees
func (h *reportHandlerImpl) EmployeeBalances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := report.EmployeeReportRequest{
		Format: q.Get("format"),
		Date:   q.Get("date"),
	}

	file, err := h.reportService.EmployeeBalances(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.File(w, file.Filename, file.ContentType, file.Content)
}

// History handles GET /reports/history
func (h *reportHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := report.HistoryReportRequest{
		Format:     q.Get("format"),
		EmployeeID: q.Get("employee_id"),
		From:       q.Get("from"),
		To:         q.Get("to"),
	}

	file, err := h.reportService.History(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.File(w, file.Filename, file.ContentType, file.Content)
}

// EmployeeHistory handles GET /reports/employees/{id}/history
func (h *reportHandlerImpl) EmployeeHistory(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDParam(w, r)
	if !ok {
		return
	}

	file, err := h.reportService.EmployeeHistory(r.Context(), employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.File(w, file.Filename, file.ContentType, file.Content)
}
