package report

import "context"

type ReportService interface {
	EmployeeBalances(ctx context.Context, req EmployeeReportRequest) (File, error)
	History(ctx context.Context, req HistoryReportRequest) (File, error)
	EmployeeHistory(ctx context.Context, employeeID string) (File, error)
}
