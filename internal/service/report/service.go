package report

import (
	"bytes"
	"cmp"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leaveyear"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/report"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/fixtures"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/workday"
	"github.com/xuri/excelize/v2"
)

const (
	statusOnLeave = "Sedang Cuti"
	statusActive  = "Aktif"

	kindAccrual     = "Penambahan"
	kindConsumption = "Pengurangan"

	displayDate = "02/01/2006"
)

var (
	employeeHeader = []any{"No", "NIP", "Nama", "Jabatan", "Status", "Sisa Cuti Tahun Lalu", "Sisa Cuti Tahun Ini", "Total Sisa Cuti"}
	historyHeader  = []any{"Nama", "NIP", "Tanggal", "Jenis", "Jumlah", "Periode", "Keterangan"}
)

// table is a titled grid of cells, header row first.
type table struct {
	title string
	rows  [][]any
}

type ReportServiceImpl struct {
	employeeRepo employee.EmployeeRepository
	historyRepo  leave.HistoryRepository
	settingsRepo leaveyear.SettingsRepository
	resolver     leave.OnLeaveResolver
	ranker       fixtures.PositionRanker
	now          func() time.Time
}

func NewReportService(
	employeeRepo employee.EmployeeRepository,
	historyRepo leave.HistoryRepository,
	settingsRepo leaveyear.SettingsRepository,
	resolver leave.OnLeaveResolver,
	ranker fixtures.PositionRanker,
) report.ReportService {
	return &ReportServiceImpl{
		employeeRepo: employeeRepo,
		historyRepo:  historyRepo,
		settingsRepo: settingsRepo,
		resolver:     resolver,
		ranker:       ranker,
		now:          time.Now,
	}
}

// EmployeeBalances implements report.ReportService.
func (s *ReportServiceImpl) EmployeeBalances(ctx context.Context, req report.EmployeeReportRequest) (report.File, error) {
	if err := req.Validate(); err != nil {
		return report.File{}, err
	}
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = s.now()
	}
	asOf = workday.Date(asOf)

	employees, err := s.employeeRepo.List(ctx, "")
	if err != nil {
		return report.File{}, leave.StorageError("failed to list employees", err)
	}
	onLeave, err := s.resolver.OnLeaveSet(ctx, asOf)
	if err != nil {
		return report.File{}, err
	}

	slices.SortStableFunc(employees, func(a, b employee.Employee) int {
		return cmp.Or(
			cmp.Compare(s.ranker.Rank(a.Position), s.ranker.Rank(b.Position)),
			strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
		)
	})

	t := table{title: "Data Pegawai", rows: [][]any{employeeHeader}}
	for i, e := range employees {
		status := statusActive
		if _, ok := onLeave[e.ID]; ok {
			status = statusOnLeave
		}
		t.rows = append(t.rows, []any{
			i + 1, e.EmployeeNumber, e.Name, e.Position, status,
			e.PriorYearBalance, e.CurrentYearBalance, e.Balance().Total(),
		})
	}

	return render(req.ParsedFormat, "data-pegawai-"+workday.Format(asOf), t)
}

// History implements report.ReportService.
func (s *ReportServiceImpl) History(ctx context.Context, req report.HistoryReportRequest) (report.File, error) {
	if err := req.Validate(); err != nil {
		return report.File{}, err
	}

	filter := leave.HistoryFilter{From: req.FromDate, To: req.ToDate}
	if req.EmployeeID != "" {
		if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID); err != nil {
			return report.File{}, passNotFound("failed to get employee", err)
		}
		filter.EmployeeID = &req.EmployeeID
	}

	records, err := s.historyRepo.List(ctx, filter)
	if err != nil {
		return report.File{}, leave.StorageError("failed to list history", err)
	}

	t := table{title: "Riwayat Cuti", rows: [][]any{historyHeader}}
	for _, r := range records {
		t.rows = append(t.rows, []any{
			r.EmployeeName, r.EmployeeNumber, r.CreatedAt.Format(displayDate),
			kindLabel(r.Kind), r.Days, periodLabel(r.Period), r.Reason,
		})
	}

	return render(req.ParsedFormat, "riwayat-cuti-"+workday.Format(s.now()), t)
}

// EmployeeHistory implements report.ReportService. The workbook names the
// current leave year, lists every entry of one employee and ends with the
// balance totals.
func (s *ReportServiceImpl) EmployeeHistory(ctx context.Context, employeeID string) (report.File, error) {
	e, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		return report.File{}, passNotFound("failed to get employee", err)
	}
	var year any = "-"
	settings, err := s.settingsRepo.Get(ctx)
	switch {
	case err == nil:
		year = settings.CurrentYear
	case !errors.Is(err, leaveyear.ErrSettingsNotFound):
		return report.File{}, leave.StorageError("failed to get leave year settings", err)
	}

	t := table{title: "Riwayat Cuti", rows: [][]any{
		{"Nama", e.Name},
		{"NIP", e.EmployeeNumber},
		{"Jabatan", e.Position},
		{"Tahun Cuti", year},
		{},
		{"No", "Tanggal", "Jenis", "Jumlah", "Periode", "Keterangan"},
	}}
	n := 0
	for entry, err := range s.historyRepo.ListByEmployee(ctx, e.ID) {
		if err != nil {
			return report.File{}, leave.StorageError("failed to list history", err)
		}
		n++
		t.rows = append(t.rows, []any{
			n, entry.CreatedAt.Format(displayDate), kindLabel(entry.Kind),
			entry.Days, periodLabel(entry.Period), entry.Reason,
		})
	}
	t.rows = append(t.rows,
		[]any{},
		[]any{"Sisa Cuti Tahun Lalu", e.PriorYearBalance},
		[]any{"Sisa Cuti Tahun Ini", e.CurrentYearBalance},
		[]any{"Total Sisa Cuti", e.Balance().Total()},
	)

	return render(report.FormatXLSX, "riwayat-cuti-"+e.EmployeeNumber, t)
}

func kindLabel(k leave.Kind) string {
	if k == leave.KindAccrual {
		return kindAccrual
	}
	return kindConsumption
}

func periodLabel(p *leave.DateRange) string {
	if p == nil {
		return "-"
	}
	if p.Start.Equal(p.End) {
		return p.Start.Format(displayDate)
	}
	return p.Start.Format(displayDate) + " - " + p.End.Format(displayDate)
}

func passNotFound(op string, err error) error {
	if errors.Is(err, employee.ErrEmployeeNotFound) {
		return err
	}
	return leave.StorageError(op, err)
}

func render(format report.Format, basename string, t table) (report.File, error) {
	var (
		content []byte
		err     error
	)
	switch format {
	case report.FormatXLSX:
		content, err = renderXLSX(t)
	default:
		format = report.FormatCSV
		content, err = renderCSV(t)
	}
	if err != nil {
		return report.File{}, fmt.Errorf("failed to render %s report: %w", format, err)
	}
	return report.File{
		Filename:    basename + "." + format.Extension(),
		ContentType: format.ContentType(),
		Content:     content,
	}, nil
}

// renderCSV writes UTF-8 with a byte order mark so spreadsheet apps pick the
// right encoding for names.
func renderCSV(t table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")

	w := csv.NewWriter(&buf)
	for _, row := range t.rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = fmt.Sprint(cell)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(t table) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := t.title
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	headerDone := false
	for i, row := range t.rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
		if !headerDone && len(row) > 2 {
			end, err := excelize.CoordinatesToCellName(len(row), i+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellStyle(sheet, cell, end, bold); err != nil {
				return nil, err
			}
			headerDone = true
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
