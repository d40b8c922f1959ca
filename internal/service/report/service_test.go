package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leaveyear"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/report"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/fixtures"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/validator"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/repository/sqlite/sqlitetest"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/onleave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

type fixture struct {
	svc   *ReportServiceImpl
	store *sqlitetest.Store
	kasi  employee.Employee
	jfu   employee.Employee
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	store := sqlitetest.New(t)
	svc := NewReportService(store.Employees, store.History, store.Settings, onleave.NewResolver(store.History, nil, nil), fixtures.NewPositionRanker(nil)).(*ReportServiceImpl)
	svc.now = func() time.Time { return date("2025-03-10") }

	_, err := store.Settings.Create(ctx, leaveyear.Settings{CurrentYear: 2025})
	require.NoError(t, err)

	jfu := store.SeedEmployee(t, "300", 4, 6)
	kasi, err := store.Employees.Create(ctx, employee.Employee{
		EmployeeNumber:     "100",
		Name:               "Kepala Seksi",
		Position:           "KASI",
		CurrentYearBalance: 12,
	})
	require.NoError(t, err)

	_, err = store.History.Append(ctx, leave.HistoryEntry{
		EmployeeID: jfu.ID,
		Kind:       leave.KindConsumption,
		Days:       6,
		Period:     &leave.DateRange{Start: date("2025-03-10"), End: date("2025-03-17")},
		Reason:     "Cuti tahunan",
		AdminID:    "admin-1",
		CreatedAt:  date("2025-03-03"),
	})
	require.NoError(t, err)
	_, err = store.History.Append(ctx, leave.HistoryEntry{
		EmployeeID: kasi.ID,
		Kind:       leave.KindAccrual,
		Days:       2,
		Reason:     "Koreksi",
		AdminID:    "admin-1",
		CreatedAt:  date("2025-01-15"),
	})
	require.NoError(t, err)

	return fixture{svc: svc, store: store, kasi: kasi, jfu: jfu}
}

func readCSV(t *testing.T, content []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(content, []byte("\xef\xbb\xbf")), "csv must start with a UTF-8 BOM")
	records, err := csv.NewReader(bytes.NewReader(content[3:])).ReadAll()
	require.NoError(t, err)
	return records
}

func readXLSX(t *testing.T, content []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	return rows
}

func TestEmployeeBalances_CSV(t *testing.T) {
	fx := newFixture(t)

	file, err := fx.svc.EmployeeBalances(context.Background(), report.EmployeeReportRequest{})
	require.NoError(t, err)
	assert.Equal(t, "data-pegawai-2025-03-10.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	records := readCSV(t, file.Content)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"No", "NIP", "Nama", "Jabatan", "Status", "Sisa Cuti Tahun Lalu", "Sisa Cuti Tahun Ini", "Total Sisa Cuti"}, records[0])
	assert.Equal(t, []string{"1", "100", "Kepala Seksi", "KASI", "Aktif", "0", "12", "12"}, records[1])
	assert.Equal(t, []string{"2", "300", "Employee 300", "JFU", "Sedang Cuti", "4", "6", "10"}, records[2])
}

func TestEmployeeBalances_XLSXAsOfDate(t *testing.T) {
	fx := newFixture(t)

	file, err := fx.svc.EmployeeBalances(context.Background(), report.EmployeeReportRequest{Format: "XLSX", Date: "2025-03-18"})
	require.NoError(t, err)
	assert.Equal(t, "data-pegawai-2025-03-18.xlsx", file.Filename)

	rows := readXLSX(t, file.Content)
	require.Len(t, rows, 3)
	assert.Equal(t, "Aktif", rows[2][4])
	assert.Equal(t, "10", rows[2][7])
}

func TestEmployeeBalances_InvalidFormat(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.EmployeeBalances(context.Background(), report.EmployeeReportRequest{Format: "pdf"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "format")
}

func TestHistory_CSV(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	file, err := fx.svc.History(ctx, report.HistoryReportRequest{})
	require.NoError(t, err)
	records := readCSV(t, file.Content)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Nama", "NIP", "Tanggal", "Jenis", "Jumlah", "Periode", "Keterangan"}, records[0])
	assert.Equal(t, []string{"Employee 300", "300", "03/03/2025", "Pengurangan", "6", "10/03/2025 - 17/03/2025", "Cuti tahunan"}, records[1])
	assert.Equal(t, []string{"Kepala Seksi", "100", "15/01/2025", "Penambahan", "2", "-", "Koreksi"}, records[2])

	t.Run("date range", func(t *testing.T) {
		file, err := fx.svc.History(ctx, report.HistoryReportRequest{From: "2025-03-01", To: "2025-03-31"})
		require.NoError(t, err)
		assert.Len(t, readCSV(t, file.Content), 2)
	})

	t.Run("single employee", func(t *testing.T) {
		file, err := fx.svc.History(ctx, report.HistoryReportRequest{EmployeeID: fx.kasi.ID})
		require.NoError(t, err)
		records := readCSV(t, file.Content)
		require.Len(t, records, 2)
		assert.Equal(t, "100", records[1][1])
	})

	t.Run("unknown employee", func(t *testing.T) {
		_, err := fx.svc.History(ctx, report.HistoryReportRequest{EmployeeID: "01890000-0000-7000-8000-000000000000"})
		assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
	})

	t.Run("reversed range", func(t *testing.T) {
		_, err := fx.svc.History(ctx, report.HistoryReportRequest{From: "2025-03-31", To: "2025-03-01"})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Contains(t, verrs.ToMap(), "to")
	})
}

func TestEmployeeHistory_XLSX(t *testing.T) {
	fx := newFixture(t)

	file, err := fx.svc.EmployeeHistory(context.Background(), fx.jfu.ID)
	require.NoError(t, err)
	assert.Equal(t, "riwayat-cuti-300.xlsx", file.Filename)
	assert.Equal(t, report.FormatXLSX.ContentType(), file.ContentType)

	rows := readXLSX(t, file.Content)
	assert.Equal(t, []string{"Nama", "Employee 300"}, rows[0])
	assert.Equal(t, []string{"Tahun Cuti", "2025"}, rows[3])
	assert.Equal(t, []string{"No", "Tanggal", "Jenis", "Jumlah", "Periode", "Keterangan"}, rows[5])
	assert.Equal(t, []string{"1", "03/03/2025", "Pengurangan", "6", "10/03/2025 - 17/03/2025", "Cuti tahunan"}, rows[6])
	assert.Equal(t, []string{"Total Sisa Cuti", "10"}, rows[len(rows)-1])

	_, err = fx.svc.EmployeeHistory(context.Background(), "01890000-0000-7000-8000-000000000000")
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
}

func TestEmployeeHistory_FollowsLeaveYear(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	settings, err := fx.store.Settings.Get(ctx)
	require.NoError(t, err)
	previous := settings.CurrentYear
	settings.PreviousYear = &previous
	settings.CurrentYear = 2026
	require.NoError(t, fx.store.Settings.Update(ctx, settings))

	file, err := fx.svc.EmployeeHistory(ctx, fx.kasi.ID)
	require.NoError(t, err)
	rows := readXLSX(t, file.Content)
	assert.Equal(t, []string{"Tahun Cuti", "2026"}, rows[3])
}
