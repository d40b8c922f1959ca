package report

import (
	"strings"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/validator"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) Extension() string {
	return string(f)
}

type EmployeeReportRequest struct {
	Format string `json:"format"`
	Date   string `json:"date"`

	ParsedFormat Format    `json:"-"`
	AsOf         time.Time `json:"-"`
}

func (r *EmployeeReportRequest) Validate() error {
	var errs validator.ValidationErrors
	errs = validateFormat(errs, &r.Format, &r.ParsedFormat)
	errs = validateOptionalDate(errs, "date", r.Date, &r.AsOf)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type HistoryReportRequest struct {
	Format     string `json:"format"`
	EmployeeID string `json:"employee_id"`
	From       string `json:"from"`
	To         string `json:"to"`

	ParsedFormat Format     `json:"-"`
	FromDate     *time.Time `json:"-"`
	ToDate       *time.Time `json:"-"`
}

func (r *HistoryReportRequest) Validate() error {
	var errs validator.ValidationErrors
	errs = validateFormat(errs, &r.Format, &r.ParsedFormat)

	errs = validateOptionalDatePtr(errs, "from", r.From, &r.FromDate)
	errs = validateOptionalDatePtr(errs, "to", r.To, &r.ToDate)
	if r.FromDate != nil && r.ToDate != nil && r.ToDate.Before(*r.FromDate) {
		errs = append(errs, validator.ValidationError{
			Field:   "to",
			Message: "to must not be before from",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateFormat(errs validator.ValidationErrors, raw *string, parsed *Format) validator.ValidationErrors {
	*raw = strings.ToLower(strings.TrimSpace(*raw))
	if *raw == "" {
		*raw = string(FormatCSV)
	}
	if !validator.IsInSlice(*raw, []string{string(FormatCSV), string(FormatXLSX)}) {
		return append(errs, validator.ValidationError{
			Field:   "format",
			Message: "format must be csv or xlsx",
		})
	}
	*parsed = Format(*raw)
	return errs
}

func validateOptionalDate(errs validator.ValidationErrors, field, raw string, out *time.Time) validator.ValidationErrors {
	if raw == "" {
		return errs
	}
	d, ok := validator.IsValidDate(raw)
	if !ok {
		return append(errs, validator.ValidationError{
			Field:   field,
			Message: field + " must be a date in YYYY-MM-DD format",
		})
	}
	*out = d
	return errs
}

func validateOptionalDatePtr(errs validator.ValidationErrors, field, raw string, out **time.Time) validator.ValidationErrors {
	var d time.Time
	before := len(errs)
	errs = validateOptionalDate(errs, field, raw, &d)
	if raw != "" && len(errs) == before {
		*out = &d
	}
	return errs
}

// File is a rendered report ready to be served or stored.
type File struct {
	Filename    string
	ContentType string
	Content     []byte
}
