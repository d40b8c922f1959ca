// Package workday provides calendar-date arithmetic over working days.
//
// All functions operate on calendar dates: the time of day and location of
// their inputs are discarded and results are returned at midnight UTC.
package workday

import "time"

// DateLayout is the wire format of a calendar date.
const DateLayout = "2006-01-02"

// Date truncates t to its calendar date at midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Parse parses a "YYYY-MM-DD" calendar date.
func Parse(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Format renders a calendar date as "YYYY-MM-DD".
func Format(t time.Time) string {
	return Date(t).Format(DateLayout)
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NormalizeToWorkday moves a weekend date forward to the following Monday.
// Weekdays are returned unchanged.
func NormalizeToWorkday(t time.Time) time.Time {
	d := Date(t)
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, 2)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

const secondsPerDay = 24 * 60 * 60

// CountWorkdays returns the inclusive number of weekdays between start and end.
// It returns 0 when end is before start.
func CountWorkdays(start, end time.Time) int {
	s, e := Date(start), Date(end)
	if e.Before(s) {
		return 0
	}

	// Unix seconds; time.Duration saturates past about 292 years.
	days := int((e.Unix()-s.Unix())/secondsPerDay) + 1
	weeks, rest := days/7, days%7
	count := weeks * 5

	wd := s.Weekday()
	for i := 0; i < rest; i++ {
		if wd != time.Saturday && wd != time.Sunday {
			count++
		}
		wd = (wd + 1) % 7
	}
	return count
}

// LeaveDays sizes a leave period: the start is normalized to a workday and the
// result is never less than one day.
func LeaveDays(start, end time.Time) int {
	n := CountWorkdays(NormalizeToWorkday(start), end)
	if n < 1 {
		return 1
	}
	return n
}
