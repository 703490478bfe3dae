// Package utils provides utility functions for the application.
package utils

import (
	"errors"
	"time"
)

// DateLayout is the calendar date format accepted by report endpoints
const DateLayout = "2006-01-02"

// MaxReportDays bounds the length of a report date range
const MaxReportDays = 366

// ErrDateRangeReversed is returned when a range ends before it starts
var ErrDateRangeReversed = errors.New("end date is before start date")

// ErrDateRangeTooLong is returned when a range exceeds MaxReportDays
var ErrDateRangeTooLong = errors.New("date range is too long")

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// StartOfDay truncates t to midnight UTC
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a DateLayout string as a UTC day
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DateRange returns every day from start to end inclusive, formatted with DateLayout
func DateRange(start, end time.Time) ([]string, error) {
	start, end = StartOfDay(start), StartOfDay(end)
	if end.Before(start) {
		return nil, ErrDateRangeReversed
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > MaxReportDays {
		return nil, ErrDateRangeTooLong
	}

	out := make([]string, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateLayout))
	}
	return out, nil
}
