// Package calendar builds the month windows and bucket labels used by the
// budget analytics. Bucket labels are shared between the stores (which
// group entries by them) and the report (which enumerates them), so both
// sides always agree on the exact string.
package calendar

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host's zoneinfo
)

// StartOfMonth returns midnight on the first day of t's month, in t's location
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last representable instant of t's month
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// MonthsBefore returns the start of the month n months before t's month.
// The arithmetic runs on the first of the month so that a date like
// March 31 never rolls over into the wrong month.
func MonthsBefore(t time.Time, n int) time.Time {
	return StartOfMonth(t).AddDate(0, -n, 0)
}

// EachDay returns midnight of every calendar day in [start, end]
func EachDay(start, end time.Time) []time.Time {
	var days []time.Time
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	for !d.After(end) {
		days = append(days, d)
		d = d.AddDate(0, 0, 1)
	}
	return days
}

// EachMonth returns the start of every calendar month in [start, end]
func EachMonth(start, end time.Time) []time.Time {
	var months []time.Time
	m := StartOfMonth(start)
	for !m.After(end) {
		months = append(months, m)
		m = m.AddDate(0, 1, 0)
	}
	return months
}

// DayLabel renders t as "M/D" without leading zeros
func DayLabel(t time.Time) string {
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
}

// MonthLabel renders t as "M/YYYY" without a leading zero on the month
func MonthLabel(t time.Time) string {
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Year())
}

// DayStamp renders t as "DD-MM-YYYY", the format of the listing day filter
func DayStamp(t time.Time) string {
	return t.Format("02-01-2006")
}

// LoadZone resolves an IANA zone name. The empty name means UTC, and the
// process-local zone is rejected because stores cannot resolve it.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	if name == "Local" {
		return nil, fmt.Errorf("time zone %q is not an IANA zone name", name)
	}
	return time.LoadLocation(name)
}
