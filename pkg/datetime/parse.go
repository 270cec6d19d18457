// Package datetime maps simulated month numbers to calendar months.
package datetime

import (
	"time"

	"github.com/iwvelando/heloc-forecast/pkg/constants"
)

const (
	// DateTimeLayout is the format expected in config files and is also the output
	// date format.
	DateTimeLayout = constants.DateTimeLayout
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseStartDate parses a "2006-01" start month. An empty string means the
// month containing now; callers inject now so runs stay reproducible.
func ParseStartDate(date string, now time.Time) (time.Time, error) {
	if date == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(DateTimeLayout, date)
}

// MonthLabel returns the calendar month of a 1-based simulated month, where
// month 1 is start.
func MonthLabel(start time.Time, month int) string {
	return start.AddDate(0, month-1, 0).Format(DateTimeLayout)
}
