package ledger

import (
	"strings"
	"time"

	"github.com/tallybook/backend/internal/domain/shared"
)

// Window names a reporting period ending now
type Window string

const (
	WindowOneMonth    Window = "1M"
	WindowThreeMonths Window = "3M"
	WindowSixMonths   Window = "6M"
	WindowYearToDate  Window = "YTD"
	WindowAllTime     Window = "ALL"
)

// AllWindows lists every reporting window, in ascending span order
var AllWindows = []Window{
	WindowOneMonth,
	WindowThreeMonths,
	WindowSixMonths,
	WindowYearToDate,
	WindowAllTime,
}

// IsValid checks if the window is valid
func (w Window) IsValid() bool {
	switch w {
	case WindowOneMonth, WindowThreeMonths, WindowSixMonths, WindowYearToDate, WindowAllTime:
		return true
	}
	return false
}

// String returns the string representation
func (w Window) String() string {
	return string(w)
}

// ParseWindow parses a window name, case-insensitively
func ParseWindow(s string) (Window, error) {
	w := Window(strings.ToUpper(strings.TrimSpace(s)))
	if !w.IsValid() {
		return "", shared.NewDomainError("INVALID_INPUT", "Window must be one of 1M, 3M, 6M, YTD, ALL")
	}
	return w, nil
}

// Start resolves the window to its concrete start instant.
// ALL starts at the Unix epoch, YTD at January 1st of the current year.
func (w Window) Start(now time.Time) time.Time {
	switch w {
	case WindowOneMonth:
		return now.AddDate(0, -1, 0)
	case WindowThreeMonths:
		return now.AddDate(0, -3, 0)
	case WindowSixMonths:
		return now.AddDate(0, -6, 0)
	case WindowYearToDate:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Unix(0, 0).UTC()
	}
}

// Midpoint splits a period in half for growth comparisons
func Midpoint(start, end time.Time) time.Time {
	return start.Add(end.Sub(start) / 2)
}
