package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCalendar is wrapped by calendar validation failures
	ErrInvalidCalendar = errors.New("invalid calendar")
	// ErrInvalidLine is wrapped by line geometry validation failures
	ErrInvalidLine = errors.New("invalid line")
)

// InvalidScheduleError reports a structurally invalid schedule
type InvalidScheduleError struct {
	Reason string
}

func (e *InvalidScheduleError) Error() string {
	return "invalid schedule: " + e.Reason
}

// MissingDataError reports a gap between a line's schedules and the calendar.
// It is only raised by strict calculations.
type MissingDataError struct {
	LineID  string
	Season  Season
	DayType DayType
	Reason  string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing data for line %s %s/%s: %s", e.LineID, e.Season, e.DayType, e.Reason)
}

// MissingParamsError lists required parameters absent from the input
type MissingParamsError struct {
	Keys []string
}

func (e *MissingParamsError) Error() string {
	return "missing parameters: " + strings.Join(e.Keys, ", ")
}

// InvalidParamsError lists out-of-range parameters
type InvalidParamsError struct {
	Problems []string
}

func (e *InvalidParamsError) Error() string {
	return "invalid parameters: " + strings.Join(e.Problems, "; ")
}
