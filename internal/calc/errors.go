package calc

import (
	"errors"
	"fmt"

	"github.com/passbi/passbi_fleet/internal/models"
)

var (
	// ErrNoSchedules is returned for a line without any schedule slot
	ErrNoSchedules = errors.New("line defines no schedules")
	// ErrEmptyCalendar is returned when the calendar has no years
	ErrEmptyCalendar = errors.New("calendar has no years")
	// ErrDuplicateLine is returned when two lines share an id
	ErrDuplicateLine = errors.New("duplicate line id")
)

// LineError attributes a failure to a line and, when known, to a slot
type LineError struct {
	LineID  string
	Season  models.Season
	DayType models.DayType
	Err     error
}

func (e *LineError) Error() string {
	if e.Season == "" {
		return fmt.Sprintf("line %s: %v", e.LineID, e.Err)
	}
	return fmt.Sprintf("line %s %s/%s: %v", e.LineID, e.Season, e.DayType, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
