package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Season represents a timetable season
type Season string

const (
	SeasonHiver   Season = "Hiver"
	SeasonEte     Season = "Ete"
	SeasonRamadan Season = "Ramadan"
)

// DayType represents a class of calendar days sharing a timetable
type DayType string

const (
	DayLaV DayType = "LaV" // weekday
	DayS   DayType = "S"   // Saturday
	DayDF  DayType = "DF"  // Sunday / public holiday
)

// Seasons returns all seasons in canonical order
func Seasons() []Season {
	return []Season{SeasonHiver, SeasonEte, SeasonRamadan}
}

// DayTypes returns all day types in canonical order
func DayTypes() []DayType {
	return []DayType{DayLaV, DayS, DayDF}
}

// ParseSeason maps a query value to a Season (case-insensitive)
func ParseSeason(s string) (Season, error) {
	for _, season := range Seasons() {
		if strings.EqualFold(string(season), s) {
			return season, nil
		}
	}
	return "", fmt.Errorf("unknown season: %q", s)
}

// ParseDayType maps a query value to a DayType (case-insensitive)
func ParseDayType(s string) (DayType, error) {
	for _, dt := range DayTypes() {
		if strings.EqualFold(string(dt), s) {
			return dt, nil
		}
	}
	return "", fmt.Errorf("unknown day type: %q", s)
}

// DaySlots holds one value per day type
type DaySlots[T any] struct {
	LaV T `json:"LaV"`
	S   T `json:"S"`
	DF  T `json:"DF"`
}

// Slots is the fixed 9-slot (season x day type) record
type Slots[T any] struct {
	Hiver   DaySlots[T] `json:"Hiver"`
	Ete     DaySlots[T] `json:"Ete"`
	Ramadan DaySlots[T] `json:"Ramadan"`
}

func (s *Slots[T]) season(season Season) *DaySlots[T] {
	switch season {
	case SeasonHiver:
		return &s.Hiver
	case SeasonEte:
		return &s.Ete
	case SeasonRamadan:
		return &s.Ramadan
	}
	return nil
}

func (d *DaySlots[T]) day(dt DayType) *T {
	switch dt {
	case DayLaV:
		return &d.LaV
	case DayS:
		return &d.S
	case DayDF:
		return &d.DF
	}
	return nil
}

// Get returns the value stored for (season, dayType), or the zero value
// for an unknown key
func (s Slots[T]) Get(season Season, dt DayType) T {
	var zero T
	ds := s.season(season)
	if ds == nil {
		return zero
	}
	v := ds.day(dt)
	if v == nil {
		return zero
	}
	return *v
}

// Set stores v for (season, dayType). Unknown keys are ignored.
func (s *Slots[T]) Set(season Season, dt DayType, v T) {
	ds := s.season(season)
	if ds == nil {
		return
	}
	if p := ds.day(dt); p != nil {
		*p = v
	}
}

// Each calls fn for all 9 slots in canonical order
func (s Slots[T]) Each(fn func(season Season, dt DayType, v T)) {
	for _, season := range Seasons() {
		for _, dt := range DayTypes() {
			fn(season, dt, s.Get(season, dt))
		}
	}
}

// GlobalParams holds the network-wide operating policy
type GlobalParams struct {
	TTD                 float64 `json:"ttd"`                 // turnaround time (min)
	VHLP                float64 `json:"v_hlp"`               // deadhead speed (km/h)
	VTech               float64 `json:"v_tech"`              // technical run speed (km/h)
	VCommercial         float64 `json:"v_commercial"`        // commercial speed (km/h)
	RFMDS               float64 `json:"r_fmds"`              // maintenance loss ratio
	RACC                float64 `json:"r_acc"`               // accident loss ratio
	Alpha               float64 `json:"alpha"`               // paid hours multiplier
	Beta                float64 `json:"beta"`                // driver reserve ratio
	Gamma               float64 `json:"gamma"`               // vehicle reserve ratio
	HPoste              float64 `json:"h_poste"`             // shift length (h)
	C                   float64 `json:"c"`                   // bus capacity (passengers)
	TotalBusesAvailable float64 `json:"totalBusesAvailable"` // available fleet
	AlphaDuty           float64 `json:"alpha_duty"`          // duty inefficiency factor
	W                   float64 `json:"w"`                   // weekly rest factor
}

// ParamKeys lists every GlobalParams key; all of them are required
var ParamKeys = []string{
	"ttd", "v_hlp", "v_tech", "v_commercial", "r_fmds", "r_acc", "alpha",
	"beta", "gamma", "h_poste", "c", "totalBusesAvailable", "alpha_duty", "w",
}

// UnmarshalJSON decodes params and rejects documents missing any key
func (p *GlobalParams) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var missing []string
	for _, key := range ParamKeys {
		if v, ok := raw[key]; !ok || string(v) == "null" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &MissingParamsError{Keys: missing}
	}

	type plain GlobalParams
	var out plain
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*p = GlobalParams(out)
	return nil
}

// Validate checks parameter ranges
func (p GlobalParams) Validate() error {
	positive := map[string]float64{
		"v_hlp":        p.VHLP,
		"v_tech":       p.VTech,
		"v_commercial": p.VCommercial,
		"alpha":        p.Alpha,
		"h_poste":      p.HPoste,
		"c":            p.C,
		"alpha_duty":   p.AlphaDuty,
		"w":            p.W,
	}
	nonNegative := map[string]float64{
		"ttd":                 p.TTD,
		"r_fmds":              p.RFMDS,
		"r_acc":               p.RACC,
		"beta":                p.Beta,
		"gamma":               p.Gamma,
		"totalBusesAvailable": p.TotalBusesAvailable,
	}

	var problems []string
	for _, key := range ParamKeys {
		if v, ok := positive[key]; ok && (math.IsNaN(v) || v <= 0) {
			problems = append(problems, fmt.Sprintf("%s must be > 0 (got %v)", key, v))
		}
		if v, ok := nonNegative[key]; ok && (math.IsNaN(v) || v < 0) {
			problems = append(problems, fmt.Sprintf("%s must be >= 0 (got %v)", key, v))
		}
	}
	if len(problems) > 0 {
		return &InvalidParamsError{Problems: problems}
	}
	return nil
}

// PeakPeriod is a peak interval in decimal hours
type PeakPeriod struct {
	StartH float64 `json:"start_h"`
	EndH   float64 `json:"end_h"`
}

// Schedule is the timetable of one line for one season and day type
type Schedule struct {
	ServiceStartH       float64      `json:"service_start_h"`
	ServiceEndH         float64      `json:"service_end_h"`
	TimeAllerMin        float64      `json:"time_aller_min"`
	TimeRetourMin       float64      `json:"time_retour_min"`
	PeakPeriods         []PeakPeriod `json:"peak_periods"`
	FrequencyPeakMin    float64      `json:"frequency_peak_min"`
	FrequencyOffpeakMin float64      `json:"frequency_offpeak_min"`
}

// Validate enforces the schedule invariants
func (s Schedule) Validate() error {
	if !(s.FrequencyPeakMin > 0) {
		return &InvalidScheduleError{Reason: fmt.Sprintf("frequency_peak_min must be > 0 (got %v)", s.FrequencyPeakMin)}
	}
	if !(s.FrequencyOffpeakMin > 0) {
		return &InvalidScheduleError{Reason: fmt.Sprintf("frequency_offpeak_min must be > 0 (got %v)", s.FrequencyOffpeakMin)}
	}
	if !finite(s.ServiceStartH) || !finite(s.ServiceEndH) || !(s.ServiceEndH > s.ServiceStartH) {
		return &InvalidScheduleError{Reason: fmt.Sprintf("empty service window %v-%v", s.ServiceStartH, s.ServiceEndH)}
	}
	if !finiteNonNegative(s.TimeAllerMin) || !finiteNonNegative(s.TimeRetourMin) {
		return &InvalidScheduleError{Reason: fmt.Sprintf("travel times must be finite and >= 0 (got %v/%v)", s.TimeAllerMin, s.TimeRetourMin)}
	}

	peaks := make([]PeakPeriod, len(s.PeakPeriods))
	copy(peaks, s.PeakPeriods)
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].StartH < peaks[j].StartH })

	for i, p := range peaks {
		if !(p.EndH > p.StartH) {
			return &InvalidScheduleError{Reason: fmt.Sprintf("empty peak period %v-%v", p.StartH, p.EndH)}
		}
		if p.StartH < s.ServiceStartH || p.EndH > s.ServiceEndH {
			return &InvalidScheduleError{Reason: fmt.Sprintf("peak period %v-%v outside service window", p.StartH, p.EndH)}
		}
		if i > 0 && p.StartH < peaks[i-1].EndH {
			return &InvalidScheduleError{Reason: fmt.Sprintf("peak period %v-%v overlaps %v-%v", p.StartH, p.EndH, peaks[i-1].StartH, peaks[i-1].EndH)}
		}
	}
	return nil
}

// BusLineData is the immutable definition of a bus line
type BusLineData struct {
	ID                     string           `json:"id"`
	Name                   string           `json:"name"`
	Category               string           `json:"category"`
	Origin                 string           `json:"origin"`
	Destination            string           `json:"destination"`
	LengthKm               float64          `json:"length_km"`
	BusLengthM             float64          `json:"bus_length_m"`
	DistOriginDepotKm      float64          `json:"dist_origin_depot_km"`
	DistDestinationDepotKm float64          `json:"dist_destination_depot_km"`
	Schedules              Slots[*Schedule] `json:"schedules"`
}

// Validate checks the line geometry; schedules are validated on their own
func (l BusLineData) Validate() error {
	checks := []struct {
		field string
		value float64
	}{
		{"length_km", l.LengthKm},
		{"bus_length_m", l.BusLengthM},
		{"dist_origin_depot_km", l.DistOriginDepotKm},
		{"dist_destination_depot_km", l.DistDestinationDepotKm},
	}
	for _, c := range checks {
		if !finiteNonNegative(c.value) {
			return fmt.Errorf("%w %s: %s must be finite and >= 0 (got %v)", ErrInvalidLine, l.ID, c.field, c.value)
		}
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func finiteNonNegative(x float64) bool {
	return finite(x) && x >= 0
}

// ScheduleCount returns how many of the 9 slots carry a schedule
func (l BusLineData) ScheduleCount() int {
	n := 0
	l.Schedules.Each(func(_ Season, _ DayType, s *Schedule) {
		if s != nil {
			n++
		}
	})
	return n
}

// CalendarYear holds the number of days of each (season, day type) in a year
type CalendarYear = Slots[int]

// CalendarData maps a year to its day counts
type CalendarData map[int]CalendarYear

// Years returns the calendar years in ascending order
func (c CalendarData) Years() []int {
	years := make([]int, 0, len(c))
	for y := range c {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Totals sums the day counts of every slot over all years
func (c CalendarData) Totals() CalendarYear {
	var totals CalendarYear
	for _, year := range c {
		year.Each(func(season Season, dt DayType, n int) {
			totals.Set(season, dt, totals.Get(season, dt)+n)
		})
	}
	return totals
}

// Validate rejects negative day counts
func (c CalendarData) Validate() error {
	for _, year := range c.Years() {
		var err error
		c[year].Each(func(season Season, dt DayType, n int) {
			if n < 0 && err == nil {
				err = fmt.Errorf("%w: %d %s/%s: negative day count %d", ErrInvalidCalendar, year, season, dt, n)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}
