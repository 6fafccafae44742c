package lineimport

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/passbi/passbi_fleet/internal/models"
	"github.com/rs/zerolog"
)

// Defaults applied to fields a line document may omit
const (
	DefaultCommercialSpeedKmh = 18.0
	DefaultBusLengthM         = 12.0
	DefaultOriginDepotKm      = 5.0
	DefaultDestinationDepotKm = 10.0
	DefaultPeakHeadwayMin     = 15.0
	DefaultOffpeakHeadwayMin  = 30.0
	notAvailable              = "N/A"
)

// Options drives defaulting. CommercialSpeedKmh estimates missing travel
// times from the line length; zero falls back to DefaultCommercialSpeedKmh.
type Options struct {
	CommercialSpeedKmh float64
}

var seasonKeys = map[string]models.Season{
	"hiver":   models.SeasonHiver,
	"été":     models.SeasonEte,
	"ete":     models.SeasonEte,
	"ramadan": models.SeasonRamadan,
}

var dayKeys = map[string]models.DayType{
	"l-v": models.DayLaV,
	"lav": models.DayLaV,
	"s":   models.DayS,
	"df":  models.DayDF,
}

// ErrDuplicateSlot is returned when two keys of a document name the same
// season and day type, e.g. "L-V_Été" and "L-V_Ete"
var ErrDuplicateSlot = errors.New("duplicate schedule slot")

// ToBusLine maps a document onto a line definition, filling defaults
func ToBusLine(doc LineDocument, opts Options) (models.BusLineData, error) {
	if doc.ID == "" || doc.Nom == "" {
		return models.BusLineData{}, fmt.Errorf("line %q: id and nom are required", doc.ID)
	}

	speed := opts.CommercialSpeedKmh
	if speed <= 0 {
		speed = DefaultCommercialSpeedKmh
	}
	estimated := math.Round(doc.LongueurKm / speed * 60)

	aller := valueOr(doc.TempsAllerMin, estimated)
	retour := valueOr(doc.TempsRetourMin, aller)

	line := models.BusLineData{
		ID:                     doc.ID,
		Name:                   doc.Nom,
		Category:               stringOr(doc.Categorie, notAvailable),
		Origin:                 stringOr(doc.Origine, notAvailable),
		Destination:            stringOr(doc.Destination, notAvailable),
		LengthKm:               doc.LongueurKm,
		BusLengthM:             valueOr(doc.LongueurBusM, DefaultBusLengthM),
		DistOriginDepotKm:      valueOr(doc.DistOrigineDepotKm, DefaultOriginDepotKm),
		DistDestinationDepotKm: valueOr(doc.DistDestinationDepotKm, DefaultDestinationDepotKm),
	}

	keys := make([]string, 0, len(doc.HeuresOuverture))
	for key := range doc.HeuresOuverture {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	slotKeys := make(map[models.SlotKey]string, len(keys))
	for _, key := range keys {
		hours := doc.HeuresOuverture[key]
		season, dt, ok := parseSlotKey(key)
		if !ok {
			continue
		}
		headways, ok := doc.IntervallesMin[key]
		if !ok {
			continue
		}
		slot := models.SlotKey{Season: season, DayType: dt}
		if prev, dup := slotKeys[slot]; dup {
			return models.BusLineData{}, fmt.Errorf("line %s: %w: %q and %q", doc.ID, ErrDuplicateSlot, prev, key)
		}
		slotKeys[slot] = key

		start, err := ParseClock(hours.DebutService)
		if err != nil {
			return models.BusLineData{}, fmt.Errorf("line %s %s: %w", doc.ID, key, err)
		}
		end, err := ParseClock(hours.FinService)
		if err != nil {
			return models.BusLineData{}, fmt.Errorf("line %s %s: %w", doc.ID, key, err)
		}
		peaks, err := peakPeriods(doc.PeriodesPointe, season)
		if err != nil {
			return models.BusLineData{}, fmt.Errorf("line %s %s: %w", doc.ID, key, err)
		}

		line.Schedules.Set(season, dt, &models.Schedule{
			ServiceStartH:       start,
			ServiceEndH:         end,
			TimeAllerMin:        aller,
			TimeRetourMin:       retour,
			PeakPeriods:         peaks,
			FrequencyPeakMin:    positiveOr(headways.Pointe, DefaultPeakHeadwayMin),
			FrequencyOffpeakMin: positiveOr(headways.Vallee, DefaultOffpeakHeadwayMin),
		})
	}

	if line.ScheduleCount() == 0 {
		return models.BusLineData{}, fmt.Errorf("line %s: no usable schedule", doc.ID)
	}
	return line, nil
}

// ToBusLines converts documents, dropping malformed ones and duplicate
// ids. The number of dropped documents is returned alongside the lines.
func ToBusLines(docs []LineDocument, opts Options, log zerolog.Logger) ([]models.BusLineData, int) {
	lines := make([]models.BusLineData, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	dropped := 0

	for _, doc := range docs {
		line, err := ToBusLine(doc, opts)
		if err != nil {
			log.Warn().Err(err).Str("line_id", doc.ID).Msg("skipping line document")
			dropped++
			continue
		}
		if seen[line.ID] {
			log.Warn().Str("line_id", line.ID).Msg("skipping duplicate line id")
			dropped++
			continue
		}
		seen[line.ID] = true
		lines = append(lines, line)
	}

	if dropped > 0 {
		log.Info().Int("kept", len(lines)).Int("dropped", dropped).Msg("line documents normalized")
	}
	return lines, dropped
}

// ParseClock converts "HH:MM" (or "HH") to decimal hours. Hours past 24
// are allowed for after-midnight service.
func ParseClock(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time string")
	}

	h, m, _ := strings.Cut(s, ":")
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("invalid time format: %s", s)
	}
	minutes := 0
	if m != "" {
		minutes, err = strconv.Atoi(m)
		if err != nil || minutes < 0 || minutes >= 60 {
			return 0, fmt.Errorf("invalid time format: %s", s)
		}
	}
	return float64(hours) + float64(minutes)/60, nil
}

func parseSlotKey(key string) (models.Season, models.DayType, bool) {
	day, season, ok := strings.Cut(key, "_")
	if !ok {
		return "", "", false
	}
	dt, ok := dayKeys[strings.ToLower(strings.TrimSpace(day))]
	if !ok {
		return "", "", false
	}
	s, ok := seasonKeys[strings.ToLower(strings.TrimSpace(season))]
	if !ok {
		return "", "", false
	}
	return s, dt, true
}

func peakPeriods(windows map[string]PeakWindows, season models.Season) ([]models.PeakPeriod, error) {
	var (
		w     PeakWindows
		found string
	)
	for key, v := range windows {
		if s, ok := seasonKeys[strings.ToLower(strings.TrimSpace(key))]; ok && s == season {
			if found != "" {
				return nil, fmt.Errorf("%w: peak windows %q and %q", ErrDuplicateSlot, found, key)
			}
			w, found = v, key
		}
	}
	if found == "" {
		return nil, nil
	}

	var periods []models.PeakPeriod
	for _, span := range []string{w.Matin, w.Soir} {
		if span == "" {
			continue
		}
		from, to, ok := strings.Cut(span, "-")
		if !ok {
			return nil, fmt.Errorf("invalid peak window: %s", span)
		}
		start, err := ParseClock(from)
		if err != nil {
			return nil, err
		}
		end, err := ParseClock(to)
		if err != nil {
			return nil, err
		}
		periods = append(periods, models.PeakPeriod{StartH: start, EndH: end})
	}
	return periods, nil
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func positiveOr(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

func stringOr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
