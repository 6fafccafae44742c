package calc

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/passbi/passbi_fleet/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options tunes a Calculator
type Options struct {
	// Workers bounds per-line parallelism. Zero means GOMAXPROCS.
	Workers int
	// Strict turns schedule/calendar coverage gaps into MissingDataErrors
	Strict bool
}

// Calculator runs the full pipeline over a network
type Calculator struct {
	opts Options
	log  zerolog.Logger
}

// New creates a Calculator
func New(opts Options, log zerolog.Logger) *Calculator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Calculator{opts: opts, log: log}
}

// Options returns the effective options
func (c *Calculator) Options() Options {
	return c.opts
}

// Calculate computes every line and the network totals. Any failing line
// fails the whole calculation; the returned error joins every line error
// so callers can report them all. Inputs are never modified.
func (c *Calculator) Calculate(lines []models.BusLineData, params models.GlobalParams, calendar models.CalendarData) (*models.CalculatedData, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := calendar.Validate(); err != nil {
		return nil, err
	}
	if len(calendar) == 0 {
		return nil, ErrEmptyCalendar
	}

	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		if seen[line.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLine, line.ID)
		}
		seen[line.ID] = true
	}

	results := make([]models.CalculatedLineData, len(lines))
	errs := make([]error, len(lines))

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for i := range lines {
		i := i
		g.Go(func() error {
			results[i], errs[i] = c.CalculateLine(lines[i], params, calendar)
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &models.CalculatedData{
		Lines:         results,
		NetworkTotals: AggregateNetwork(results, params, calendar),
	}, nil
}

// CalculateLine computes the daily metrics and calendar projection of one line
func (c *Calculator) CalculateLine(line models.BusLineData, params models.GlobalParams, calendar models.CalendarData) (models.CalculatedLineData, error) {
	daily, err := ComputeLineDaily(line, params)
	if err != nil {
		var le *LineError
		if errors.As(err, &le) {
			c.log.Warn().
				Str("line_id", le.LineID).
				Str("season", string(le.Season)).
				Str("day_type", string(le.DayType)).
				Err(le.Err).
				Msg("line calculation failed")
		}
		return models.CalculatedLineData{}, err
	}

	if c.opts.Strict {
		if gaps := checkCoverage(line, calendar); len(gaps) > 0 {
			c.log.Warn().Str("line_id", line.ID).Int("gaps", len(gaps)).Msg("calendar coverage gaps")
			return models.CalculatedLineData{}, &LineError{LineID: line.ID, Err: errors.Join(gaps...)}
		}
	}

	forecast, err := AggregateLine(daily, calendar, line)
	if err != nil {
		return models.CalculatedLineData{}, err
	}

	return models.CalculatedLineData{
		BusLineData:    line,
		Capacity:       params.C,
		DepotProche:    nearestDepot(line),
		Daily:          daily,
		AnnualForecast: forecast.AnnualForecast,
		TenYearAvg:     forecast.TenYearAvg,
	}, nil
}
