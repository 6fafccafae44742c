package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/passbi/passbi_fleet/internal/cache"
	"github.com/passbi/passbi_fleet/internal/calc"
	"github.com/passbi/passbi_fleet/internal/metrics"
	"github.com/passbi/passbi_fleet/internal/models"
	"github.com/passbi/passbi_fleet/internal/store"
	"github.com/rs/zerolog"
)

var (
	// ErrNoResult is returned before the first successful calculation
	ErrNoResult = errors.New("no calculation result available")
	// ErrIncompleteInputs is returned when params or calendar are not stored yet
	ErrIncompleteInputs = errors.New("planning inputs incomplete")
)

// Snapshot is the last good calculation. Data is shared between readers
// and must be treated as read-only.
type Snapshot struct {
	RunID      uuid.UUID              `json:"run_id"`
	ComputedAt time.Time              `json:"computed_at"`
	Data       *models.CalculatedData `json:"data"`
}

// Input is a complete set of calculation inputs
type Input struct {
	Lines    []models.BusLineData `json:"lines"`
	Params   models.GlobalParams  `json:"params"`
	Calendar models.CalendarData  `json:"calendar"`
}

// ResultCache is the subset of cache.ResultCache the service relies on
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.CalculatedData, error)
	Set(ctx context.Context, key string, result *models.CalculatedData) error
	AcquireLock(ctx context.Context, key string) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
	WaitForResult(ctx context.Context, key string, maxWait time.Duration) (*models.CalculatedData, error)
}

// Option configures a Service
type Option func(*Service)

// WithCache enables result caching for ad-hoc calculations
func WithCache(c ResultCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics sets the calculation recorder
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithLockWait bounds how long a caller waits for an identical in-flight calculation
func WithLockWait(d time.Duration) Option {
	return func(s *Service) { s.lockWait = d }
}

// Service owns the stored planning inputs and the last good result. Every
// change to the inputs is calculated before it is persisted, so a rejected
// change leaves both the store and the current snapshot untouched.
type Service struct {
	repo       store.Repository
	calculator *calc.Calculator
	cache      ResultCache
	metrics    metrics.Recorder
	log        zerolog.Logger
	lockWait   time.Duration
	now        func() time.Time

	writeMu sync.Mutex // serializes input changes and recalculations

	mu      sync.RWMutex
	current *Snapshot
}

// New creates a Service
func New(repo store.Repository, calculator *calc.Calculator, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		calculator: calculator,
		metrics:    metrics.Nop{},
		log:        log,
		lockWait:   30 * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the latest persisted run as the current snapshot
func (s *Service) Restore(ctx context.Context) error {
	run, err := s.repo.LatestRun(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to restore last run: %w", err)
	}

	s.mu.Lock()
	s.current = &Snapshot{RunID: run.ID, ComputedAt: run.ComputedAt, Data: run.Data}
	s.mu.Unlock()

	s.log.Info().Str("run_id", run.ID.String()).Time("computed_at", run.ComputedAt).Msg("restored last calculation")
	return nil
}

// Current returns the last good snapshot
func (s *Service) Current() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, ErrNoResult
	}
	return s.current, nil
}

// Calculate runs an ad-hoc calculation without touching stored inputs.
// Identical concurrent requests are computed once when a cache is set;
// cache failures fall back to a direct calculation.
func (s *Service) Calculate(ctx context.Context, in Input) (*models.CalculatedData, error) {
	if s.cache == nil {
		return s.compute(in)
	}

	key, err := cache.InputKey(in.Lines, in.Params, in.Calendar, s.calculator.Options().Strict)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache key failed, computing directly")
		return s.compute(in)
	}

	if cached, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn().Err(err).Msg("cache read failed")
	} else if cached != nil {
		s.metrics.ObserveCalculation(metrics.ResultCached, 0, cached)
		return cached, nil
	}

	acquired, err := s.cache.AcquireLock(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache lock failed, computing directly")
		return s.compute(in)
	}

	if !acquired {
		result, err := s.cache.WaitForResult(ctx, key, s.lockWait)
		if err == nil && result != nil {
			s.metrics.ObserveCalculation(metrics.ResultCached, 0, result)
			return result, nil
		}
		if err != nil {
			s.log.Debug().Err(err).Msg("no result from concurrent calculation")
		}
		return s.compute(in)
	}

	defer func() {
		if err := s.cache.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
			s.log.Warn().Err(err).Msg("cache unlock failed")
		}
	}()

	result, err := s.compute(in)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, result); err != nil {
		s.log.Warn().Err(err).Msg("cache write failed")
	}
	return result, nil
}

// Recalculate computes the stored inputs and swaps the current snapshot
// on success. On failure the previous snapshot stays current.
func (s *Service) Recalculate(ctx context.Context) (*Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	in, err := s.loadInputs(ctx)
	if err != nil {
		return nil, err
	}
	if err := in.complete(); err != nil {
		return nil, err
	}

	data, err := s.compute(in.input())
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, data), nil
}

// UpdateParams replaces the global parameters
func (s *Service) UpdateParams(ctx context.Context, params models.GlobalParams) (*Snapshot, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.apply(ctx, func(in *storedInput) { in.params = &params }, func() error {
		return s.repo.SaveParams(ctx, params)
	})
}

// UpdateCalendar replaces the planning calendar
func (s *Service) UpdateCalendar(ctx context.Context, calendar models.CalendarData) (*Snapshot, error) {
	if err := calendar.Validate(); err != nil {
		return nil, err
	}
	if len(calendar) == 0 {
		return nil, calc.ErrEmptyCalendar
	}
	return s.apply(ctx, func(in *storedInput) { in.calendar = calendar }, func() error {
		return s.repo.SaveCalendar(ctx, calendar)
	})
}

// ReplaceLines swaps the whole line set
func (s *Service) ReplaceLines(ctx context.Context, lines []models.BusLineData) (*Snapshot, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}
	return s.apply(ctx, func(in *storedInput) { in.lines = lines }, func() error {
		return s.repo.ReplaceLines(ctx, lines)
	})
}

// UpsertLine creates or replaces one line
func (s *Service) UpsertLine(ctx context.Context, line models.BusLineData) (*Snapshot, error) {
	if err := validateLine(line); err != nil {
		return nil, err
	}
	return s.apply(ctx, func(in *storedInput) {
		lines := make([]models.BusLineData, 0, len(in.lines)+1)
		replaced := false
		for _, l := range in.lines {
			if l.ID == line.ID {
				l, replaced = line, true
			}
			lines = append(lines, l)
		}
		if !replaced {
			lines = append(lines, line)
		}
		in.lines = lines
	}, func() error {
		return s.repo.UpsertLine(ctx, line)
	})
}

// DeleteLine removes one line
func (s *Service) DeleteLine(ctx context.Context, id string) (*Snapshot, error) {
	if _, err := s.repo.GetLine(ctx, id); err != nil {
		return nil, err
	}
	return s.apply(ctx, func(in *storedInput) {
		lines := make([]models.BusLineData, 0, len(in.lines))
		for _, l := range in.lines {
			if l.ID != id {
				lines = append(lines, l)
			}
		}
		in.lines = lines
	}, func() error {
		return s.repo.DeleteLine(ctx, id)
	})
}

// ReplaceInputs swaps lines, params and calendar in one calculation
func (s *Service) ReplaceInputs(ctx context.Context, in Input) (*Snapshot, error) {
	if err := validateLines(in.Lines); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := s.compute(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceInputs(ctx, in.Params, in.Calendar, in.Lines); err != nil {
		return nil, err
	}
	return s.commit(ctx, data), nil
}

// Inputs returns the stored inputs. Params and calendar may be missing.
func (s *Service) Inputs(ctx context.Context) (lines []models.BusLineData, params *models.GlobalParams, calendar models.CalendarData, err error) {
	in, err := s.loadInputs(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return in.lines, in.params, in.calendar, nil
}

// apply calculates the inputs as modified by change and persists them with
// save only if that succeeds. With params or calendar still missing the
// change is stored without a calculation and a nil snapshot is returned.
func (s *Service) apply(ctx context.Context, change func(*storedInput), save func() error) (*Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	in, err := s.loadInputs(ctx)
	if err != nil {
		return nil, err
	}
	change(&in)

	if in.complete() != nil {
		if err := save(); err != nil {
			return nil, err
		}
		s.log.Info().Msg("inputs stored, calculation waits for params and calendar")
		return nil, nil
	}

	data, err := s.compute(in.input())
	if err != nil {
		return nil, err
	}
	if err := save(); err != nil {
		return nil, err
	}
	return s.commit(ctx, data), nil
}

func (s *Service) compute(in Input) (*models.CalculatedData, error) {
	start := s.now()
	data, err := s.calculator.Calculate(in.Lines, in.Params, in.Calendar)
	elapsed := s.now().Sub(start)

	if err != nil {
		s.metrics.ObserveCalculation(metrics.ResultFailure, elapsed, nil)
		s.log.Warn().Err(err).Int("lines", len(in.Lines)).Msg("calculation rejected")
		return nil, err
	}

	s.metrics.ObserveCalculation(metrics.ResultSuccess, elapsed, data)
	s.log.Info().
		Int("lines", len(data.Lines)).
		Int("total_fleet", data.NetworkTotals.TotalFleet).
		Dur("elapsed", elapsed).
		Msg("calculation completed")
	return data, nil
}

func (s *Service) commit(ctx context.Context, data *models.CalculatedData) *Snapshot {
	snap := &Snapshot{RunID: uuid.New(), ComputedAt: s.now().UTC(), Data: data}

	if err := s.repo.SaveRun(ctx, store.Run{ID: snap.RunID, ComputedAt: snap.ComputedAt, Data: data}); err != nil {
		s.log.Error().Err(err).Str("run_id", snap.RunID.String()).Msg("failed to persist run")
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
	return snap
}

type storedInput struct {
	lines    []models.BusLineData
	params   *models.GlobalParams
	calendar models.CalendarData
}

func (in storedInput) complete() error {
	switch {
	case in.params == nil:
		return fmt.Errorf("%w: params not set", ErrIncompleteInputs)
	case len(in.calendar) == 0:
		return fmt.Errorf("%w: calendar not set", ErrIncompleteInputs)
	}
	return nil
}

func (in storedInput) input() Input {
	return Input{Lines: in.lines, Params: *in.params, Calendar: in.calendar}
}

func (s *Service) loadInputs(ctx context.Context) (storedInput, error) {
	var in storedInput

	lines, err := s.repo.ListLines(ctx)
	if err != nil {
		return in, fmt.Errorf("failed to load lines: %w", err)
	}
	in.lines = lines

	params, err := s.repo.GetParams(ctx)
	switch {
	case err == nil:
		in.params = params
	case !errors.Is(err, store.ErrNotFound):
		return in, fmt.Errorf("failed to load params: %w", err)
	}

	calendar, err := s.repo.GetCalendar(ctx)
	switch {
	case err == nil:
		in.calendar = calendar
	case !errors.Is(err, store.ErrNotFound):
		return in, fmt.Errorf("failed to load calendar: %w", err)
	}

	return in, nil
}

func validateLines(lines []models.BusLineData) error {
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		if seen[line.ID] {
			return fmt.Errorf("%w: %s", calc.ErrDuplicateLine, line.ID)
		}
		seen[line.ID] = true
		if err := validateLine(line); err != nil {
			return err
		}
	}
	return nil
}

// validateLine checks what can be checked without params
func validateLine(line models.BusLineData) error {
	if line.ID == "" {
		return &calc.LineError{Err: errors.New("line id is required")}
	}
	if err := line.Validate(); err != nil {
		return &calc.LineError{LineID: line.ID, Err: err}
	}
	if line.ScheduleCount() == 0 {
		return &calc.LineError{LineID: line.ID, Err: calc.ErrNoSchedules}
	}

	var first error
	line.Schedules.Each(func(season models.Season, dt models.DayType, sched *models.Schedule) {
		if sched == nil || first != nil {
			return
		}
		if err := sched.Validate(); err != nil {
			first = &calc.LineError{LineID: line.ID, Season: season, DayType: dt, Err: err}
		}
	})
	return first
}
