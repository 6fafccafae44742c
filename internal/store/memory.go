package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/passbi/passbi_fleet/internal/models"
)

// InMemoryRepository keeps everything in process memory. Values are deep
// copied on the way in and out so callers never share state with it.
type InMemoryRepository struct {
	mu       sync.RWMutex
	lines    map[string]models.BusLineData
	params   *models.GlobalParams
	calendar models.CalendarData
	runs     []Run
}

// NewInMemoryRepository creates an empty in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		lines: make(map[string]models.BusLineData),
	}
}

func (r *InMemoryRepository) ListLines(_ context.Context) ([]models.BusLineData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]models.BusLineData, 0, len(r.lines))
	for _, line := range r.lines {
		lines = append(lines, copyLine(line))
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

func (r *InMemoryRepository) GetLine(_ context.Context, id string) (*models.BusLineData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	line, ok := r.lines[id]
	if !ok {
		return nil, fmt.Errorf("line %s: %w", id, ErrNotFound)
	}
	cp := copyLine(line)
	return &cp, nil
}

func (r *InMemoryRepository) UpsertLine(_ context.Context, line models.BusLineData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines[line.ID] = copyLine(line)
	return nil
}

func (r *InMemoryRepository) DeleteLine(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lines[id]; !ok {
		return fmt.Errorf("line %s: %w", id, ErrNotFound)
	}
	delete(r.lines, id)
	return nil
}

func (r *InMemoryRepository) ReplaceLines(_ context.Context, lines []models.BusLineData) error {
	replaced := make(map[string]models.BusLineData, len(lines))
	for _, line := range lines {
		replaced[line.ID] = copyLine(line)
	}

	r.mu.Lock()
	r.lines = replaced
	r.mu.Unlock()
	return nil
}

func (r *InMemoryRepository) GetParams(_ context.Context) (*models.GlobalParams, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.params == nil {
		return nil, fmt.Errorf("params: %w", ErrNotFound)
	}
	p := *r.params
	return &p, nil
}

func (r *InMemoryRepository) SaveParams(_ context.Context, params models.GlobalParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.params = &params
	return nil
}

func (r *InMemoryRepository) GetCalendar(_ context.Context) (models.CalendarData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.calendar == nil {
		return nil, fmt.Errorf("calendar: %w", ErrNotFound)
	}
	return copyCalendar(r.calendar), nil
}

func (r *InMemoryRepository) SaveCalendar(_ context.Context, calendar models.CalendarData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calendar = copyCalendar(calendar)
	return nil
}

func (r *InMemoryRepository) ReplaceInputs(_ context.Context, params models.GlobalParams, calendar models.CalendarData, lines []models.BusLineData) error {
	replaced := make(map[string]models.BusLineData, len(lines))
	for _, line := range lines {
		replaced[line.ID] = copyLine(line)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.params = &params
	r.calendar = copyCalendar(calendar)
	r.lines = replaced
	return nil
}

func (r *InMemoryRepository) SaveRun(_ context.Context, run Run) error {
	data, err := copyData(run.Data)
	if err != nil {
		return err
	}
	run.Data = data

	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = append(r.runs, run)
	return nil
}

func (r *InMemoryRepository) LatestRun(_ context.Context) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.runs) == 0 {
		return nil, fmt.Errorf("run: %w", ErrNotFound)
	}
	latest := r.runs[len(r.runs)-1]
	data, err := copyData(latest.Data)
	if err != nil {
		return nil, err
	}
	latest.Data = data
	return &latest, nil
}

// copyLine deep copies the schedule pointers of a line
func copyLine(l models.BusLineData) models.BusLineData {
	out := l
	out.Schedules = models.Slots[*models.Schedule]{}
	l.Schedules.Each(func(season models.Season, dt models.DayType, s *models.Schedule) {
		if s == nil {
			return
		}
		cp := *s
		cp.PeakPeriods = append([]models.PeakPeriod(nil), s.PeakPeriods...)
		out.Schedules.Set(season, dt, &cp)
	})
	return out
}

func copyCalendar(c models.CalendarData) models.CalendarData {
	out := make(models.CalendarData, len(c))
	for year, days := range c {
		out[year] = days
	}
	return out
}

// copyData deep copies a result through a JSON round trip
func copyData(d *models.CalculatedData) (*models.CalculatedData, error) {
	if d == nil {
		return nil, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to copy run data: %w", err)
	}
	var out models.CalculatedData
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to copy run data: %w", err)
	}
	return &out, nil
}
