package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/passbi/passbi_fleet/internal/models"
)

// Repository errors
var (
	ErrNotFound = errors.New("not found")
)

// Run is a persisted successful calculation
type Run struct {
	ID         uuid.UUID              `json:"run_id"`
	ComputedAt time.Time              `json:"computed_at"`
	Data       *models.CalculatedData `json:"data"`
}

// Repository persists the planning inputs and calculation runs
type Repository interface {
	// ListLines returns every line ordered by id
	ListLines(ctx context.Context) ([]models.BusLineData, error)
	GetLine(ctx context.Context, id string) (*models.BusLineData, error)
	UpsertLine(ctx context.Context, line models.BusLineData) error
	DeleteLine(ctx context.Context, id string) error
	// ReplaceLines swaps the whole line set atomically
	ReplaceLines(ctx context.Context, lines []models.BusLineData) error

	GetParams(ctx context.Context) (*models.GlobalParams, error)
	SaveParams(ctx context.Context, params models.GlobalParams) error

	GetCalendar(ctx context.Context) (models.CalendarData, error)
	SaveCalendar(ctx context.Context, calendar models.CalendarData) error

	// ReplaceInputs stores params, calendar and lines together: either all
	// of them are written or none is
	ReplaceInputs(ctx context.Context, params models.GlobalParams, calendar models.CalendarData, lines []models.BusLineData) error

	SaveRun(ctx context.Context, run Run) error
	LatestRun(ctx context.Context) (*Run, error)
}

var (
	_ Repository = (*InMemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)
