package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/passbi/passbi_fleet/internal/models"
)

// PostgresRepository is a PostgreSQL implementation of Repository. Lines,
// params and run results are stored as JSONB documents; calendar day counts
// get one row per (year, season, day type).
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository on top of a migrated pool
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) ListLines(ctx context.Context) ([]models.BusLineData, error) {
	rows, err := r.pool.Query(ctx, `SELECT data FROM bus_line ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	var lines []models.BusLineData
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		var line models.BusLineData
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("failed to decode line: %w", err)
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

func (r *PostgresRepository) GetLine(ctx context.Context, id string) (*models.BusLineData, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM bus_line WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("line %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	var line models.BusLineData
	if err := json.Unmarshal(raw, &line); err != nil {
		return nil, fmt.Errorf("failed to decode line %s: %w", id, err)
	}
	return &line, nil
}

func (r *PostgresRepository) UpsertLine(ctx context.Context, line models.BusLineData) error {
	return upsertLine(ctx, r.pool, line)
}

func (r *PostgresRepository) DeleteLine(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bus_line WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete line %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("line %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) ReplaceLines(ctx context.Context, lines []models.BusLineData) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return replaceLines(ctx, tx, lines)
	})
}

// ReplaceInputs stores params, calendar and lines in one transaction
func (r *PostgresRepository) ReplaceInputs(ctx context.Context, params models.GlobalParams, calendar models.CalendarData, lines []models.BusLineData) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := saveParams(ctx, tx, params); err != nil {
			return err
		}
		if err := saveCalendar(ctx, tx, calendar); err != nil {
			return err
		}
		return replaceLines(ctx, tx, lines)
	})
}

func replaceLines(ctx context.Context, tx pgx.Tx, lines []models.BusLineData) error {
	if _, err := tx.Exec(ctx, `DELETE FROM bus_line`); err != nil {
		return fmt.Errorf("failed to clear lines: %w", err)
	}
	for _, line := range lines {
		if err := upsertLine(ctx, tx, line); err != nil {
			return err
		}
	}
	return nil
}

// execer is satisfied by both the pool and a transaction
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertLine(ctx context.Context, db execer, line models.BusLineData) error {
	raw, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("failed to encode line %s: %w", line.ID, err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO bus_line (id, name, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, data = EXCLUDED.data, updated_at = now()
	`, line.ID, line.Name, raw)
	if err != nil {
		return fmt.Errorf("failed to store line %s: %w", line.ID, err)
	}
	return nil
}

func (r *PostgresRepository) GetParams(ctx context.Context) (*models.GlobalParams, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM planning_params WHERE id = 1`).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("params: %w", ErrNotFound)
		}
		return nil, err
	}

	var params models.GlobalParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	return &params, nil
}

func (r *PostgresRepository) SaveParams(ctx context.Context, params models.GlobalParams) error {
	return saveParams(ctx, r.pool, params)
}

func saveParams(ctx context.Context, db execer, params models.GlobalParams) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO planning_params (id, data, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, raw)
	if err != nil {
		return fmt.Errorf("failed to store params: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetCalendar(ctx context.Context) (models.CalendarData, error) {
	rows, err := r.pool.Query(ctx, `SELECT year, season, day_type, days FROM calendar_day`)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}
	defer rows.Close()

	calendar := make(models.CalendarData)
	for rows.Next() {
		var (
			year    int
			season  string
			dayType string
			days    int
		)
		if err := rows.Scan(&year, &season, &dayType, &days); err != nil {
			return nil, fmt.Errorf("failed to scan calendar row: %w", err)
		}
		s, err := models.ParseSeason(season)
		if err != nil {
			return nil, err
		}
		dt, err := models.ParseDayType(dayType)
		if err != nil {
			return nil, err
		}

		counts := calendar[year]
		counts.Set(s, dt, days)
		calendar[year] = counts
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(calendar) == 0 {
		return nil, fmt.Errorf("calendar: %w", ErrNotFound)
	}
	return calendar, nil
}

func (r *PostgresRepository) SaveCalendar(ctx context.Context, calendar models.CalendarData) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return saveCalendar(ctx, tx, calendar)
	})
}

func saveCalendar(ctx context.Context, tx pgx.Tx, calendar models.CalendarData) error {
	if _, err := tx.Exec(ctx, `DELETE FROM calendar_day`); err != nil {
		return fmt.Errorf("failed to clear calendar: %w", err)
	}

	batch := &pgx.Batch{}
	for _, year := range calendar.Years() {
		calendar[year].Each(func(season models.Season, dt models.DayType, days int) {
			batch.Queue(`INSERT INTO calendar_day (year, season, day_type, days) VALUES ($1, $2, $3, $4)`,
				year, string(season), string(dt), days)
		})
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to store calendar: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SaveRun(ctx context.Context, run Run) error {
	if run.Data == nil {
		return fmt.Errorf("run %s has no data", run.ID)
	}
	raw, err := json.Marshal(run.Data)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO calculation_run (id, computed_at, line_count, total_fleet, result)
		VALUES ($1, $2, $3, $4, $5)
	`, run.ID, run.ComputedAt, len(run.Data.Lines), run.Data.NetworkTotals.TotalFleet, raw)
	if err != nil {
		return fmt.Errorf("failed to store run %s: %w", run.ID, err)
	}
	return nil
}

func (r *PostgresRepository) LatestRun(ctx context.Context) (*Run, error) {
	var (
		run Run
		raw []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, computed_at, result
		FROM calculation_run
		ORDER BY computed_at DESC
		LIMIT 1
	`).Scan(&run.ID, &run.ComputedAt, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("run: %w", ErrNotFound)
		}
		return nil, err
	}

	var data models.CalculatedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", run.ID, err)
	}
	run.Data = &data
	return &run, nil
}
