// Package postgres keeps run discovery and render history in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/couchcryptid/storm-data-grid/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS grid_runs (
	model         TEXT        NOT NULL,
	run_date      DATE        NOT NULL,
	cycle         SMALLINT    NOT NULL,
	discovered_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (model, run_date, cycle)
);

CREATE TABLE IF NOT EXISTS grid_renders (
	id            SERIAL PRIMARY KEY,
	model         TEXT        NOT NULL,
	run_date      DATE        NOT NULL,
	cycle         SMALLINT    NOT NULL,
	variable      TEXT        NOT NULL,
	forecast_hour INTEGER     NOT NULL,
	outcome       TEXT        NOT NULL,
	error         TEXT        NOT NULL DEFAULT '',
	duration_ms   BIGINT      NOT NULL,
	rendered_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS grid_renders_model_rendered_at ON grid_renders (model, rendered_at DESC);
`

// defaultListLimit caps ListRuns when the caller passes no limit.
const defaultListLimit = 50

// Store implements pipeline.RunRecorder on a PostgreSQL database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(db, logger), nil
}

// New wraps an open database handle.
func New(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// EnsureSchema creates the history tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// RecordRun stores a discovered run. Seeing the same run again is a no-op.
func (s *Store) RecordRun(ctx context.Context, e domain.RunDiscovered) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO grid_runs (model, run_date, cycle, discovered_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (model, run_date, cycle) DO NOTHING`,
		e.Model, e.RunDate, e.Cycle, e.DiscoveredAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s %s %02dZ: %w", e.Model, e.RunDate, e.Cycle, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Debug("run recorded", "model", e.Model, "run_date", e.RunDate, "cycle", e.Cycle)
	}
	return nil
}

// RecordRender appends one render outcome.
func (s *Store) RecordRender(ctx context.Context, e domain.RenderCompleted) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO grid_renders (
			model, run_date, cycle, variable, forecast_hour,
			outcome, error, duration_ms, rendered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.Model, e.RunDate, e.Cycle, e.Variable, e.ForecastHour,
		e.Outcome, e.Error, e.DurationMS, e.RenderedAt,
	)
	if err != nil {
		return fmt.Errorf("insert render %s %s: %w", e.Model, e.Variable, err)
	}
	return nil
}

// ListRuns returns recorded runs, newest first. An empty model lists all models.
func (s *Store) ListRuns(ctx context.Context, model string, limit int) ([]domain.RunDiscovered, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT model, run_date, cycle, discovered_at
		FROM grid_runs
		WHERE $1 = '' OR model = $1
		ORDER BY run_date DESC, cycle DESC, model
		LIMIT $2`,
		model, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.RunDiscovered, 0, limit)
	for rows.Next() {
		var (
			r       domain.RunDiscovered
			runDate time.Time
		)
		if err := rows.Scan(&r.Model, &runDate, &r.Cycle, &r.DiscoveredAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.RunDate = runDate.Format("2006-01-02")
		r.DiscoveredAt = r.DiscoveredAt.UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("database not configured")
	}
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
