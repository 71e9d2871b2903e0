package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/mongoetl/internal/core"
)

type dialect struct {
	driver        string
	timestampType string
	numbered      bool // $1, $2 placeholders instead of ?
}

var (
	sqliteDialect   = dialect{driver: "sqlite", timestampType: "TIMESTAMP"}
	postgresDialect = dialect{driver: "pgx", timestampType: "TIMESTAMPTZ", numbered: true}
)

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store is a SQL-backed run recorder.
type Store struct {
	db *sql.DB
	d  dialect
}

func (s *Store) migrate(ctx context.Context) error {
	ts := s.d.timestampType
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS etl_runs (
			id            TEXT PRIMARY KEY,
			dataset       TEXT NOT NULL,
			run_trigger   TEXT NOT NULL,
			status        TEXT NOT NULL,
			started_at    ` + ts + ` NOT NULL,
			finished_at   ` + ts + `,
			error_message TEXT NOT NULL DEFAULT '',
			error_code    TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS etl_runs_started_at_idx ON etl_runs (started_at)`,
		`CREATE TABLE IF NOT EXISTS etl_run_steps (
			run_id        TEXT NOT NULL REFERENCES etl_runs(id) ON DELETE CASCADE,
			seq           INTEGER NOT NULL,
			step          TEXT NOT NULL,
			status        TEXT NOT NULL,
			attempts      INTEGER NOT NULL,
			started_at    ` + ts + ` NOT NULL,
			finished_at   ` + ts + ` NOT NULL,
			message       TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			error_code    TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, seq)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate history schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun inserts a new run.
func (s *Store) StartRun(ctx context.Context, run core.Run) error {
	_, err := s.db.ExecContext(ctx, s.d.rebind(
		`INSERT INTO etl_runs (id, dataset, run_trigger, status, started_at) VALUES (?, ?, ?, ?, ?)`),
		run.ID, run.Dataset, string(run.Trigger), string(run.Status), run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordStep appends a step result to a run.
func (s *Store) RecordStep(ctx context.Context, runID string, step core.StepResult) error {
	_, err := s.db.ExecContext(ctx, s.d.rebind(
		`INSERT INTO etl_run_steps
			(run_id, seq, step, status, attempts, started_at, finished_at, message, error_message, error_code)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM etl_run_steps WHERE run_id = ?), ?, ?, ?, ?, ?, ?, ?, ?)`),
		runID, runID, string(step.Step), string(step.Status), step.Attempts,
		step.StartedAt.UTC(), step.FinishedAt.UTC(), step.Message, step.Error, step.ErrorCode,
	)
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}
	return nil
}

// FinishRun stores the final status of a run.
func (s *Store) FinishRun(ctx context.Context, run core.Run) error {
	var finished sql.NullTime
	if run.FinishedAt != nil {
		finished = sql.NullTime{Time: run.FinishedAt.UTC(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.d.rebind(
		`UPDATE etl_runs SET status = ?, finished_at = ?, error_message = ?, error_code = ? WHERE id = ?`),
		string(run.Status), finished, run.Error, run.ErrorCode, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first, with their steps.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]core.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, s.d.rebind(
		`SELECT id, dataset, run_trigger, status, started_at, finished_at, error_message, error_code
		FROM etl_runs ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	for i := range runs {
		steps, err := s.steps(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Steps = steps
	}
	return runs, nil
}

// GetRun returns one run with its steps, or core.ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (core.Run, error) {
	row := s.db.QueryRowContext(ctx, s.d.rebind(
		`SELECT id, dataset, run_trigger, status, started_at, finished_at, error_message, error_code
		FROM etl_runs WHERE id = ?`), id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Run{}, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return core.Run{}, err
	}

	run.Steps, err = s.steps(ctx, id)
	if err != nil {
		return core.Run{}, err
	}
	return run, nil
}

func (s *Store) steps(ctx context.Context, runID string) ([]core.StepResult, error) {
	rows, err := s.db.QueryContext(ctx, s.d.rebind(
		`SELECT step, status, attempts, started_at, finished_at, message, error_message, error_code
		FROM etl_run_steps WHERE run_id = ? ORDER BY seq`), runID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	steps := []core.StepResult{}
	for rows.Next() {
		var (
			st                core.StepResult
			step, status      string
			started, finished time.Time
		)
		if err := rows.Scan(&step, &status, &st.Attempts, &started, &finished, &st.Message, &st.Error, &st.ErrorCode); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		st.Step = core.StepID(step)
		st.Status = core.StepStatus(status)
		st.StartedAt = started.UTC()
		st.FinishedAt = finished.UTC()
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	return steps, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (core.Run, error) {
	var (
		run             core.Run
		trigger, status string
		started         time.Time
		finished        sql.NullTime
	)
	if err := r.Scan(&run.ID, &run.Dataset, &trigger, &status, &started, &finished, &run.Error, &run.ErrorCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Run{}, err
		}
		return core.Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Trigger = core.Trigger(trigger)
	run.Status = core.RunStatus(status)
	run.StartedAt = started.UTC()
	if finished.Valid {
		t := finished.Time.UTC()
		run.FinishedAt = &t
	}
	return run, nil
}
