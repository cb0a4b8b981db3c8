package observer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dcshock/autodpp/pipeline"
	_ "github.com/mattn/go-sqlite3"
)

// Summarizer is implemented by stage payloads that can describe themselves in
// one line for the ledger.
type Summarizer interface {
	Summary() string
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS training_run (
	run_id      TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	payload     TEXT,
	result      TEXT,
	error       TEXT,
	started_at  TEXT NOT NULL,
	finished_at TEXT
);
CREATE TABLE IF NOT EXISTS training_run_stage (
	run_id      TEXT NOT NULL,
	stage_index INTEGER NOT NULL,
	stage_name  TEXT NOT NULL,
	status      TEXT NOT NULL,
	input       TEXT,
	output      TEXT,
	error       TEXT,
	duration_ms INTEGER,
	PRIMARY KEY (run_id, stage_index)
);`

// Ledger persists each training run and its stages to SQLite (training_run,
// training_run_stage) so past runs can be inspected.
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens (creating if needed) the SQLite database at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	l, err := NewLedger(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// NewLedger returns a Ledger writing to db, creating its tables if absent.
func NewLedger(db *sql.DB) (*Ledger, error) {
	if _, err := db.Exec(ledgerSchema); err != nil {
		return nil, fmt.Errorf("create ledger tables: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error { return l.db.Close() }

// BeforePipeline implements pipeline.Observer. Inserts or updates a training_run row with status 'running'.
func (l *Ledger) BeforePipeline(ctx context.Context, runID, name string, payload interface{}) error {
	_, err := l.db.ExecContext(ctx, `
INSERT INTO training_run (run_id, name, status, payload, started_at)
VALUES (?, ?, 'running', ?, ?)
ON CONFLICT (run_id) DO UPDATE SET status = 'running', payload = excluded.payload, started_at = excluded.started_at`,
		runID, name, summarize(payload), now())
	if err != nil {
		return fmt.Errorf("insert training_run: %w", err)
	}
	return nil
}

// AfterPipeline implements pipeline.Observer. Updates training_run with status (success/failed), result, and error.
func (l *Ledger) AfterPipeline(ctx context.Context, runID string, result interface{}, err error) error {
	_, execErr := l.db.ExecContext(ctx, `
UPDATE training_run SET status = ?, result = ?, error = ?, finished_at = ? WHERE run_id = ?`,
		status(err), summarize(result), errText(err), now(), runID)
	if execErr != nil {
		return fmt.Errorf("update training_run: %w", execErr)
	}
	return nil
}

// BeforeStage implements pipeline.Observer. Inserts a training_run_stage row with status 'running'.
func (l *Ledger) BeforeStage(ctx context.Context, runID string, stageIndex int, input interface{}) error {
	_, err := l.db.ExecContext(ctx, `
INSERT OR REPLACE INTO training_run_stage (run_id, stage_index, stage_name, status, input)
VALUES (?, ?, ?, 'running', ?)`,
		runID, stageIndex, pipeline.StageName(ctx), summarize(input))
	if err != nil {
		return fmt.Errorf("insert training_run_stage: %w", err)
	}
	return nil
}

// AfterStage implements pipeline.Observer. Updates training_run_stage with output, status, error, duration.
func (l *Ledger) AfterStage(ctx context.Context, runID string, stageIndex int, input, output interface{}, stageErr error, duration time.Duration) error {
	_, err := l.db.ExecContext(ctx, `
UPDATE training_run_stage SET status = ?, output = ?, error = ?, duration_ms = ?
WHERE run_id = ? AND stage_index = ?`,
		status(stageErr), summarize(output), errText(stageErr), duration.Milliseconds(), runID, stageIndex)
	if err != nil {
		return fmt.Errorf("update training_run_stage: %w", err)
	}
	return nil
}

// RunRecord is one row of training_run.
type RunRecord struct {
	RunID, Name, Status string
	Payload, Result     string
	Error               string
	StartedAt           time.Time
	FinishedAt          time.Time
}

// StageRecord is one row of training_run_stage.
type StageRecord struct {
	Index         int
	Name, Status  string
	Input, Output string
	Error         string
	Duration      time.Duration
}

// Runs returns every recorded run, oldest first.
func (l *Ledger) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT run_id, name, status, COALESCE(payload, ''), COALESCE(result, ''), COALESCE(error, ''), started_at, COALESCE(finished_at, '')
FROM training_run ORDER BY started_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query training_run: %w", err)
	}
	defer rows.Close()
	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		if err := rows.Scan(&r.RunID, &r.Name, &r.Status, &r.Payload, &r.Result, &r.Error, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stages returns the recorded stages of runID in execution order.
func (l *Ledger) Stages(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT stage_index, stage_name, status, COALESCE(input, ''), COALESCE(output, ''), COALESCE(error, ''), COALESCE(duration_ms, 0)
FROM training_run_stage WHERE run_id = ? ORDER BY stage_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query training_run_stage: %w", err)
	}
	defer rows.Close()
	var out []StageRecord
	for rows.Next() {
		var s StageRecord
		var ms int64
		if err := rows.Scan(&s.Index, &s.Name, &s.Status, &s.Input, &s.Output, &s.Error, &ms); err != nil {
			return nil, err
		}
		s.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

func status(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}

func errText(err error) sql.NullString {
	if err == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: err.Error(), Valid: true}
}

func summarize(v interface{}) sql.NullString {
	switch x := v.(type) {
	case nil:
		return sql.NullString{}
	case Summarizer:
		return sql.NullString{String: x.Summary(), Valid: true}
	case string:
		return sql.NullString{String: x, Valid: true}
	case fmt.Stringer:
		return sql.NullString{String: x.String(), Valid: true}
	}
	return sql.NullString{String: fmt.Sprintf("%T", v), Valid: true}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
