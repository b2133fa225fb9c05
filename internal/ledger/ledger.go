// Package ledger records pipeline stage executions in a SQLite database.
//
// Every stage run gets a UUID row carrying its inputs, parameters, outputs
// with their SHA-256 digests, and the final status. The schema is managed by
// golang-migrate from migrations embedded in the binary.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/leather-drafts/internal/timeutil"
)

// DefaultFile is the ledger name inside a project's tmp directory.
const DefaultFile = "ledger.db"

// Status is the lifecycle state of a run.
type Status string

// Run statuses.
const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var (
	ErrNotFound  = errors.New("run not found")
	ErrAmbiguous = errors.New("run id prefix is ambiguous")
)

// Artifact is a file written by a run.
type Artifact struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256,omitempty"`
}

// Run is one stage execution.
type Run struct {
	ID           string         `json:"id"`
	Stage        string         `json:"stage"`
	Status       Status         `json:"status"`
	Inputs       []string       `json:"inputs"`
	Params       map[string]any `json:"params,omitempty"`
	Output       string         `json:"output,omitempty"`
	OutputSHA256 string         `json:"output_sha256,omitempty"`
	Error        string         `json:"error,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
	Artifacts    []Artifact     `json:"artifacts,omitempty"`
}

// Duration is the wall time of a finished run, or zero.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Recorder is what pipeline stages report to.
type Recorder interface {
	Begin(ctx context.Context, stage string, inputs []string, params map[string]any) (*Run, error)
	Finish(ctx context.Context, run *Run, artifacts []Artifact, runErr error) error
}

// Discard is a Recorder that keeps nothing. Runs still get IDs and
// timestamps so callers can log them.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Begin(_ context.Context, stage string, inputs []string, params map[string]any) (*Run, error) {
	return &Run{ID: uuid.NewString(), Stage: stage, Status: StatusRunning, Inputs: inputs, Params: params, StartedAt: time.Now()}, nil
}

func (discard) Finish(_ context.Context, run *Run, artifacts []Artifact, runErr error) error {
	complete(run, time.Now(), artifacts, runErr)
	return nil
}

func complete(run *Run, now time.Time, artifacts []Artifact, runErr error) {
	run.FinishedAt = &now
	run.Artifacts = artifacts
	run.Status = StatusSucceeded
	run.Error = ""
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}
	if len(artifacts) > 0 {
		run.Output = artifacts[0].Path
		run.OutputSHA256 = artifacts[0].SHA256
	}
}

// DB is the run ledger.
type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// Option configures Open.
type Option func(*DB)

// WithClock sets the clock used for run timestamps.
func WithClock(c timeutil.Clock) Option {
	return func(db *DB) { db.clock = c }
}

// Open opens (creating if needed) the ledger at path and migrates it to the
// latest schema.
func Open(path string, opts ...Option) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger dir: %w", err)
		}
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// PRAGMAs are per connection.
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	db := &DB{DB: sqlDB, clock: timeutil.RealClock{}}
	for _, opt := range opts {
		opt(db)
	}
	if err := db.MigrateUp(Migrations()); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Begin inserts a running row for the stage.
func (db *DB) Begin(ctx context.Context, stage string, inputs []string, params map[string]any) (*Run, error) {
	if inputs == nil {
		inputs = []string{}
	}
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inputs: %w", err)
	}
	if params == nil {
		params = map[string]any{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}

	run := &Run{
		ID:        uuid.NewString(),
		Stage:     stage,
		Status:    StatusRunning,
		Inputs:    inputs,
		Params:    params,
		StartedAt: db.clock.Now().UTC(),
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (run_id, stage, status, inputs_json, params_json, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Stage, string(run.Status), string(inputsJSON), string(paramsJSON), run.StartedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// Finish marks the run succeeded, or failed when runErr is non-nil, and
// stores its artifacts. The first artifact is the run's primary output.
func (db *DB) Finish(ctx context.Context, run *Run, artifacts []Artifact, runErr error) error {
	complete(run, db.clock.Now().UTC(), artifacts, runErr)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE runs SET status = ?, output = ?, output_sha256 = ?, error = ?, finished_at = ?
		WHERE run_id = ?`,
		string(run.Status), run.Output, run.OutputSHA256, run.Error, run.FinishedAt.UnixNano(), run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, run.ID)
	}
	for i, a := range artifacts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_artifacts (run_id, seq, path, sha256) VALUES (?, ?, ?, ?)`,
			run.ID, i, a.Path, a.SHA256); err != nil {
			return fmt.Errorf("failed to record artifact: %w", err)
		}
	}
	return tx.Commit()
}

// Filter narrows List.
type Filter struct {
	Stage string
	Limit int
}

const runColumns = `run_id, stage, status, inputs_json, params_json, output, output_sha256, error, started_at, finished_at`

// List returns runs newest first. Artifacts are not loaded.
func (db *DB) List(ctx context.Context, f Filter) ([]Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if f.Stage != "" {
		q += ` WHERE stage = ?`
		args = append(args, f.Stage)
	}
	q += ` ORDER BY started_at DESC, run_id`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Get returns the run with the given id, or the single run whose id starts
// with it.
func (db *DB) Get(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE run_id = ? OR run_id LIKE ? ESCAPE '\' LIMIT 2`,
		id, escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	var found []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		found = append(found, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var run *Run
	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(found) > 1:
		for _, r := range found {
			if r.ID == id {
				run = r
			}
		}
		if run == nil {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
		}
	default:
		run = found[0]
	}

	arts, err := db.QueryContext(ctx,
		`SELECT path, sha256 FROM run_artifacts WHERE run_id = ? ORDER BY seq`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer arts.Close()
	for arts.Next() {
		var a Artifact
		if err := arts.Scan(&a.Path, &a.SHA256); err != nil {
			return nil, err
		}
		run.Artifacts = append(run.Artifacts, a)
	}
	return run, arts.Err()
}

// Prune deletes all but the newest keep runs and returns how many were
// removed.
func (db *DB) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must be >= 0, got %d", keep)
	}
	res, err := db.ExecContext(ctx, `
		DELETE FROM runs WHERE run_id NOT IN (
			SELECT run_id FROM runs ORDER BY started_at DESC, run_id LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r                      Run
		status                 string
		inputsJSON, paramsJSON string
		started                int64
		finished               sql.NullInt64
	)
	if err := s.Scan(&r.ID, &r.Stage, &status, &inputsJSON, &paramsJSON,
		&r.Output, &r.OutputSHA256, &r.Error, &started, &finished); err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	r.Status = Status(status)
	if err := json.Unmarshal([]byte(inputsJSON), &r.Inputs); err != nil {
		return nil, fmt.Errorf("run %s: bad inputs: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
		return nil, fmt.Errorf("run %s: bad params: %w", r.ID, err)
	}
	r.StartedAt = time.Unix(0, started).UTC()
	if finished.Valid {
		t := time.Unix(0, finished.Int64).UTC()
		r.FinishedAt = &t
	}
	return &r, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
