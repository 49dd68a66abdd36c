// Package persistence provides SQLite-based storage for runs: their
// parameters, per-step metrics, and compressed grid snapshots.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/segregation/internal/config"
)

// ErrNotFound indicates a missing run or snapshot.
var ErrNotFound = errors.New("persistence: not found")

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Run is a stored run header.
type Run struct {
	ID         string         `db:"id" json:"id"`
	Preset     string         `db:"preset" json:"preset"`
	ParamsJSON string         `db:"params_json" json:"-"`
	Seed       string         `db:"seed" json:"seed"` // Decimal; uint64 does not fit SQLite INTEGER
	StartedAt  string         `db:"started_at" json:"started_at"`
	FinishedAt sql.NullString `db:"finished_at" json:"-"`
	Steps      int64          `db:"steps" json:"steps"`
	Halted     bool           `db:"halted" json:"halted"`
}

// Params decodes the stored model configuration.
func (r Run) Params() (config.ModelConfig, error) {
	var m config.ModelConfig
	err := json.Unmarshal([]byte(r.ParamsJSON), &m)
	return m, err
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		preset TEXT NOT NULL,
		params_json TEXT NOT NULL,
		seed TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		steps INTEGER NOT NULL DEFAULT 0,
		halted INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS steps (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		happy INTEGER NOT NULL,
		happy_majority INTEGER NOT NULL,
		happy_minority INTEGER NOT NULL,
		movements INTEGER NOT NULL,
		stuck INTEGER NOT NULL,
		total_satisfaction REAL NOT NULL,
		majority_satisfaction REAL NOT NULL,
		minority_satisfaction REAL NOT NULL,
		segregation REAL NOT NULL,
		happiness_reached INTEGER NOT NULL,
		PRIMARY KEY (run_id, step)
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		torus INTEGER NOT NULL,
		layout BLOB NOT NULL,
		PRIMARY KEY (run_id, step)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreateRun stores a new run header and returns its ID.
func (db *DB) CreateRun(m config.ModelConfig, seed uint64) (string, error) {
	params, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	id := uuid.NewString()
	_, err = db.conn.Exec(
		"INSERT INTO runs (id, preset, params_json, seed, started_at) VALUES (?, ?, ?, ?, ?)",
		id, m.Preset, string(params), strconv.FormatUint(seed, 10), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	slog.Debug("run created", "run_id", id, "preset", m.Preset, "seed", seed)
	return id, nil
}

// FinishRun records the final step count and whether the model halted on
// its own (as opposed to hitting the step limit).
func (db *DB) FinishRun(id string, steps uint64, halted bool) error {
	res, err := db.conn.Exec(
		"UPDATE runs SET finished_at = ?, steps = ?, halted = ? WHERE id = ?",
		time.Now().UTC().Format(timeLayout), int64(steps), halted, id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	return nil
}

// GetRun returns one run header.
func (db *DB) GetRun(id string) (Run, error) {
	var r Run
	err := db.conn.Get(&r, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	return r, err
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, "SELECT * FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	return runs, err
}
