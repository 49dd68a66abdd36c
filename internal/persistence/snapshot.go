package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/segregation/internal/world"
)

// SaveSnapshot stores the grid layout of a run at step, zstd-compressed.
func (db *DB) SaveSnapshot(runID string, step uint64, g *world.Grid) error {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()
	blob := enc.EncodeAll(g.Layout(), nil)

	_, err = db.conn.Exec(
		`INSERT OR REPLACE INTO snapshots (run_id, step, width, height, torus, layout)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, int64(step), g.Width, g.Height, g.Torus, blob,
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s@%d: %w", runID, step, err)
	}
	return nil
}

type snapshotRow struct {
	Step   int64  `db:"step"`
	Width  int    `db:"width"`
	Height int    `db:"height"`
	Torus  bool   `db:"torus"`
	Layout []byte `db:"layout"`
}

// LoadSnapshot rebuilds the grid stored for a run at step.
func (db *DB) LoadSnapshot(runID string, step uint64) (*world.Grid, error) {
	var row snapshotRow
	err := db.conn.Get(&row,
		"SELECT step, width, height, torus, layout FROM snapshots WHERE run_id = ? AND step = ?",
		runID, int64(step))
	return decodeSnapshot(row, err, runID)
}

// LatestSnapshot rebuilds the most recent grid stored for a run and
// returns its step.
func (db *DB) LatestSnapshot(runID string) (*world.Grid, uint64, error) {
	var row snapshotRow
	err := db.conn.Get(&row,
		"SELECT step, width, height, torus, layout FROM snapshots WHERE run_id = ? ORDER BY step DESC LIMIT 1",
		runID)
	g, err := decodeSnapshot(row, err, runID)
	return g, uint64(row.Step), err
}

func decodeSnapshot(row snapshotRow, err error, runID string) (*world.Grid, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot of run %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	layout, err := dec.DecodeAll(row.Layout, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return world.FromLayout(row.Width, row.Height, row.Torus, layout)
}
