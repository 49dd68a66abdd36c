package persistence

import (
	"fmt"

	"github.com/talgya/segregation/internal/engine"
)

// stepRow mirrors the steps table.
type stepRow struct {
	RunID                string  `db:"run_id"`
	Step                 int64   `db:"step"`
	Happy                int     `db:"happy"`
	HappyMajority        int     `db:"happy_majority"`
	HappyMinority        int     `db:"happy_minority"`
	Movements            int     `db:"movements"`
	Stuck                int     `db:"stuck"`
	TotalSatisfaction    float64 `db:"total_satisfaction"`
	MajoritySatisfaction float64 `db:"majority_satisfaction"`
	MinoritySatisfaction float64 `db:"minority_satisfaction"`
	Segregation          float64 `db:"segregation"`
	HappinessReached     bool    `db:"happiness_reached"`
}

// Recorder is an engine.Sink that stores each record under one run.
type Recorder struct {
	db    *DB
	runID string
}

// Recorder returns a sink writing to runID.
func (db *DB) Recorder(runID string) *Recorder {
	return &Recorder{db: db, runID: runID}
}

// Collect implements engine.Sink.
func (r *Recorder) Collect(rec engine.Record) error {
	m := rec.Metrics
	_, err := r.db.conn.NamedExec(`INSERT OR REPLACE INTO steps
		(run_id, step, happy, happy_majority, happy_minority, movements, stuck,
		 total_satisfaction, majority_satisfaction, minority_satisfaction,
		 segregation, happiness_reached)
		VALUES (:run_id, :step, :happy, :happy_majority, :happy_minority, :movements, :stuck,
		 :total_satisfaction, :majority_satisfaction, :minority_satisfaction,
		 :segregation, :happiness_reached)`,
		stepRow{
			RunID:                r.runID,
			Step:                 int64(rec.Step),
			Happy:                m.Happy,
			HappyMajority:        m.HappyMajority,
			HappyMinority:        m.HappyMinority,
			Movements:            m.Movements,
			Stuck:                m.Stuck,
			TotalSatisfaction:    m.TotalSatisfaction,
			MajoritySatisfaction: m.MajoritySatisfaction,
			MinoritySatisfaction: m.MinoritySatisfaction,
			Segregation:          m.Segregation,
			HappinessReached:     m.HappinessReached,
		},
	)
	if err != nil {
		return fmt.Errorf("insert step %d of run %s: %w", rec.Step, r.runID, err)
	}
	return nil
}

// StepRecords returns every stored record of a run, in step order.
func (db *DB) StepRecords(runID string) ([]engine.Record, error) {
	var rows []stepRow
	if err := db.conn.Select(&rows, "SELECT * FROM steps WHERE run_id = ? ORDER BY step", runID); err != nil {
		return nil, err
	}
	out := make([]engine.Record, len(rows))
	for i, r := range rows {
		out[i] = engine.Record{
			Step: uint64(r.Step),
			Metrics: engine.Metrics{
				Happy:                r.Happy,
				HappyMajority:        r.HappyMajority,
				HappyMinority:        r.HappyMinority,
				Movements:            r.Movements,
				Stuck:                r.Stuck,
				TotalSatisfaction:    r.TotalSatisfaction,
				MajoritySatisfaction: r.MajoritySatisfaction,
				MinoritySatisfaction: r.MinoritySatisfaction,
				Segregation:          r.Segregation,
				HappinessReached:     r.HappinessReached,
			},
		}
	}
	return out, nil
}
