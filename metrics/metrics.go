// Package metrics records run progress into a local sqlite database
// for offline inspection of loss and exploitability curves.
package metrics

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	config     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS cycles (
	run_id         TEXT NOT NULL,
	iteration      INTEGER NOT NULL,
	recorded_at    TIMESTAMP NOT NULL,
	nodes_visited  INTEGER NOT NULL,
	trees          INTEGER NOT NULL,
	PRIMARY KEY (run_id, iteration)
);
CREATE TABLE IF NOT EXISTS retrainings (
	run_id      TEXT NOT NULL,
	iteration   INTEGER NOT NULL,
	player      INTEGER NOT NULL,
	loss        REAL NOT NULL,
	samples     INTEGER NOT NULL,
	skipped     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, iteration, player)
);
CREATE TABLE IF NOT EXISTS evaluations (
	run_id         TEXT NOT NULL,
	iteration      INTEGER NOT NULL,
	exploitability REAL NOT NULL,
	PRIMARY KEY (run_id, iteration)
);
`

// Store wraps the metrics database. All writes are best-effort from
// the orchestrator's point of view; a failed insert must not stop
// training.
type Store struct {
	db *sqlx.DB
}

// Open connects to the sqlite file at path (":memory:" for tests) and
// applies the schema. An empty path disables metrics: a nil store is
// returned and every caller nil-checks.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, nil
	}
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metrics db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply metrics schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

type Run struct {
	RunID     string    `db:"run_id"`
	StartedAt time.Time `db:"started_at"`
	Config    string    `db:"config"`
}

type Cycle struct {
	RunID        string    `db:"run_id"`
	Iteration    int       `db:"iteration"`
	RecordedAt   time.Time `db:"recorded_at"`
	NodesVisited int64     `db:"nodes_visited"`
	Trees        int64     `db:"trees"`
}

type Retraining struct {
	RunID     string  `db:"run_id"`
	Iteration int     `db:"iteration"`
	Player    int     `db:"player"`
	Loss      float64 `db:"loss"`
	Samples   int     `db:"samples"`
	Skipped   bool    `db:"skipped"`
}

type Evaluation struct {
	RunID          string  `db:"run_id"`
	Iteration      int     `db:"iteration"`
	Exploitability float64 `db:"exploitability"`
}

func (s *Store) RecordRun(r Run) error {
	_, err := s.db.NamedExec(`INSERT OR REPLACE INTO runs (run_id, started_at, config)
		VALUES (:run_id, :started_at, :config)`, r)
	return err
}

func (s *Store) RecordCycle(c Cycle) error {
	_, err := s.db.NamedExec(`INSERT OR REPLACE INTO cycles
		(run_id, iteration, recorded_at, nodes_visited, trees)
		VALUES (:run_id, :iteration, :recorded_at, :nodes_visited, :trees)`, c)
	return err
}

func (s *Store) RecordRetraining(r Retraining) error {
	_, err := s.db.NamedExec(`INSERT OR REPLACE INTO retrainings
		(run_id, iteration, player, loss, samples, skipped)
		VALUES (:run_id, :iteration, :player, :loss, :samples, :skipped)`, r)
	return err
}

func (s *Store) RecordEvaluation(e Evaluation) error {
	_, err := s.db.NamedExec(`INSERT OR REPLACE INTO evaluations
		(run_id, iteration, exploitability)
		VALUES (:run_id, :iteration, :exploitability)`, e)
	return err
}

// Cycles returns the recorded cycles of a run, oldest first.
func (s *Store) Cycles(runID string) ([]Cycle, error) {
	var out []Cycle
	err := s.db.Select(&out, `SELECT run_id, iteration, recorded_at, nodes_visited, trees
		FROM cycles WHERE run_id = ? ORDER BY iteration`, runID)
	return out, err
}

// Evaluations returns the exploitability series of a run.
func (s *Store) Evaluations(runID string) ([]Evaluation, error) {
	var out []Evaluation
	err := s.db.Select(&out, `SELECT run_id, iteration, exploitability
		FROM evaluations WHERE run_id = ? ORDER BY iteration`, runID)
	return out, err
}
