// Package history persists completed dispatch rounds for later review.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"adfleet/internal/dispatch"
)

const schema = `
CREATE TABLE IF NOT EXISTS rounds(
	id TEXT PRIMARY KEY,
	command TEXT NOT NULL,
	target_count INTEGER NOT NULL,
	success_count INTEGER NOT NULL,
	failure_count INTEGER NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS outcomes(
	round_id TEXT NOT NULL REFERENCES rounds(id),
	computer TEXT NOT NULL,
	status TEXT NOT NULL,
	output TEXT NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_round ON outcomes(round_id);
`

// RoundRecord is a stored round summary
type RoundRecord struct {
	ID           string
	Command      string
	TargetCount  int
	SuccessCount int
	FailureCount int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// OutcomeRecord is one stored per-target outcome
type OutcomeRecord struct {
	RoundID    string
	Computer   string
	Status     string
	Output     string
	DurationMs int64
}

// Store persists rounds in a local sqlite database
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRound persists a completed round and its outcomes atomically
func (s *Store) SaveRound(round *dispatch.Round) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	successes, failures := round.Counts()
	_, err = tx.Exec(`INSERT INTO rounds(id,command,target_count,success_count,failure_count,started_at,finished_at)
		VALUES (?,?,?,?,?,?,?)`,
		round.ID, round.Command, len(round.Targets), successes, failures, round.Started, round.Finished)
	if err != nil {
		return err
	}

	for _, o := range round.Outcomes {
		_, err = tx.Exec(`INSERT INTO outcomes(round_id,computer,status,output,duration_ms) VALUES (?,?,?,?,?)`,
			round.ID, o.TargetName, o.Status.String(), o.Output, o.Duration.Milliseconds())
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentRounds lists the most recent rounds, newest first
func (s *Store) RecentRounds(limit int) ([]RoundRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT id,command,target_count,success_count,failure_count,started_at,finished_at
		FROM rounds ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []RoundRecord
	for rows.Next() {
		var r RoundRecord
		if err := rows.Scan(&r.ID, &r.Command, &r.TargetCount, &r.SuccessCount, &r.FailureCount, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// RoundOutcomes returns the stored outcomes of one round
func (s *Store) RoundOutcomes(roundID string) ([]OutcomeRecord, error) {
	rows, err := s.db.Query(`SELECT round_id,computer,status,output,duration_ms FROM outcomes WHERE round_id = ? ORDER BY computer`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []OutcomeRecord
	for rows.Next() {
		var o OutcomeRecord
		if err := rows.Scan(&o.RoundID, &o.Computer, &o.Status, &o.Output, &o.DurationMs); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// Cleanup trims rounds older than retentionDays and their outcomes
func (s *Store) Cleanup(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := fmt.Sprintf("-%d days", retentionDays)
	if _, err := s.db.Exec(`DELETE FROM outcomes WHERE round_id IN (SELECT id FROM rounds WHERE started_at < datetime('now', ?))`, cutoff); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM rounds WHERE started_at < datetime('now', ?)`, cutoff)
	return err
}
