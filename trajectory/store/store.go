// Package store persists the LLM phase's per-entry outcomes and per-attempt
// audit rows in SQLite. It is the resume source: an entry whose stored state
// is terminal-validated is never re-requested.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/theimaginaryfoundation/affect-o-tron/trajectory"
)

const schema = `
CREATE TABLE IF NOT EXISTS llm_scores (
	entry_index     INTEGER PRIMARY KEY,
	state           TEXT NOT NULL,
	positive_affect REAL,
	negative_affect REAL,
	model           TEXT,
	request_id      TEXT,
	attempts        INTEGER NOT NULL DEFAULT 0,
	updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS llm_attempts (
	entry_index    INTEGER NOT NULL,
	attempt_number INTEGER NOT NULL,
	outcome        TEXT NOT NULL,
	timestamp      TEXT NOT NULL,
	request_id     TEXT,
	raw_payload    TEXT,
	error          TEXT,
	PRIMARY KEY (entry_index, attempt_number)
);
`

// Store wraps a SQLite database connection.
type Store struct {
	conn *sql.DB
	Path string
}

// Open opens (creating if needed) the store with WAL mode enabled.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{conn: conn, Path: path}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// State returns the stored terminal/intermediate state and attempt count for
// an entry, or pending with zero attempts when the entry is unknown.
func (s *Store) State(index int) (trajectory.AttemptState, int, error) {
	row := s.conn.QueryRow(`SELECT state, attempts FROM llm_scores WHERE entry_index = ?`, index)
	var state string
	var attempts int
	switch err := row.Scan(&state, &attempts); err {
	case nil:
		return trajectory.AttemptState(state), attempts, nil
	case sql.ErrNoRows:
		return trajectory.StatePending, 0, nil
	default:
		return "", 0, fmt.Errorf("reading state for entry %d: %w", index, err)
	}
}

// UpsertResult writes the terminal outcome for an entry, keyed by entry
// index: a retried entry overwrites its prior row, it never appends.
func (s *Store) UpsertResult(r trajectory.LLMResultRow) error {
	var pos, neg sql.NullFloat64
	var model, requestID sql.NullString
	if r.Score != nil {
		pos = sql.NullFloat64{Float64: r.Score.PositiveAffect, Valid: true}
		neg = sql.NullFloat64{Float64: r.Score.NegativeAffect, Valid: true}
		model = sql.NullString{String: r.Score.Model, Valid: r.Score.Model != ""}
		requestID = sql.NullString{String: r.Score.RequestID, Valid: r.Score.RequestID != ""}
	}
	_, err := s.conn.Exec(`
		INSERT INTO llm_scores (entry_index, state, positive_affect, negative_affect, model, request_id, attempts, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entry_index) DO UPDATE SET
			state = excluded.state,
			positive_affect = excluded.positive_affect,
			negative_affect = excluded.negative_affect,
			model = excluded.model,
			request_id = excluded.request_id,
			attempts = excluded.attempts,
			updated_at = excluded.updated_at`,
		r.Index, string(r.Status), pos, neg, model, requestID, r.Attempts,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting result for entry %d: %w", r.Index, err)
	}
	return nil
}

// RecordAttempt writes one audit row. Keyed by (entry, attempt number) so a
// cancelled-then-retried attempt overwrites rather than double-counts.
func (s *Store) RecordAttempt(rec trajectory.AttemptRecord) error {
	_, err := s.conn.Exec(`
		INSERT OR REPLACE INTO llm_attempts (entry_index, attempt_number, outcome, timestamp, request_id, raw_payload, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Index, rec.Attempt, string(rec.Outcome),
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.RequestID, rec.RawPayload, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("recording attempt %d for entry %d: %w", rec.Attempt, rec.Index, err)
	}
	return nil
}

// Results returns every stored row ordered by entry index.
func (s *Store) Results() ([]trajectory.LLMResultRow, error) {
	rows, err := s.conn.Query(`
		SELECT entry_index, state, positive_affect, negative_affect, model, request_id, attempts
		FROM llm_scores ORDER BY entry_index`)
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	defer rows.Close()

	var out []trajectory.LLMResultRow
	for rows.Next() {
		var r trajectory.LLMResultRow
		var state string
		var pos, neg sql.NullFloat64
		var model, requestID sql.NullString
		if err := rows.Scan(&r.Index, &state, &pos, &neg, &model, &requestID, &r.Attempts); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		r.Status = trajectory.AttemptState(state)
		if r.Status == trajectory.StateValidated && pos.Valid && neg.Valid {
			r.Score = &trajectory.LLMScore{
				Index:          r.Index,
				PositiveAffect: pos.Float64,
				NegativeAffect: neg.Float64,
				Model:          model.String,
				RequestID:      requestID.String,
				Attempts:       r.Attempts,
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RetryHistogram maps attempt count to the number of entries that needed
// that many attempts to reach a terminal state.
func (s *Store) RetryHistogram() (map[int]int, error) {
	rows, err := s.conn.Query(`
		SELECT attempts, COUNT(*) FROM llm_scores
		WHERE state IN (?, ?) GROUP BY attempts`,
		string(trajectory.StateValidated), string(trajectory.StateFailed))
	if err != nil {
		return nil, fmt.Errorf("reading retry histogram: %w", err)
	}
	defer rows.Close()

	hist := map[int]int{}
	for rows.Next() {
		var attempts, count int
		if err := rows.Scan(&attempts, &count); err != nil {
			return nil, fmt.Errorf("scanning histogram row: %w", err)
		}
		hist[attempts] = count
	}
	return hist, rows.Err()
}
