package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/theimaginaryfoundation/affect-o-tron/trajectory"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trajectory.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_UnknownEntryIsPending(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	state, attempts, err := s.State(99)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state != trajectory.StatePending || attempts != 0 {
		t.Fatalf("state=%s attempts=%d, want pending/0", state, attempts)
	}
}

func TestStore_UpsertOverwritesNotAppends(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	if err := s.UpsertResult(trajectory.LLMResultRow{Index: 5, Status: trajectory.StateFailed, Attempts: 5}); err != nil {
		t.Fatalf("UpsertResult: %v", err)
	}
	if err := s.UpsertResult(trajectory.LLMResultRow{
		Index: 5, Status: trajectory.StateValidated, Attempts: 2,
		Score: &trajectory.LLMScore{Index: 5, PositiveAffect: 0.4, NegativeAffect: 0.3, Model: "m", Attempts: 2},
	}); err != nil {
		t.Fatalf("UpsertResult 2: %v", err)
	}

	results, err := s.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results=%d, want 1 (overwrite, not append)", len(results))
	}
	r := results[0]
	if r.Status != trajectory.StateValidated || r.Score == nil || r.Score.PositiveAffect != 0.4 {
		t.Fatalf("got %+v", r)
	}

	state, attempts, err := s.State(5)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state != trajectory.StateValidated || attempts != 2 {
		t.Fatalf("state=%s attempts=%d", state, attempts)
	}
}

func TestStore_FailedRowHasNilScore(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	if err := s.UpsertResult(trajectory.LLMResultRow{Index: 1, Status: trajectory.StateFailed, Attempts: 5}); err != nil {
		t.Fatalf("UpsertResult: %v", err)
	}
	results, err := s.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if results[0].Score != nil {
		t.Fatalf("failed row must have nil score")
	}
}

func TestStore_RecordAttemptReplacesSameNumber(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	rec := trajectory.AttemptRecord{
		Index: 3, Attempt: 1, Outcome: trajectory.OutcomeTransportFailed,
		Timestamp: time.Now(), Error: "timeout",
	}
	if err := s.RecordAttempt(rec); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	rec.Outcome = trajectory.OutcomeValidated
	rec.Error = ""
	if err := s.RecordAttempt(rec); err != nil {
		t.Fatalf("RecordAttempt replace: %v", err)
	}

	var count int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM llm_attempts WHERE entry_index = 3`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("attempts=%d, want 1", count)
	}
}

func TestStore_RetryHistogram(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	terminal := []trajectory.LLMResultRow{
		{Index: 1, Status: trajectory.StateValidated, Attempts: 1, Score: &trajectory.LLMScore{Index: 1}},
		{Index: 2, Status: trajectory.StateValidated, Attempts: 1, Score: &trajectory.LLMScore{Index: 2}},
		{Index: 3, Status: trajectory.StateValidated, Attempts: 3, Score: &trajectory.LLMScore{Index: 3}},
		{Index: 4, Status: trajectory.StateFailed, Attempts: 5},
	}
	for _, r := range terminal {
		if err := s.UpsertResult(r); err != nil {
			t.Fatalf("UpsertResult %d: %v", r.Index, err)
		}
	}
	hist, err := s.RetryHistogram()
	if err != nil {
		t.Fatalf("RetryHistogram: %v", err)
	}
	if hist[1] != 2 || hist[3] != 1 || hist[5] != 1 {
		t.Fatalf("hist=%v", hist)
	}
}
