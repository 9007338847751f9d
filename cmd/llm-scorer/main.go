package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"

	"github.com/theimaginaryfoundation/affect-o-tron/trajectory"
	"github.com/theimaginaryfoundation/affect-o-tron/trajectory/fileutils"
	"github.com/theimaginaryfoundation/affect-o-tron/trajectory/store"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "missing OPENAI_API_KEY (or pass -api-key)")
		os.Exit(2)
	}

	log := logrus.New()
	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := openai.NewClient(option.WithAPIKey(apiKey))
	completer := openAICompleter{client: &client, model: cfg.Model}

	if err := run(ctx, cfg, log, completer); err != nil {
		log.WithError(err).Fatal("LLM scoring failed")
	}
}

// maxAuditPayload caps the raw model output stored per attempt record.
const maxAuditPayload = 8192

// scorer drives one entry at a time through the bounded retry loop, recording
// every issued request in both the JSONL audit log and the store.
type scorer struct {
	completer affectCompleter
	policy    trajectory.RetryPolicy
	timeout   time.Duration
	model     string

	st  *store.Store
	log *logrus.Logger

	auditMu sync.Mutex
	audit   *fileutils.JSONLWriter
}

func (s *scorer) recordAttempt(rec trajectory.AttemptRecord) error {
	s.auditMu.Lock()
	err := s.audit.Write(rec)
	s.auditMu.Unlock()
	if err != nil {
		return err
	}
	return s.st.RecordAttempt(rec)
}

// scoreEntry runs the attempt loop for one entry until it reaches a terminal
// state. The error return is reserved for run-level aborts (cancellation,
// audit I/O); a malformed response or exhausted retry budget is a normal
// terminal-failed row, not an error.
func (s *scorer) scoreEntry(ctx context.Context, e trajectory.Entry) (trajectory.LLMResultRow, error) {
	prompt := trajectory.BuildAffectPrompt(e.Text)
	m := trajectory.NewAttemptMachine(s.policy)

	var score *trajectory.LLMScore
	for {
		attempt, err := m.Begin()
		if err != nil {
			return trajectory.LLMResultRow{}, err
		}

		// The attempt context is detached from the run context: cancellation
		// stops new attempts (the sleep below and the dispatch loop both
		// consult ctx) but an in-flight request finishes or times out on its
		// own, so a nearly-complete response still gets recorded.
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		out, requestID, callErr := s.completer.Complete(actx, prompt)
		cancel()

		rec := trajectory.AttemptRecord{
			Index:     e.Index,
			Attempt:   attempt,
			Timestamp: time.Now().UTC(),
			RequestID: requestID,
		}
		var outcome trajectory.AttemptOutcome
		switch {
		case callErr != nil:
			outcome = trajectory.OutcomeTransportFailed
			rec.Error = callErr.Error()
		default:
			rec.RawPayload = fileutils.Truncate(out, maxAuditPayload)
			resp, parseErr := trajectory.ParseAffectResponse(e.Index, out)
			if parseErr != nil {
				outcome = trajectory.OutcomeMalformed
				rec.Error = parseErr.Error()
			} else {
				outcome = trajectory.OutcomeValidated
				score = &trajectory.LLMScore{
					Index:          e.Index,
					PositiveAffect: resp.PositiveAffect,
					NegativeAffect: resp.NegativeAffect,
					RequestID:      requestID,
					Attempts:       attempt,
					Model:          s.model,
				}
			}
		}
		rec.Outcome = outcome
		if err := s.recordAttempt(rec); err != nil {
			return trajectory.LLMResultRow{}, fmt.Errorf("recording attempt for entry %d: %w", e.Index, err)
		}

		state, delay, err := m.Observe(outcome)
		if err != nil {
			return trajectory.LLMResultRow{}, err
		}
		s.log.WithFields(logrus.Fields{
			"entry":   e.Index,
			"attempt": attempt,
			"outcome": string(outcome),
			"state":   string(state),
		}).Debug("Attempt observed")

		if state.Terminal() {
			return trajectory.LLMResultRow{
				Index:    e.Index,
				Score:    score,
				Status:   state,
				Attempts: m.Attempts,
			}, nil
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return trajectory.LLMResultRow{}, err
		}
	}
}

func run(ctx context.Context, cfg Config, log *logrus.Logger, completer affectCompleter) error {
	started := time.Now().UTC()

	entries, err := trajectory.LoadCorpus(cfg.CorpusPath)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}
	if cfg.MaxEntries > 0 && len(entries) > cfg.MaxEntries {
		entries = entries[:cfg.MaxEntries]
	}
	log.WithField("entries", len(entries)).Info("Corpus loaded")

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	audit, err := fileutils.OpenJSONLWriter(cfg.AttemptsPath)
	if err != nil {
		return fmt.Errorf("opening attempt log: %w", err)
	}
	defer audit.Close()

	policy := trajectory.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Multiplier:  2,
		MaxDelay:    cfg.MaxDelay,
	}
	if err := policy.Validate(); err != nil {
		return err
	}

	s := &scorer{
		completer: completer,
		policy:    policy,
		timeout:   cfg.RequestTimeout,
		model:     cfg.Model,
		st:        st,
		log:       log,
		audit:     audit,
	}

	// Resume: terminal-validated entries never get another request.
	var todo []trajectory.Entry
	var skipped int
	for _, e := range entries {
		state, _, err := st.State(e.Index)
		if err != nil {
			return err
		}
		if state == trajectory.StateValidated {
			skipped++
			continue
		}
		todo = append(todo, e)
	}
	log.WithFields(logrus.Fields{"todo": len(todo), "skipped": skipped}).Info("Resume state resolved")

	var succeeded, failed int
	var mu sync.Mutex
	errCh := make(chan error, len(todo))

	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup
	for _, entry := range todo {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(e trajectory.Entry) {
			defer wg.Done()
			defer func() { <-sem }()

			row, err := s.scoreEntry(ctx, e)
			if err != nil {
				errCh <- err
				return
			}
			if err := st.UpsertResult(row); err != nil {
				errCh <- err
				return
			}
			mu.Lock()
			if row.Status == trajectory.StateValidated {
				succeeded++
			} else {
				failed++
			}
			mu.Unlock()
			if row.Status == trajectory.StateFailed {
				log.WithFields(logrus.Fields{"entry": e.Index, "attempts": row.Attempts}).Warn("Entry exhausted its attempt budget")
			}
		}(entry)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}

	rows, err := st.Results()
	if err != nil {
		return err
	}
	if err := trajectory.WriteLLMCSV(cfg.OutPath, rows); err != nil {
		return fmt.Errorf("writing scores: %w", err)
	}

	hist, err := st.RetryHistogram()
	if err != nil {
		return err
	}
	summary := trajectory.LLMRunSummary{
		RunID:          uuid.NewString(),
		Model:          cfg.Model,
		StartedAt:      started,
		FinishedAt:     time.Now().UTC(),
		TotalEntries:   len(entries),
		Succeeded:      succeeded,
		Failed:         failed,
		Skipped:        skipped,
		RetryHistogram: hist,
		PromptTemplate: trajectory.AffectPromptTemplate(),
	}
	if err := fileutils.WriteJSONFileAtomic(cfg.RunSummaryPath, summary, true); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"run_id":    summary.RunID,
		"succeeded": succeeded,
		"failed":    failed,
		"skipped":   skipped,
		"out":       cfg.OutPath,
		"elapsed":   time.Since(started).Round(time.Millisecond).String(),
	}).Info("LLM scoring complete")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
