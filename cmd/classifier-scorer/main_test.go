package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/theimaginaryfoundation/affect-o-tron/trajectory"
)

type fakeBackend struct {
	fail map[string]bool
}

func (f *fakeBackend) Classify(_ context.Context, text string) (map[string]float64, error) {
	if f.fail[text] {
		return nil, fmt.Errorf("backend unavailable")
	}
	return map[string]float64{
		"sadness": 0.125, "grief": 0.375,
		"fear": 0.25, "nervousness": 0.25,
		"anger": 0.0625, "annoyance": 0.0625,
		"joy": 0.5, "excitement": 0.75,
		"relief": 0.5, "contentment": 0.5,
	}, nil
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("classifier-scorer", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{"-corpus", "c.csv", "-endpoint", "http://localhost:8000/classify"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Concurrency != 4 {
		t.Fatalf("Concurrency=%d, want 4", cfg.Concurrency)
	}
	if cfg.OutPath != "phaseB_scores.csv" {
		t.Fatalf("OutPath=%q", cfg.OutPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestConfigValidate_BadConcurrency(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.CorpusPath = "c.csv"
	cfg.EndpointURL = "http://x"
	cfg.Concurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("zero concurrency should fail")
	}
}

func TestRun_FailedEntriesOmitted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus.csv")
	out := filepath.Join(dir, "phaseB_scores.csv")

	corpusCSV := strings.Join([]string{
		"entry_index,text",
		"1,feeling fine",
		"2,broken entry",
		"3,still fine",
	}, "\n")
	if err := os.WriteFile(corpus, []byte(corpusCSV), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	cfg := Config{CorpusPath: corpus, OutPath: out, EndpointURL: "http://unused", Concurrency: 2}
	backend := &fakeBackend{fail: map[string]bool{"broken entry": true}}
	if err := run(context.Background(), cfg, log, backend); err != nil {
		t.Fatalf("run: %v", err)
	}

	scores, err := trajectory.ReadClassifierCSV(out)
	if err != nil {
		t.Fatalf("ReadClassifierCSV: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("scores=%d, want 2", len(scores))
	}
	if scores[0].Index != 1 || scores[1].Index != 3 {
		t.Fatalf("indices %d,%d, want 1,3", scores[0].Index, scores[1].Index)
	}
	if got := scores[0].Probabilities["sadness"]; got != 0.25 {
		t.Fatalf("sadness=%v, want 0.25 (mean of sadness and grief)", got)
	}
	if got := scores[0].Probabilities["calm"]; got != 0.5 {
		t.Fatalf("calm=%v, want 0.5", got)
	}
}
