package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	CorpusPath     string
	OutPath        string
	StorePath      string
	AttemptsPath   string
	RunSummaryPath string

	Model  string
	APIKey string

	Concurrency    int
	MaxEntries     int
	RequestTimeout time.Duration

	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	Verbose bool
}

func defaultConfig() Config {
	return Config{
		OutPath:        "phaseC_scores.csv",
		StorePath:      "trajectory.db",
		AttemptsPath:   "phaseC_attempts.jsonl",
		RunSummaryPath: "phaseC_run.json",
		Model:          "gpt-4o",
		Concurrency:    4,
		RequestTimeout: 90 * time.Second,
		MaxAttempts:    5,
		BaseDelay:      2 * time.Second,
		MaxDelay:       60 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.CorpusPath == "" {
		return errors.New("missing -corpus")
	}
	if c.OutPath == "" {
		return errors.New("missing -out")
	}
	if c.StorePath == "" {
		return errors.New("missing -store")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("-concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxEntries < 0 {
		return errors.New("-max-entries must be >= 0")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("-request-timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("-max-attempts must be at least 1")
	}
	if c.BaseDelay <= 0 {
		return errors.New("-base-delay must be positive")
	}
	return nil
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.CorpusPath, "corpus", cfg.CorpusPath, "Path to the corpus CSV")
	fs.StringVar(&cfg.OutPath, "out", cfg.OutPath, "Output path for the per-entry affect CSV")
	fs.StringVar(&cfg.StorePath, "store", cfg.StorePath, "SQLite path for resumable per-entry state")
	fs.StringVar(&cfg.AttemptsPath, "attempts", cfg.AttemptsPath, "Append-only JSONL audit log of every request attempt")
	fs.StringVar(&cfg.RunSummaryPath, "run-summary", cfg.RunSummaryPath, "Output path for the run provenance JSON")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model to use")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Max concurrent entry inferences")
	fs.IntVar(&cfg.MaxEntries, "max-entries", 0, "Score only the first N entries (0 = all)")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Per-attempt request timeout")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Attempt cap per entry before it terminates failed")
	fs.DurationVar(&cfg.BaseDelay, "base-delay", cfg.BaseDelay, "Backoff delay after the first failed attempt")
	fs.DurationVar(&cfg.MaxDelay, "max-delay", cfg.MaxDelay, "Backoff delay cap")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Log per-attempt progress at debug level")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
