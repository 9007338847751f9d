package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	CorpusPath  string
	EndpointURL string
	OutPath     string
	Concurrency int
	Verbose     bool
}

func defaultConfig() Config {
	return Config{
		OutPath:     "phaseB_scores.csv",
		Concurrency: 4,
	}
}

func (c Config) Validate() error {
	if c.CorpusPath == "" {
		return errors.New("missing -corpus")
	}
	if c.EndpointURL == "" {
		return errors.New("missing -endpoint")
	}
	if c.OutPath == "" {
		return errors.New("missing -out")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("-concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.CorpusPath, "corpus", cfg.CorpusPath, "Path to the corpus CSV")
	fs.StringVar(&cfg.EndpointURL, "endpoint", cfg.EndpointURL, "Classifier service URL")
	fs.StringVar(&cfg.OutPath, "out", cfg.OutPath, "Output path for the per-entry probabilities CSV")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Number of concurrent classifier calls")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Log per-entry scoring at debug level")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
