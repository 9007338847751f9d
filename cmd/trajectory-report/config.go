package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/theimaginaryfoundation/affect-o-tron/trajectory"
)

type Config struct {
	CorpusPath     string
	LexiconScores  string
	ClassifierPath string
	LLMPath        string

	AlignedPath string
	ReportPath  string

	VolatilityWindow int
	EarlyN           int
	LateN            int
	Bins             int
	HighPercentile   float64

	LexiconThreshold    float64
	ClassifierThreshold float64
	LLMThreshold        float64

	Pretty  bool
	Verbose bool
}

func defaultConfig() Config {
	rc := trajectory.DefaultReportConfig()
	return Config{
		AlignedPath:         "aligned.csv",
		ReportPath:          "report.json",
		VolatilityWindow:    rc.VolatilityWindow,
		EarlyN:              rc.EarlyN,
		LateN:               rc.LateN,
		Bins:                rc.Bins,
		HighPercentile:      rc.HighPercentile,
		LexiconThreshold:    rc.Thresholds[trajectory.MethodLexicon],
		ClassifierThreshold: rc.Thresholds[trajectory.MethodClassifier],
		LLMThreshold:        rc.Thresholds[trajectory.MethodLLM],
		Pretty:              true,
	}
}

func (c Config) Validate() error {
	if c.CorpusPath == "" {
		return errors.New("missing -corpus")
	}
	if c.LexiconScores == "" {
		return errors.New("missing -lexicon-scores")
	}
	if c.ReportPath == "" {
		return errors.New("missing -report")
	}
	return c.reportConfig().Validate()
}

func (c Config) reportConfig() trajectory.ReportConfig {
	return trajectory.ReportConfig{
		VolatilityWindow: c.VolatilityWindow,
		EarlyN:           c.EarlyN,
		LateN:            c.LateN,
		Bins:             c.Bins,
		HighPercentile:   c.HighPercentile,
		Thresholds: map[trajectory.AffectMethod]float64{
			trajectory.MethodLexicon:    c.LexiconThreshold,
			trajectory.MethodClassifier: c.ClassifierThreshold,
			trajectory.MethodLLM:        c.LLMThreshold,
		},
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.CorpusPath, "corpus", cfg.CorpusPath, "Path to the corpus CSV")
	fs.StringVar(&cfg.LexiconScores, "lexicon-scores", cfg.LexiconScores, "Path to the lexicon phase scores CSV")
	fs.StringVar(&cfg.ClassifierPath, "classifier-scores", cfg.ClassifierPath, "Optional path to the classifier phase scores CSV")
	fs.StringVar(&cfg.LLMPath, "llm-scores", cfg.LLMPath, "Optional path to the LLM phase scores CSV")
	fs.StringVar(&cfg.AlignedPath, "aligned", cfg.AlignedPath, "Output path for the aligned per-entry table")
	fs.StringVar(&cfg.ReportPath, "report", cfg.ReportPath, "Output path for the aggregate report JSON")
	fs.IntVar(&cfg.VolatilityWindow, "window", cfg.VolatilityWindow, "Rolling volatility window size")
	fs.IntVar(&cfg.EarlyN, "early", cfg.EarlyN, "Early period size in entries")
	fs.IntVar(&cfg.LateN, "late", cfg.LateN, "Late period size in entries")
	fs.IntVar(&cfg.Bins, "bins", cfg.Bins, "Number of temporal bins")
	fs.Float64Var(&cfg.HighPercentile, "high-percentile", cfg.HighPercentile, "Percentile cutoff for high-affect concordance")
	fs.Float64Var(&cfg.LexiconThreshold, "lexicon-threshold", cfg.LexiconThreshold, "Percent-above threshold for lexicon rates")
	fs.Float64Var(&cfg.ClassifierThreshold, "classifier-threshold", cfg.ClassifierThreshold, "Percent-above threshold for classifier sums")
	fs.Float64Var(&cfg.LLMThreshold, "llm-threshold", cfg.LLMThreshold, "Percent-above threshold for LLM scores")
	fs.BoolVar(&cfg.Pretty, "pretty", cfg.Pretty, "Pretty-print the report JSON")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Log aggregation detail at debug level")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
