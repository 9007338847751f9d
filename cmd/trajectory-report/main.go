package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theimaginaryfoundation/affect-o-tron/trajectory"
	"github.com/theimaginaryfoundation/affect-o-tron/trajectory/fileutils"
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

	log := logrus.New()
	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("report generation failed")
	}
}

func run(cfg Config, log *logrus.Logger) error {
	start := time.Now()

	entries, err := trajectory.LoadCorpus(cfg.CorpusPath)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}

	lexicon, err := trajectory.ReadLexiconCSV(cfg.LexiconScores)
	if err != nil {
		return fmt.Errorf("loading lexicon scores: %w", err)
	}

	// The classifier and LLM phases are optional inputs: entries they did
	// not cover join as nulls and shrink the relevant denominators.
	var classifier []trajectory.ClassifierScore
	if cfg.ClassifierPath != "" {
		classifier, err = trajectory.ReadClassifierCSV(cfg.ClassifierPath)
		if err != nil {
			return fmt.Errorf("loading classifier scores: %w", err)
		}
	}
	var llm []trajectory.LLMScore
	if cfg.LLMPath != "" {
		llm, err = trajectory.ReadLLMCSV(cfg.LLMPath)
		if err != nil {
			return fmt.Errorf("loading LLM scores: %w", err)
		}
	}

	rows, err := trajectory.Align(entries, lexicon, classifier, llm)
	if err != nil {
		return fmt.Errorf("aligning scores: %w", err)
	}

	for _, c := range trajectory.Coverage(rows) {
		log.WithFields(logrus.Fields{
			"phase":  string(c.Phase),
			"scored": c.Scored,
			"failed": c.Failed,
		}).Info("Phase coverage")
	}

	report, err := trajectory.BuildReport(rows, cfg.reportConfig())
	if err != nil {
		return fmt.Errorf("building report: %w", err)
	}

	if dir := filepath.Dir(cfg.AlignedPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := trajectory.WriteAlignedCSV(cfg.AlignedPath, rows); err != nil {
		return fmt.Errorf("writing aligned table: %w", err)
	}
	if err := fileutils.WriteJSONFileAtomic(cfg.ReportPath, report, cfg.Pretty); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"entries": len(rows),
		"aligned": cfg.AlignedPath,
		"report":  cfg.ReportPath,
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Report complete")
	return nil
}
