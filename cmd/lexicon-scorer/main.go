package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theimaginaryfoundation/affect-o-tron/trajectory"
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
		log.WithError(err).Error("lexicon scoring failed")
		os.Exit(1)
	}
}

func run(cfg Config, log *logrus.Logger) error {
	start := time.Now()

	entries, err := trajectory.LoadCorpus(cfg.CorpusPath)
	if err != nil {
		return err
	}
	lex, err := trajectory.LoadLexicon(cfg.LexiconPath)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"entries":       len(entries),
		"lexicon_words": len(lex),
	}).Info("corpus and lexicon loaded")

	scorer := trajectory.NewLexiconScorer(lex)
	scores := make([]trajectory.LexiconScore, 0, len(entries))
	for _, e := range entries {
		s := scorer.Score(e)
		scores = append(scores, s)
		log.WithFields(logrus.Fields{
			"entry_index":     e.Index,
			"positive_affect": s.PositiveAffect,
			"negative_affect": s.NegativeAffect,
		}).Debug("entry scored")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.OutPath), 0o755); err != nil {
		return fmt.Errorf("mkdir -out: %w", err)
	}
	if err := trajectory.WriteLexiconCSV(cfg.OutPath, scores); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"scored":  len(scores),
		"out":     cfg.OutPath,
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	}).Info("lexicon scoring complete")
	return nil
}
