package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, trajectory.NewHTTPClassifier(cfg.EndpointURL)); err != nil {
		log.WithError(err).Fatal("classifier scoring failed")
	}
}

func run(ctx context.Context, cfg Config, log *logrus.Logger, backend trajectory.Classifier) error {
	start := time.Now()

	entries, err := trajectory.LoadCorpus(cfg.CorpusPath)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}
	log.WithField("entries", len(entries)).Info("Corpus loaded")

	scorer := trajectory.NewClassifierScorer(backend)

	// One result slot per entry. Failed entries stay nil and are omitted
	// from the output, so downstream alignment sees them as missing.
	results := make([]*trajectory.ClassifierScore, len(entries))
	var failed int
	var mu sync.Mutex

	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup
	for i, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(slot int, e trajectory.Entry) {
			defer wg.Done()
			defer func() { <-sem }()

			score, err := scorer.Score(ctx, e)
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				log.WithField("entry", e.Index).WithError(err).Warn("Entry classification failed")
				return
			}
			results[slot] = &score
			log.WithFields(logrus.Fields{
				"entry":    e.Index,
				"sadness":  score.Probabilities["sadness"],
				"anxiety":  score.Probabilities["anxiety"],
				"anger":    score.Probabilities["anger"],
				"joy":      score.Probabilities["joy"],
				"calm":     score.Probabilities["calm"],
			}).Debug("Entry classified")
		}(i, entry)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	scores := make([]trajectory.ClassifierScore, 0, len(entries))
	for _, r := range results {
		if r != nil {
			scores = append(scores, *r)
		}
	}

	if dir := filepath.Dir(cfg.OutPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := trajectory.WriteClassifierCSV(cfg.OutPath, scores); err != nil {
		return fmt.Errorf("writing scores: %w", err)
	}

	log.WithFields(logrus.Fields{
		"scored":  len(scores),
		"failed":  failed,
		"out":     cfg.OutPath,
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Classifier scoring complete")
	return nil
}
