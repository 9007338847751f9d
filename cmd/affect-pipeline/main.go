package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/theimaginaryfoundation/affect-o-tron/trajectory/fileutils"
)

var allStages = []string{"lexicon", "classify", "llm", "report"}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stages := allStages
	if cfg.OnlyStage != "" {
		stages = []string{cfg.OnlyStage}
	} else if cfg.FromStage != "" {
		stages = stagesFrom(stages, cfg.FromStage)
	}

	base := filepath.Clean(cfg.BaseDir)
	paths := outputPaths(base)

	// The lexicon and classifier phases are independent scoring passes over
	// the same corpus, so when both are selected they run concurrently.
	if hasStage(stages, "lexicon") || hasStage(stages, "classify") {
		g, gctx := errgroup.WithContext(ctx)
		if hasStage(stages, "lexicon") {
			g.Go(func() error { return runLexicon(gctx, cfg, paths) })
		}
		if hasStage(stages, "classify") {
			g.Go(func() error { return runClassify(gctx, cfg, paths) })
		}
		if err := g.Wait(); err != nil {
			os.Exit(1)
		}
	}

	if hasStage(stages, "llm") {
		if err := runLLM(ctx, cfg, paths); err != nil {
			os.Exit(1)
		}
	}
	if hasStage(stages, "report") {
		if err := runReport(ctx, cfg, paths); err != nil {
			os.Exit(1)
		}
	}
}

type outPaths struct {
	phaseA     string
	phaseB     string
	phaseC     string
	store      string
	attempts   string
	runSummary string
	aligned    string
	report     string
}

func outputPaths(base string) outPaths {
	return outPaths{
		phaseA:     filepath.Join(base, "phaseA_scores.csv"),
		phaseB:     filepath.Join(base, "phaseB_scores.csv"),
		phaseC:     filepath.Join(base, "phaseC_scores.csv"),
		store:      filepath.Join(base, "trajectory.db"),
		attempts:   filepath.Join(base, "phaseC_attempts.jsonl"),
		runSummary: filepath.Join(base, "phaseC_run.json"),
		aligned:    filepath.Join(base, "aligned.csv"),
		report:     filepath.Join(base, "report.json"),
	}
}

func runLexicon(ctx context.Context, cfg Config, paths outPaths) error {
	if !cfg.Overwrite && fileutils.FileExists(paths.phaseA) {
		fmt.Fprintln(os.Stdout, "skip lexicon: scores already exist")
		return nil
	}
	return runGo(ctx,
		"run", "./cmd/lexicon-scorer",
		"-corpus", cfg.CorpusPath,
		"-lexicon", cfg.LexiconPath,
		"-out", paths.phaseA,
	)
}

func runClassify(ctx context.Context, cfg Config, paths outPaths) error {
	if cfg.Endpoint == "" {
		fmt.Fprintln(os.Stdout, "skip classify: no -endpoint configured")
		return nil
	}
	if !cfg.Overwrite && fileutils.FileExists(paths.phaseB) {
		fmt.Fprintln(os.Stdout, "skip classify: scores already exist")
		return nil
	}
	return runGo(ctx,
		"run", "./cmd/classifier-scorer",
		"-corpus", cfg.CorpusPath,
		"-endpoint", cfg.Endpoint,
		"-out", paths.phaseB,
		"-concurrency", fmt.Sprintf("%d", cfg.Concurrency),
	)
}

func runLLM(ctx context.Context, cfg Config, paths outPaths) error {
	// Resume lives in the store, so the stage reruns even when the CSV
	// exists; already-validated entries cost no requests.
	return runGo(ctx,
		"run", "./cmd/llm-scorer",
		"-corpus", cfg.CorpusPath,
		"-out", paths.phaseC,
		"-store", paths.store,
		"-attempts", paths.attempts,
		"-run-summary", paths.runSummary,
		"-model", cfg.Model,
		"-concurrency", fmt.Sprintf("%d", cfg.Concurrency),
		"-max-entries", fmt.Sprintf("%d", cfg.MaxEntries),
	)
}

func runReport(ctx context.Context, cfg Config, paths outPaths) error {
	args := []string{
		"run", "./cmd/trajectory-report",
		"-corpus", cfg.CorpusPath,
		"-lexicon-scores", paths.phaseA,
		"-aligned", paths.aligned,
		"-report", paths.report,
		"-window", fmt.Sprintf("%d", cfg.Window),
		"-early", fmt.Sprintf("%d", cfg.EarlyN),
		"-late", fmt.Sprintf("%d", cfg.LateN),
		"-bins", fmt.Sprintf("%d", cfg.Bins),
	}
	if fileutils.FileExists(paths.phaseB) {
		args = append(args, "-classifier-scores", paths.phaseB)
	}
	if fileutils.FileExists(paths.phaseC) {
		args = append(args, "-llm-scores", paths.phaseC)
	}
	return runGo(ctx, args...)
}

type Config struct {
	CorpusPath  string
	LexiconPath string
	Endpoint    string
	BaseDir     string

	Model       string
	Concurrency int
	MaxEntries  int

	Window int
	EarlyN int
	LateN  int
	Bins   int

	FromStage string
	OnlyStage string

	Overwrite bool
}

func defaultConfig() Config {
	return Config{
		BaseDir:     "out",
		Model:       "gpt-4o",
		Concurrency: 4,
		Window:      20,
		EarlyN:      175,
		LateN:       175,
		Bins:        10,
	}
}

func (c Config) Validate() error {
	if c.CorpusPath == "" {
		return errors.New("missing -corpus")
	}
	if c.LexiconPath == "" {
		return errors.New("missing -lexicon")
	}
	if c.OnlyStage != "" && !hasStage(allStages, c.OnlyStage) {
		return fmt.Errorf("unknown stage: %s", c.OnlyStage)
	}
	if c.FromStage != "" && !hasStage(allStages, c.FromStage) {
		return fmt.Errorf("unknown stage: %s", c.FromStage)
	}
	return nil
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.CorpusPath, "corpus", cfg.CorpusPath, "Path to the corpus CSV")
	fs.StringVar(&cfg.LexiconPath, "lexicon", cfg.LexiconPath, "Path to the emotion lexicon file")
	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "Classifier service URL (empty skips the classify stage)")
	fs.StringVar(&cfg.BaseDir, "base-dir", cfg.BaseDir, "Base output directory")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model for the LLM stage (uses OPENAI_API_KEY)")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Concurrent calls within the classify and llm stages")
	fs.IntVar(&cfg.MaxEntries, "max-entries", 0, "Limit number of entries sent to the LLM stage (0 = all)")
	fs.IntVar(&cfg.Window, "window", cfg.Window, "Rolling volatility window size")
	fs.IntVar(&cfg.EarlyN, "early", cfg.EarlyN, "Early period size in entries")
	fs.IntVar(&cfg.LateN, "late", cfg.LateN, "Late period size in entries")
	fs.IntVar(&cfg.Bins, "bins", cfg.Bins, "Number of temporal bins")
	fs.StringVar(&cfg.FromStage, "from-stage", "", "Start at stage: lexicon|classify|llm|report")
	fs.StringVar(&cfg.OnlyStage, "only-stage", "", "Run only one stage: lexicon|classify|llm|report")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Rerun stages whose outputs already exist")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.CorpusPath = filepath.Clean(cfg.CorpusPath)
	cfg.LexiconPath = filepath.Clean(cfg.LexiconPath)
	return cfg, nil
}

func runGo(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "command failed:", "go "+strings.Join(args, " "))
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		return err
	}
	fmt.Fprintln(os.Stdout, "ok:", "go "+strings.Join(args, " "), "(", time.Since(start).Round(time.Millisecond).String()+")")
	return nil
}

func stagesFrom(stages []string, from string) []string {
	from = strings.ToLower(strings.TrimSpace(from))
	for i, s := range stages {
		if s == from {
			return stages[i:]
		}
	}
	return stages
}

func hasStage(stages []string, name string) bool {
	for _, s := range stages {
		if s == name {
			return true
		}
	}
	return false
}
