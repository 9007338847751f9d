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
	LexiconPath string
	OutPath     string
	Verbose     bool
}

func defaultConfig() Config {
	return Config{
		OutPath: filepath.FromSlash("out/phaseA_scores.csv"),
	}
}

func (c Config) Validate() error {
	if c.CorpusPath == "" {
		return errors.New("missing -corpus")
	}
	if c.LexiconPath == "" {
		return errors.New("missing -lexicon")
	}
	if c.OutPath == "" {
		return errors.New("missing -out")
	}
	return nil
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.CorpusPath, "corpus", cfg.CorpusPath, "Path to the corpus CSV (entry_index,timestamp,text,context_tag)")
	fs.StringVar(&cfg.LexiconPath, "lexicon", cfg.LexiconPath, "Path to the word-level emotion lexicon (word<TAB>category<TAB>flag)")
	fs.StringVar(&cfg.OutPath, "out", cfg.OutPath, "Output path for the per-entry scores CSV")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Log per-entry scoring at debug level")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.CorpusPath = filepath.Clean(cfg.CorpusPath)
	cfg.LexiconPath = filepath.Clean(cfg.LexiconPath)
	cfg.OutPath = filepath.Clean(cfg.OutPath)
	return cfg, nil
}
