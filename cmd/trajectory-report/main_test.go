package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/theimaginaryfoundation/affect-o-tron/trajectory"
)

func TestParseFlags_ThresholdOverrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("trajectory-report", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-corpus", "c.csv",
		"-lexicon-scores", "a.csv",
		"-window", "5",
		"-early", "10",
		"-late", "10",
		"-lexicon-threshold", "0.1",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	rc := cfg.reportConfig()
	if rc.VolatilityWindow != 5 || rc.EarlyN != 10 {
		t.Fatalf("reportConfig %+v", rc)
	}
	if rc.Thresholds[trajectory.MethodLexicon] != 0.1 {
		t.Fatalf("lexicon threshold=%v", rc.Thresholds[trajectory.MethodLexicon])
	}
	if rc.Thresholds[trajectory.MethodClassifier] != 0.5 {
		t.Fatalf("classifier threshold=%v", rc.Thresholds[trajectory.MethodClassifier])
	}
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus.csv")

	lines := []string{"entry_index,text,context_tag"}
	texts := []string{
		"calm morning walk", "a hard conversation", "quiet afternoon",
		"good news arrived", "slow evening", "some banter here",
	}
	tags := []string{"therapeutic", "therapeutic", "therapeutic", "banter", "banter", "banter"}
	for i, text := range texts {
		lines = append(lines, strings.Join([]string{
			strconv.Itoa(i + 1), text, tags[i],
		}, ","))
	}
	if err := os.WriteFile(corpus, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}

	lexPath := filepath.Join(dir, "phaseA_scores.csv")
	var lexScores []trajectory.LexiconScore
	for i := 1; i <= 6; i++ {
		lexScores = append(lexScores, trajectory.LexiconScore{
			Index:          i,
			Counts:         map[string]int{"joy": i % 2},
			PositiveAffect: i % 2,
			NegativeAffect: 0,
		})
	}
	if err := trajectory.WriteLexiconCSV(lexPath, lexScores); err != nil {
		t.Fatalf("WriteLexiconCSV: %v", err)
	}

	// Classifier covers only the first four entries; 5 and 6 join as nulls.
	clfPath := filepath.Join(dir, "phaseB_scores.csv")
	var clfScores []trajectory.ClassifierScore
	for i := 1; i <= 4; i++ {
		clfScores = append(clfScores, trajectory.ClassifierScore{
			Index: i,
			Probabilities: map[string]float64{
				"sadness": 0.125, "anxiety": 0.25, "anger": 0.0625,
				"joy": 0.5, "calm": 0.5,
			},
		})
	}
	if err := trajectory.WriteClassifierCSV(clfPath, clfScores); err != nil {
		t.Fatalf("WriteClassifierCSV: %v", err)
	}

	cfg := defaultConfig()
	cfg.CorpusPath = corpus
	cfg.LexiconScores = lexPath
	cfg.ClassifierPath = clfPath
	cfg.AlignedPath = filepath.Join(dir, "aligned.csv")
	cfg.ReportPath = filepath.Join(dir, "report.json")
	cfg.VolatilityWindow = 2
	cfg.EarlyN = 3
	cfg.LateN = 3
	cfg.Bins = 2

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if err := run(cfg, log); err != nil {
		t.Fatalf("run: %v", err)
	}

	b, err := os.ReadFile(cfg.ReportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report trajectory.Report
	if err := json.Unmarshal(b, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.TotalEntries != 6 {
		t.Fatalf("TotalEntries=%d, want 6", report.TotalEntries)
	}
	var clfCov trajectory.PhaseCoverage
	for _, c := range report.Coverage {
		if c.Phase == trajectory.MethodClassifier {
			clfCov = c
		}
	}
	if clfCov.Scored != 4 || clfCov.Failed != 2 {
		t.Fatalf("classifier coverage %+v", clfCov)
	}
	if len(report.Contexts) == 0 {
		t.Fatalf("no context partitions")
	}
	if len(report.Concordance) != 2 {
		t.Fatalf("concordance blocks=%d, want 2", len(report.Concordance))
	}

	f, err := os.Open(cfg.AlignedPath)
	if err != nil {
		t.Fatalf("open aligned: %v", err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read aligned: %v", err)
	}
	if len(recs) != 7 {
		t.Fatalf("aligned rows=%d, want header + 6", len(recs))
	}
	// Entry 5 has no classifier score: its probability cells are empty.
	hdr := recs[0]
	col := -1
	for i, name := range hdr {
		if name == "sadness_clf" {
			col = i
		}
	}
	if col == -1 {
		t.Fatalf("sadness_clf column missing from %v", hdr)
	}
	if recs[5][col] != "" {
		t.Fatalf("entry 5 sadness_clf=%q, want empty", recs[5][col])
	}
	if recs[1][col] == "" {
		t.Fatalf("entry 1 sadness_clf empty, want a probability")
	}
}
