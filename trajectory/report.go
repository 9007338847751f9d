package trajectory

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ReportConfig holds the aggregation knobs. The period split and thresholds
// are deliberately configuration, not constants: different corpora use
// different window shapes.
type ReportConfig struct {
	VolatilityWindow int
	EarlyN           int
	LateN            int
	Bins             int
	HighPercentile   float64

	// Thresholds for percent-above statistics, per method. The three
	// methods live on different scales (rates, summed probabilities,
	// unit-interval scores), so one shared cutoff would be meaningless.
	Thresholds map[AffectMethod]float64
}

func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		VolatilityWindow: 20,
		EarlyN:           175,
		LateN:            175,
		Bins:             10,
		HighPercentile:   75,
		Thresholds: map[AffectMethod]float64{
			MethodLexicon:    0.05,
			MethodClassifier: 0.5,
			MethodLLM:        0.5,
		},
	}
}

func (c ReportConfig) Validate() error {
	if c.VolatilityWindow < 2 {
		return &AggregationError{Reason: "volatility window must be >= 2"}
	}
	if c.EarlyN <= 0 || c.LateN <= 0 {
		return &AggregationError{Reason: "period sizes must be positive"}
	}
	if c.Bins < 1 {
		return &AggregationError{Reason: "bin count must be >= 1"}
	}
	if c.HighPercentile <= 0 || c.HighPercentile >= 100 {
		return &AggregationError{Reason: "high percentile must be in (0,100)"}
	}
	return nil
}

// PhaseCoverage states, per scoring method, how many entries were scored
// and how many were not. Reported explicitly so failed entries are never
// silently dropped from denominators.
type PhaseCoverage struct {
	Phase  AffectMethod `json:"phase"`
	Scored int          `json:"scored"`
	Failed int          `json:"failed"`
}

// VolatilitySummary condenses one rolling-volatility series: how many
// positions were defined and the mean and max over those.
type VolatilitySummary struct {
	Method   AffectMethod `json:"method"`
	Polarity Polarity     `json:"polarity"`
	Window   int          `json:"window"`
	Defined  int          `json:"defined"`
	Mean     float64      `json:"mean"`
	Max      float64      `json:"max"`
}

// PeriodComparison is one method+polarity early/late contrast. Overlap is
// true when the two windows share rows; it is surfaced, never silent.
type PeriodComparison struct {
	Method   AffectMethod `json:"method"`
	Polarity Polarity     `json:"polarity"`
	Early    Descriptive  `json:"early"`
	Late     Descriptive  `json:"late"`
	Overlap  bool         `json:"overlap"`
}

// MethodDescriptive is one method+polarity summary over a row subset.
type MethodDescriptive struct {
	Method   AffectMethod `json:"method"`
	Polarity Polarity     `json:"polarity"`
	Stats    Descriptive  `json:"stats"`
}

// ContextStats is the per-context-tag partition of a period subset.
type ContextStats struct {
	Tag    ContextTag          `json:"tag"`
	Period string              `json:"period"`
	Rows   int                 `json:"rows"`
	Stats  []MethodDescriptive `json:"stats"`
}

// MethodBins is one method+polarity temporal-bin breakdown.
type MethodBins struct {
	Method   AffectMethod `json:"method"`
	Polarity Polarity     `json:"polarity"`
	Bins     []BinStat    `json:"bins"`
}

// Report is the full aggregation output over one aligned table.
type Report struct {
	GeneratedAt  time.Time           `json:"generated_at"`
	TotalEntries int                 `json:"total_entries"`
	Coverage     []PhaseCoverage     `json:"coverage"`
	Volatility   []VolatilitySummary `json:"volatility"`
	Periods      []PeriodComparison  `json:"periods"`
	Contexts     []ContextStats      `json:"contexts"`
	Concordance  []ConcordanceReport `json:"concordance"`
	Bins         []MethodBins        `json:"bins"`
}

var allMethods = []AffectMethod{MethodLexicon, MethodClassifier, MethodLLM}
var allPolarities = []Polarity{PolarityPositive, PolarityNegative}

// Coverage counts scored vs unscored entries per method. A lexicon score
// always exists once Phase A ran; a missing classifier or LLM score means
// that phase failed for the entry.
func Coverage(rows []AlignedRow) []PhaseCoverage {
	out := make([]PhaseCoverage, 0, len(allMethods))
	for _, m := range allMethods {
		c := PhaseCoverage{Phase: m}
		for _, r := range rows {
			scored := false
			switch m {
			case MethodLexicon:
				scored = r.Lexicon != nil
			case MethodClassifier:
				scored = r.Classifier != nil
			case MethodLLM:
				scored = r.LLM != nil
			}
			if scored {
				c.Scored++
			} else {
				c.Failed++
			}
		}
		out = append(out, c)
	}
	return out
}

// BuildReport runs the full aggregation pass: coverage, rolling volatility,
// early/late periods, context partitions, concordance, and temporal bins.
// Missing scores propagate as nulls and shrink denominators; only structural
// violations fail the run.
func BuildReport(rows []AlignedRow, cfg ReportConfig) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	if len(rows) == 0 {
		return Report{}, &AggregationError{Reason: "empty aligned table"}
	}

	report := Report{
		GeneratedAt:  time.Now().UTC(),
		TotalEntries: len(rows),
		Coverage:     Coverage(rows),
	}

	early, late, overlap, err := SplitPeriods(rows, cfg.EarlyN, cfg.LateN)
	if err != nil {
		return Report{}, err
	}

	for _, m := range allMethods {
		threshold := cfg.Thresholds[m]
		for _, pol := range allPolarities {
			series := AffectSeries(rows, m, pol)

			vol, err := RollingVolatility(series, cfg.VolatilityWindow)
			if err != nil {
				return Report{}, err
			}
			report.Volatility = append(report.Volatility, summarizeVolatility(m, pol, cfg.VolatilityWindow, vol))

			report.Periods = append(report.Periods, PeriodComparison{
				Method:   m,
				Polarity: pol,
				Early:    Describe(AffectSeries(early, m, pol), threshold),
				Late:     Describe(AffectSeries(late, m, pol), threshold),
				Overlap:  overlap,
			})

			bins, err := BinMeans(series, cfg.Bins)
			if err != nil {
				return Report{}, err
			}
			report.Bins = append(report.Bins, MethodBins{Method: m, Polarity: pol, Bins: bins})
		}
	}

	for _, tag := range []ContextTag{ContextTherapeutic, ContextBanter} {
		for _, p := range []struct {
			name string
			rows []AlignedRow
		}{{"early", early}, {"late", late}} {
			tagged := FilterContext(p.rows, tag)
			if len(tagged) == 0 {
				continue
			}
			cs := ContextStats{Tag: tag, Period: p.name, Rows: len(tagged)}
			for _, m := range allMethods {
				for _, pol := range allPolarities {
					cs.Stats = append(cs.Stats, MethodDescriptive{
						Method:   m,
						Polarity: pol,
						Stats:    Describe(AffectSeries(tagged, m, pol), cfg.Thresholds[m]),
					})
				}
			}
			report.Contexts = append(report.Contexts, cs)
		}
	}

	for _, pol := range allPolarities {
		conc, err := Concordance(rows, pol, cfg.HighPercentile)
		if err != nil {
			return Report{}, err
		}
		report.Concordance = append(report.Concordance, conc)
	}

	return report, nil
}

func summarizeVolatility(m AffectMethod, pol Polarity, window int, vol []*float64) VolatilitySummary {
	s := VolatilitySummary{Method: m, Polarity: pol, Window: window}
	sum := 0.0
	for _, v := range vol {
		if v == nil {
			continue
		}
		s.Defined++
		sum += *v
		if *v > s.Max {
			s.Max = *v
		}
	}
	if s.Defined > 0 {
		s.Mean = sum / float64(s.Defined)
	}
	return s
}

// LLMRunSummary is the run-level execution record for the LLM phase.
type LLMRunSummary struct {
	RunID          string      `json:"run_id"`
	Model          string      `json:"model"`
	StartedAt      time.Time   `json:"started_at"`
	FinishedAt     time.Time   `json:"finished_at"`
	TotalEntries   int         `json:"total_entries"`
	Succeeded      int         `json:"succeeded"`
	Failed         int         `json:"failed"`
	Skipped        int         `json:"skipped"`
	RetryHistogram map[int]int `json:"retry_count_histogram"`
	PromptTemplate string      `json:"prompt_template"`
}

var alignedHeader = []string{
	"entry_index", "word_count", "context_tag",
	"anger", "anticipation", "disgust", "fear", "joy", "sadness", "surprise", "trust",
	"positive_affect_lex", "negative_affect_lex",
	"positive_rate_lex", "negative_rate_lex",
	"sadness_clf", "anxiety_clf", "anger_clf", "joy_clf", "calm_clf",
	"positive_affect_llm", "negative_affect_llm", "llm_attempts",
}

// WriteAlignedCSV writes the row-per-entry table with all score columns.
// Unscored cells are left empty, keeping "not scored" distinguishable from
// a zero score.
func WriteAlignedCSV(path string, rows []AlignedRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create aligned table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(alignedHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Entry.Index),
			strconv.Itoa(r.Entry.WordCount),
			string(r.Entry.ContextTag),
		}
		if r.Lexicon != nil {
			for _, c := range LexiconCategories {
				rec = append(rec, strconv.Itoa(r.Lexicon.Counts[c]))
			}
			rec = append(rec,
				strconv.Itoa(r.Lexicon.PositiveAffect),
				strconv.Itoa(r.Lexicon.NegativeAffect),
				formatRate(r.Lexicon.PositiveRate(r.Entry.WordCount)),
				formatRate(r.Lexicon.NegativeRate(r.Entry.WordCount)),
			)
		} else {
			rec = append(rec, make([]string, len(LexiconCategories)+4)...)
		}
		if r.Classifier != nil {
			for _, c := range ClassifierCategories {
				rec = append(rec, strconv.FormatFloat(r.Classifier.Probabilities[c], 'f', 6, 64))
			}
		} else {
			rec = append(rec, make([]string, len(ClassifierCategories))...)
		}
		if r.LLM != nil {
			rec = append(rec,
				strconv.FormatFloat(r.LLM.PositiveAffect, 'f', 4, 64),
				strconv.FormatFloat(r.LLM.NegativeAffect, 'f', 4, 64),
				strconv.Itoa(r.LLM.Attempts),
			)
		} else {
			rec = append(rec, "", "", "")
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write aligned table: %w", err)
	}
	return f.Sync()
}

func formatRate(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
