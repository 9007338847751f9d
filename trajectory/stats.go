package trajectory

import (
	"fmt"
	"math"
)

// AffectMethod names one of the three scoring methods.
type AffectMethod string

const (
	MethodLexicon    AffectMethod = "lexicon"
	MethodClassifier AffectMethod = "classifier"
	MethodLLM        AffectMethod = "llm"
)

// Polarity picks one of the two composite affect dimensions.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// AffectSeries extracts one method's affect values across the rows, in row
// order. Unscored rows yield nil, as do lexicon rows with no words (a rate
// needs a denominator). Nil is "not scored", distinct from zero.
func AffectSeries(rows []AlignedRow, method AffectMethod, pol Polarity) []*float64 {
	out := make([]*float64, len(rows))
	for i, row := range rows {
		switch method {
		case MethodLexicon:
			if row.Lexicon == nil {
				continue
			}
			var v float64
			var ok bool
			if pol == PolarityPositive {
				v, ok = row.Lexicon.PositiveRate(row.Entry.WordCount)
			} else {
				v, ok = row.Lexicon.NegativeRate(row.Entry.WordCount)
			}
			if ok {
				out[i] = ptr(v)
			}
		case MethodClassifier:
			if row.Classifier == nil {
				continue
			}
			if pol == PolarityPositive {
				out[i] = ptr(row.Classifier.PositiveSum())
			} else {
				out[i] = ptr(row.Classifier.NegativeSum())
			}
		case MethodLLM:
			if row.LLM == nil {
				continue
			}
			if pol == PolarityPositive {
				out[i] = ptr(row.LLM.PositiveAffect)
			} else {
				out[i] = ptr(row.LLM.NegativeAffect)
			}
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }

// RollingVolatility computes the sample variance (n-1 denominator) of the
// trailing window of w values at each position. The first w-1 positions are
// undefined (nil, not zero), as is any position whose window contains an
// unscored value. Pure: identical input yields bit-identical output.
func RollingVolatility(series []*float64, w int) ([]*float64, error) {
	if w < 2 {
		return nil, &AggregationError{Reason: fmt.Sprintf("volatility window must be >= 2, got %d", w)}
	}
	out := make([]*float64, len(series))
	for i := w - 1; i < len(series); i++ {
		window := series[i-w+1 : i+1]
		sum := 0.0
		defined := true
		for _, v := range window {
			if v == nil {
				defined = false
				break
			}
			sum += *v
		}
		if !defined {
			continue
		}
		mean := sum / float64(w)
		ss := 0.0
		for _, v := range window {
			d := *v - mean
			ss += d * d
		}
		out[i] = ptr(ss / float64(w-1))
	}
	return out, nil
}

// Descriptive holds per-subset summary statistics for one affect series.
// N counts only scored values; unscored rows are excluded from every
// denominator rather than treated as zero.
type Descriptive struct {
	N         int     `json:"n"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Threshold float64 `json:"threshold"`
	PctAbove  float64 `json:"pct_above_threshold"`
}

// Describe summarizes the scored values of a series: mean, sample standard
// deviation, and the percentage of values strictly above the threshold.
func Describe(series []*float64, threshold float64) Descriptive {
	d := Descriptive{Threshold: threshold}
	sum := 0.0
	above := 0
	for _, v := range series {
		if v == nil {
			continue
		}
		d.N++
		sum += *v
		if *v > threshold {
			above++
		}
	}
	if d.N == 0 {
		return d
	}
	d.Mean = sum / float64(d.N)
	if d.N > 1 {
		ss := 0.0
		for _, v := range series {
			if v == nil {
				continue
			}
			diff := *v - d.Mean
			ss += diff * diff
		}
		d.StdDev = math.Sqrt(ss / float64(d.N-1))
	}
	d.PctAbove = float64(above) / float64(d.N) * 100
	return d
}

// SplitPeriods takes the first earlyN and last lateN rows by position
// (index-value gaps do not matter). Overlapping windows are legal but must
// be surfaced, never silent: the overlap flag is true when the two windows
// share rows.
func SplitPeriods(rows []AlignedRow, earlyN, lateN int) (early, late []AlignedRow, overlap bool, err error) {
	if earlyN <= 0 || lateN <= 0 {
		return nil, nil, false, &AggregationError{Reason: "period sizes must be positive"}
	}
	if earlyN > len(rows) || lateN > len(rows) {
		return nil, nil, false, &AggregationError{
			Reason: fmt.Sprintf("period sizes %d/%d exceed row count %d", earlyN, lateN, len(rows)),
		}
	}
	early = rows[:earlyN]
	late = rows[len(rows)-lateN:]
	overlap = earlyN+lateN > len(rows)
	return early, late, overlap, nil
}

// FilterContext keeps only rows whose entry carries the given context tag.
func FilterContext(rows []AlignedRow, tag ContextTag) []AlignedRow {
	var out []AlignedRow
	for _, r := range rows {
		if r.Entry.ContextTag == tag {
			out = append(out, r)
		}
	}
	return out
}

// BinStat is one temporal bin's summary: the half-open row-position range
// [Start, End) it covers and the mean of the scored values inside it.
type BinStat struct {
	Bin   int      `json:"bin"`
	Start int      `json:"start"`
	End   int      `json:"end"`
	N     int      `json:"n"`
	Mean  *float64 `json:"mean,omitempty"`
}

// BinMeans divides the series into k consecutive bins whose sizes differ by
// at most one and together cover every position exactly once, then averages
// the scored values per bin. A bin with no scored values has a nil mean.
func BinMeans(series []*float64, k int) ([]BinStat, error) {
	if k < 1 {
		return nil, &AggregationError{Reason: fmt.Sprintf("bin count must be >= 1, got %d", k)}
	}
	if k > len(series) {
		return nil, &AggregationError{Reason: fmt.Sprintf("bin count %d exceeds series length %d", k, len(series))}
	}
	bins := make([]BinStat, 0, k)
	n := len(series)
	for b := 0; b < k; b++ {
		start := b * n / k
		end := (b + 1) * n / k
		stat := BinStat{Bin: b + 1, Start: start, End: end}
		sum := 0.0
		for _, v := range series[start:end] {
			if v == nil {
				continue
			}
			stat.N++
			sum += *v
		}
		if stat.N > 0 {
			stat.Mean = ptr(sum / float64(stat.N))
		}
		bins = append(bins, stat)
	}
	return bins, nil
}
