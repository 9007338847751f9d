package trajectory

import (
	"fmt"
	"math"
	"sort"
)

// PairConcordance is the agreement between two methods over the rows all
// three methods scored: the fraction of rows where their high-affect flags
// match, the count both flagged high, and the Pearson correlation of the
// underlying values.
type PairConcordance struct {
	MethodA     AffectMethod `json:"method_a"`
	MethodB     AffectMethod `json:"method_b"`
	Agreement   float64      `json:"agreement"`
	BothHigh    int          `json:"both_high"`
	Correlation float64      `json:"correlation"`
}

// ConcordanceReport is the qualitative cross-method comparison for one
// polarity: pairwise agreement over rows present in all three streams.
// Deliberately not collapsed to a single scalar.
type ConcordanceReport struct {
	Polarity       Polarity           `json:"polarity"`
	N              int                `json:"n"`
	HighPercentile float64            `json:"high_percentile"`
	Cutoffs        map[string]float64 `json:"cutoffs"`
	Pairs          []PairConcordance  `json:"pairs"`
}

var concordancePairs = [][2]AffectMethod{
	{MethodLexicon, MethodClassifier},
	{MethodLexicon, MethodLLM},
	{MethodClassifier, MethodLLM},
}

// Concordance binarizes each method's affect series at that method's own
// percentile cutoff and reports pairwise agreement plus correlation. Only
// rows scored by all three methods (with a defined lexicon rate) enter the
// comparison; highPercentile is in (0,100).
func Concordance(rows []AlignedRow, pol Polarity, highPercentile float64) (ConcordanceReport, error) {
	if highPercentile <= 0 || highPercentile >= 100 {
		return ConcordanceReport{}, &AggregationError{
			Reason: fmt.Sprintf("high percentile must be in (0,100), got %g", highPercentile),
		}
	}

	series := map[AffectMethod][]*float64{
		MethodLexicon:    AffectSeries(rows, MethodLexicon, pol),
		MethodClassifier: AffectSeries(rows, MethodClassifier, pol),
		MethodLLM:        AffectSeries(rows, MethodLLM, pol),
	}

	// Restrict to rows every method scored.
	var complete []int
	for i := range rows {
		if series[MethodLexicon][i] != nil && series[MethodClassifier][i] != nil && series[MethodLLM][i] != nil {
			complete = append(complete, i)
		}
	}

	report := ConcordanceReport{
		Polarity:       pol,
		N:              len(complete),
		HighPercentile: highPercentile,
		Cutoffs:        map[string]float64{},
	}
	if len(complete) == 0 {
		return report, nil
	}

	values := map[AffectMethod][]float64{}
	high := map[AffectMethod][]bool{}
	for method, s := range series {
		vals := make([]float64, 0, len(complete))
		for _, i := range complete {
			vals = append(vals, *s[i])
		}
		cutoff := percentile(vals, highPercentile)
		flags := make([]bool, len(vals))
		for i, v := range vals {
			flags[i] = v > cutoff
		}
		values[method] = vals
		high[method] = flags
		report.Cutoffs[string(method)] = cutoff
	}

	for _, pair := range concordancePairs {
		a, b := pair[0], pair[1]
		agree, bothHigh := 0, 0
		for i := range complete {
			if high[a][i] == high[b][i] {
				agree++
			}
			if high[a][i] && high[b][i] {
				bothHigh++
			}
		}
		report.Pairs = append(report.Pairs, PairConcordance{
			MethodA:     a,
			MethodB:     b,
			Agreement:   float64(agree) / float64(len(complete)),
			BothHigh:    bothHigh,
			Correlation: pearson(values[a], values[b]),
		})
	}
	return report, nil
}

// percentile is the nearest-rank percentile of the values.
func percentile(values []float64, pct float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := int(math.Ceil(pct / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// pearson is the Pearson correlation coefficient; 0 when either side has
// zero variance.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n
	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
