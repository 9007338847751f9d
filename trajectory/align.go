package trajectory

import "fmt"

// Align equi-joins the three score streams with the corpus on entry index.
// Every corpus entry yields exactly one row; a score stream missing that
// index contributes a nil score, never a zero one. Unsorted or duplicated
// entries, duplicated score indices, and scores for an index absent from the
// corpus are AggregationErrors.
func Align(entries []Entry, lexicon []LexiconScore, classifier []ClassifierScore, llm []LLMScore) ([]AlignedRow, error) {
	if len(entries) == 0 {
		return nil, &AggregationError{Reason: "empty corpus"}
	}

	known := make(map[int]bool, len(entries))
	for i, e := range entries {
		if i > 0 && entries[i-1].Index >= e.Index {
			if entries[i-1].Index == e.Index {
				return nil, &AggregationError{Reason: fmt.Sprintf("duplicate entry index %d", e.Index)}
			}
			return nil, &AggregationError{Reason: fmt.Sprintf("entries unsorted at index %d", e.Index)}
		}
		known[e.Index] = true
	}

	lexByIndex := make(map[int]*LexiconScore, len(lexicon))
	for i := range lexicon {
		s := &lexicon[i]
		if err := checkScoreIndex("lexicon", s.Index, known, lexByIndex[s.Index] != nil); err != nil {
			return nil, err
		}
		lexByIndex[s.Index] = s
	}
	clsByIndex := make(map[int]*ClassifierScore, len(classifier))
	for i := range classifier {
		s := &classifier[i]
		if err := checkScoreIndex("classifier", s.Index, known, clsByIndex[s.Index] != nil); err != nil {
			return nil, err
		}
		clsByIndex[s.Index] = s
	}
	llmByIndex := make(map[int]*LLMScore, len(llm))
	for i := range llm {
		s := &llm[i]
		if err := checkScoreIndex("llm", s.Index, known, llmByIndex[s.Index] != nil); err != nil {
			return nil, err
		}
		llmByIndex[s.Index] = s
	}

	rows := make([]AlignedRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, AlignedRow{
			Entry:      e,
			Lexicon:    lexByIndex[e.Index],
			Classifier: clsByIndex[e.Index],
			LLM:        llmByIndex[e.Index],
		})
	}
	return rows, nil
}

func checkScoreIndex(stream string, index int, known map[int]bool, dup bool) error {
	if dup {
		return &AggregationError{Reason: fmt.Sprintf("duplicate %s score for entry %d", stream, index)}
	}
	if !known[index] {
		return &AggregationError{Reason: fmt.Sprintf("%s score for unknown entry %d", stream, index)}
	}
	return nil
}
