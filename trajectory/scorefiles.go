package trajectory

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Score-stream interchange files. Each phase writes a row-per-entry CSV;
// the aligner reads them back. Failed LLM rows are written with empty score
// cells and a terminal status so coverage can be reconstructed from the
// file alone.

func WriteLexiconCSV(path string, scores []LexiconScore) error {
	header := append([]string{"entry_index"}, LexiconCategories...)
	header = append(header, "positive_affect", "negative_affect")
	return writeCSV(path, header, len(scores), func(i int) []string {
		s := scores[i]
		rec := []string{strconv.Itoa(s.Index)}
		for _, c := range LexiconCategories {
			rec = append(rec, strconv.Itoa(s.Counts[c]))
		}
		return append(rec, strconv.Itoa(s.PositiveAffect), strconv.Itoa(s.NegativeAffect))
	})
}

func ReadLexiconCSV(path string) ([]LexiconScore, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	col, err := columnIndex(header, append([]string{"entry_index", "positive_affect", "negative_affect"}, LexiconCategories...))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	scores := make([]LexiconScore, 0, len(rows))
	for n, rec := range rows {
		s := LexiconScore{Counts: make(map[string]int, len(LexiconCategories))}
		s.Index, err = atoiField(rec, col["entry_index"], "entry_index", n)
		if err != nil {
			return nil, err
		}
		for _, c := range LexiconCategories {
			s.Counts[c], err = atoiField(rec, col[c], c, n)
			if err != nil {
				return nil, err
			}
		}
		s.PositiveAffect, err = atoiField(rec, col["positive_affect"], "positive_affect", n)
		if err != nil {
			return nil, err
		}
		s.NegativeAffect, err = atoiField(rec, col["negative_affect"], "negative_affect", n)
		if err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, nil
}

func WriteClassifierCSV(path string, scores []ClassifierScore) error {
	header := append([]string{"entry_index"}, ClassifierCategories...)
	return writeCSV(path, header, len(scores), func(i int) []string {
		s := scores[i]
		rec := []string{strconv.Itoa(s.Index)}
		for _, c := range ClassifierCategories {
			rec = append(rec, strconv.FormatFloat(s.Probabilities[c], 'f', 6, 64))
		}
		return rec
	})
}

func ReadClassifierCSV(path string) ([]ClassifierScore, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	col, err := columnIndex(header, append([]string{"entry_index"}, ClassifierCategories...))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	scores := make([]ClassifierScore, 0, len(rows))
	for n, rec := range rows {
		s := ClassifierScore{Probabilities: make(map[string]float64, len(ClassifierCategories))}
		s.Index, err = atoiField(rec, col["entry_index"], "entry_index", n)
		if err != nil {
			return nil, err
		}
		for _, c := range ClassifierCategories {
			v, err := atofField(rec, col[c], c, n)
			if err != nil {
				return nil, err
			}
			s.Probabilities[c] = v
		}
		scores = append(scores, s)
	}
	return scores, nil
}

var llmHeader = []string{"entry_index", "positive_affect_llm", "negative_affect_llm", "model", "status", "attempts", "request_id"}

// LLMResultRow is one Phase C output row, including terminal failures.
type LLMResultRow struct {
	Index    int
	Score    *LLMScore
	Status   AttemptState
	Attempts int
}

func WriteLLMCSV(path string, rows []LLMResultRow) error {
	return writeCSV(path, llmHeader, len(rows), func(i int) []string {
		r := rows[i]
		rec := []string{strconv.Itoa(r.Index)}
		if r.Score != nil {
			rec = append(rec,
				strconv.FormatFloat(r.Score.PositiveAffect, 'f', 4, 64),
				strconv.FormatFloat(r.Score.NegativeAffect, 'f', 4, 64),
				r.Score.Model,
			)
		} else {
			rec = append(rec, "", "", "")
		}
		return append(rec, string(r.Status), strconv.Itoa(r.Attempts), requestID(r.Score))
	})
}

func requestID(s *LLMScore) string {
	if s == nil {
		return ""
	}
	return s.RequestID
}

// ReadLLMCSV returns only validated scores; failed rows are represented by
// their absence and surface as nulls after alignment.
func ReadLLMCSV(path string) ([]LLMScore, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	col, err := columnIndex(header, llmHeader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var scores []LLMScore
	for n, rec := range rows {
		status := AttemptState(strings.TrimSpace(rec[col["status"]]))
		if status != StateValidated {
			continue
		}
		s := LLMScore{Model: rec[col["model"]], RequestID: rec[col["request_id"]]}
		s.Index, err = atoiField(rec, col["entry_index"], "entry_index", n)
		if err != nil {
			return nil, err
		}
		s.PositiveAffect, err = atofField(rec, col["positive_affect_llm"], "positive_affect_llm", n)
		if err != nil {
			return nil, err
		}
		s.NegativeAffect, err = atofField(rec, col["negative_affect_llm"], "negative_affect_llm", n)
		if err != nil {
			return nil, err
		}
		s.Attempts, err = atoiField(rec, col["attempts"], "attempts", n)
		if err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, nil
}

func writeCSV(path string, header []string, n int, row func(int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Sync()
}

func readCSV(path string) ([][]string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s header: %w", path, err)
	}
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	return rows, header, nil
}

func columnIndex(header []string, want []string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range want {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return col, nil
}

func atoiField(rec []string, i int, name string, row int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(rec[i]))
	if err != nil {
		return 0, fmt.Errorf("row %d: bad %s %q", row+2, name, rec[i])
	}
	return v, nil
}

func atofField(rec []string, i int, name string, row int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	if err != nil {
		return 0, fmt.Errorf("row %d: bad %s %q", row+2, name, rec[i])
	}
	return v, nil
}
