package trajectory

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Lexicon maps a lowercased word to the set of emotion categories it is
// associated with. Loaded once at startup, read-only afterwards.
type Lexicon map[string]map[string]bool

// LoadLexicon reads a word-level emotion lexicon in the tab-separated
// "word<TAB>category<TAB>flag" format, keeping rows whose flag is "1" and
// whose category is one of the eight emotion categories. The file's own
// polarity rows ("positive"/"negative") are skipped; polarity comes from the
// fixed category mapping instead.
func LoadLexicon(path string) (Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon %s: %w", path, err)
	}
	defer f.Close()
	return ReadLexicon(f)
}

// ReadLexicon is LoadLexicon over an already-open reader.
func ReadLexicon(r io.Reader) (Lexicon, error) {
	known := map[string]bool{}
	for _, c := range LexiconCategories {
		known[c] = true
	}

	lex := Lexicon{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		row := strings.TrimSpace(sc.Text())
		if row == "" || strings.HasPrefix(row, "#") {
			continue
		}
		parts := strings.Split(row, "\t")
		if len(parts) != 3 {
			return nil, fmt.Errorf("lexicon line %d: want 3 tab-separated fields, got %d", line, len(parts))
		}
		word := strings.ToLower(strings.TrimSpace(parts[0]))
		category := strings.ToLower(strings.TrimSpace(parts[1]))
		flag := strings.TrimSpace(parts[2])
		if flag != "1" || !known[category] {
			continue
		}
		if word == "" {
			return nil, fmt.Errorf("lexicon line %d: empty word", line)
		}
		cats := lex[word]
		if cats == nil {
			cats = map[string]bool{}
			lex[word] = cats
		}
		cats[category] = true
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	if len(lex) == 0 {
		return nil, fmt.Errorf("lexicon is empty after filtering")
	}
	return lex, nil
}

// LexiconScorer tags entry text word-by-word against a fixed lexicon.
// Deterministic: identical text always yields identical counts. Scoring
// never fails; empty text yields all-zero counts.
type LexiconScorer struct {
	lex Lexicon
}

func NewLexiconScorer(lex Lexicon) *LexiconScorer {
	return &LexiconScorer{lex: lex}
}

// Score tokenizes the entry text, looks each token up in the lexicon, and
// counts category hits. Matching is case-insensitive with punctuation
// stripped; words absent from the lexicon contribute to no category.
func (s *LexiconScorer) Score(e Entry) LexiconScore {
	counts := make(map[string]int, len(LexiconCategories))
	for _, c := range LexiconCategories {
		counts[c] = 0
	}
	for _, tok := range Tokenize(e.Text) {
		for cat := range s.lex[tok] {
			counts[cat]++
		}
	}

	score := LexiconScore{Index: e.Index, Counts: counts}
	for _, c := range PositiveCategories {
		score.PositiveAffect += counts[c]
	}
	for _, c := range NegativeCategories {
		score.NegativeAffect += counts[c]
	}
	return score
}

// Tokenize lowercases text and splits it into words of letters and
// apostrophes, discarding punctuation and digits.
func Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := strings.Trim(b.String(), "'")
		if tok != "" {
			tokens = append(tokens, tok)
		}
		b.Reset()
	}
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || r == '\'' || (r >= 'à' && r <= 'ÿ' && r != '÷') {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}
