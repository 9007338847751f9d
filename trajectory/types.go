package trajectory

import "time"

// ContextTag labels the conversational register an entry was assigned by the
// upstream annotation pass. Entries may arrive untagged.
type ContextTag string

const (
	ContextNone        ContextTag = ""
	ContextTherapeutic ContextTag = "therapeutic"
	ContextBanter      ContextTag = "banter"
)

// Entry is one subject-authored text unit with a stable index. Entries are
// created once at load time and never mutated.
type Entry struct {
	Index      int        `json:"entry_index"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	Text       string     `json:"text"`
	WordCount  int        `json:"word_count"`
	ContextTag ContextTag `json:"context_tag,omitempty"`
}

// LexiconCategories is the fixed closed set of word-lexicon emotion categories.
var LexiconCategories = []string{
	"anger", "anticipation", "disgust", "fear",
	"joy", "sadness", "surprise", "trust",
}

// PositiveCategories and NegativeCategories are the fixed category→polarity
// mapping used to derive aggregate affect counts.
var (
	PositiveCategories = []string{"joy", "trust", "anticipation", "surprise"}
	NegativeCategories = []string{"anger", "disgust", "fear", "sadness"}
)

// LexiconScore holds per-category word hit counts for one entry plus the
// derived polarity aggregates. Aggregates are exact integer sums of their
// constituent category counts.
type LexiconScore struct {
	Index  int            `json:"entry_index"`
	Counts map[string]int `json:"counts"`

	PositiveAffect int `json:"positive_affect"`
	NegativeAffect int `json:"negative_affect"`
}

// PositiveRate and NegativeRate normalize the aggregate counts by the entry's
// word count, so message length does not confound trajectory statistics.
// The second return is false when the entry had no words.
func (s LexiconScore) PositiveRate(wordCount int) (float64, bool) {
	if wordCount <= 0 {
		return 0, false
	}
	return float64(s.PositiveAffect) / float64(wordCount), true
}

func (s LexiconScore) NegativeRate(wordCount int) (float64, bool) {
	if wordCount <= 0 {
		return 0, false
	}
	return float64(s.NegativeAffect) / float64(wordCount), true
}

// ClassifierCategories is the fixed closed set of classifier output
// dimensions after the collapse map is applied.
var ClassifierCategories = []string{"sadness", "anxiety", "anger", "joy", "calm"}

// ClassifierScore holds independent per-category probabilities for one entry.
// The heads are multi-label: probabilities need not sum to 1.
type ClassifierScore struct {
	Index         int                `json:"entry_index"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// PositiveSum and NegativeSum collapse the five probability heads into the
// two composite affect dimensions used for trajectory comparison.
func (s ClassifierScore) PositiveSum() float64 {
	return s.Probabilities["joy"] + s.Probabilities["calm"]
}

func (s ClassifierScore) NegativeSum() float64 {
	return s.Probabilities["sadness"] + s.Probabilities["anxiety"] + s.Probabilities["anger"]
}

// LLMScore is the model-inferred affect pair for one entry, emitted only
// after schema validation succeeds.
type LLMScore struct {
	Index          int     `json:"entry_index"`
	PositiveAffect float64 `json:"positive_affect"`
	NegativeAffect float64 `json:"negative_affect"`

	RequestID string `json:"request_id,omitempty"`
	Attempts  int    `json:"attempts"`
	Model     string `json:"model,omitempty"`
}

// AlignedRow joins one entry with its three phase scores. A nil score means
// "not scored", which downstream statistics must distinguish from a zero
// score ("no affect detected").
type AlignedRow struct {
	Entry      Entry            `json:"entry"`
	Lexicon    *LexiconScore    `json:"lexicon,omitempty"`
	Classifier *ClassifierScore `json:"classifier,omitempty"`
	LLM        *LLMScore        `json:"llm,omitempty"`
}

// Complete reports whether all three methods scored this row.
func (r AlignedRow) Complete() bool {
	return r.Lexicon != nil && r.Classifier != nil && r.LLM != nil
}
