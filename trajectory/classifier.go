package trajectory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Classifier is the black-box probabilistic classification capability: one
// call per text, returning a probability per fine-grained emotion label.
type Classifier interface {
	Classify(ctx context.Context, text string) (map[string]float64, error)
}

// CollapseMap folds the classifier's fine-grained labels into the five
// canonical categories by averaging the mapped label probabilities. Labels
// the backend does not emit are simply absent from the average.
var CollapseMap = map[string][]string{
	"sadness": {"sadness", "grief"},
	"anxiety": {"fear", "nervousness"},
	"anger":   {"anger", "annoyance"},
	"joy":     {"joy", "excitement"},
	"calm":    {"relief", "contentment"},
}

// ClassifierScorer wraps a Classifier with contract validation and the
// collapse map. No retry at this layer; the backend is assumed locally fast
// and reliable.
type ClassifierScorer struct {
	backend Classifier
}

func NewClassifierScorer(backend Classifier) *ClassifierScorer {
	return &ClassifierScorer{backend: backend}
}

// Score classifies one entry. A failed call, an out-of-range probability, or
// a label set that covers none of a canonical category's source labels is a
// ClassifierError; probabilities are validated, never clamped.
func (s *ClassifierScorer) Score(ctx context.Context, e Entry) (ClassifierScore, error) {
	raw, err := s.backend.Classify(ctx, e.Text)
	if err != nil {
		return ClassifierScore{}, &ClassifierError{Index: e.Index, Reason: "backend call failed", Err: err}
	}
	for label, p := range raw {
		if p < 0 || p > 1 {
			return ClassifierScore{}, &ClassifierError{
				Index:  e.Index,
				Reason: fmt.Sprintf("probability out of range: %s=%g", label, p),
			}
		}
	}

	probs := make(map[string]float64, len(ClassifierCategories))
	for _, dim := range ClassifierCategories {
		sum := 0.0
		n := 0
		for _, label := range CollapseMap[dim] {
			if p, ok := raw[label]; ok {
				sum += p
				n++
			}
		}
		if n == 0 {
			return ClassifierScore{}, &ClassifierError{
				Index:  e.Index,
				Reason: fmt.Sprintf("backend emitted no source labels for %q", dim),
			}
		}
		probs[dim] = sum / float64(n)
	}
	return ClassifierScore{Index: e.Index, Probabilities: probs}, nil
}

// HTTPClassifier calls a local model server: POST {"text": ...} to the
// configured URL, expecting {"scores": {label: probability, ...}} back.
type HTTPClassifier struct {
	URL    string
	Client *http.Client
}

func NewHTTPClassifier(url string) *HTTPClassifier {
	return &HTTPClassifier{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, text string) (map[string]float64, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classifier server: status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}

	var out struct {
		Scores map[string]float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}
	if len(out.Scores) == 0 {
		return nil, fmt.Errorf("classifier server: empty scores")
	}
	return out.Scores, nil
}
