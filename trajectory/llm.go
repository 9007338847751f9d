package trajectory

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AffectResponse is the constrained output shape for the LLM phase: exactly
// two floats, both in [0,1].
type AffectResponse struct {
	PositiveAffect float64 `json:"positive_affect"`
	NegativeAffect float64 `json:"negative_affect"`
}

const affectPromptTemplate = `You are performing a structured emotional labeling task.

Given the text below, return a JSON object with exactly two fields:
- "positive_affect": a float between 0 and 1
- "negative_affect": a float between 0 and 1

Definitions:
- positive_affect reflects expressions of joy, calm, trust, hope, or satisfaction.
- negative_affect reflects expressions of sadness, anxiety, anger, fear, or distress.

Text:
%s

Return JSON only. Do not include explanations, commentary, or additional fields.`

// BuildAffectPrompt embeds one entry's text into the fixed labeling prompt.
func BuildAffectPrompt(text string) string {
	return fmt.Sprintf(affectPromptTemplate, text)
}

// AffectPromptTemplate returns the fixed prompt, for run provenance records.
func AffectPromptTemplate() string {
	return affectPromptTemplate
}

// ParseAffectResponse decodes and validates a model response for one entry.
// It tolerates responses that wrap the JSON object in extra text, but an
// unparseable payload, a missing field, or an out-of-range value is an
// LLMSchemaError.
func ParseAffectResponse(index int, outputText string) (AffectResponse, error) {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return AffectResponse{}, &LLMSchemaError{Index: index, Reason: "empty response"}
	}

	var payload map[string]json.Number
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		// Fallback: extract the first top-level JSON object.
		start := strings.IndexByte(s, '{')
		end := strings.LastIndexByte(s, '}')
		if start == -1 || end == -1 || end <= start {
			return AffectResponse{}, &LLMSchemaError{Index: index, Reason: "no JSON object in response"}
		}
		if err := json.Unmarshal([]byte(s[start:end+1]), &payload); err != nil {
			return AffectResponse{}, &LLMSchemaError{Index: index, Reason: fmt.Sprintf("unparseable JSON: %v", err)}
		}
	}

	var resp AffectResponse
	for _, field := range []struct {
		name string
		dst  *float64
	}{
		{"positive_affect", &resp.PositiveAffect},
		{"negative_affect", &resp.NegativeAffect},
	} {
		raw, ok := payload[field.name]
		if !ok {
			return AffectResponse{}, &LLMSchemaError{Index: index, Reason: "missing field " + field.name}
		}
		v, err := raw.Float64()
		if err != nil {
			return AffectResponse{}, &LLMSchemaError{Index: index, Reason: fmt.Sprintf("%s is not a number: %q", field.name, raw.String())}
		}
		if v < 0 || v > 1 {
			return AffectResponse{}, &LLMSchemaError{Index: index, Reason: fmt.Sprintf("%s out of range: %g", field.name, v)}
		}
		*field.dst = v
	}
	return resp, nil
}
