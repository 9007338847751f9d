package trajectory

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildAffectPrompt_EmbedsText(t *testing.T) {
	t.Parallel()

	p := BuildAffectPrompt("felt lighter today")
	if !strings.Contains(p, "Text:\nfelt lighter today\n") {
		t.Fatalf("prompt missing embedded text:\n%s", p)
	}
	if !strings.Contains(p, `"positive_affect"`) || !strings.Contains(p, `"negative_affect"`) {
		t.Fatalf("prompt missing field definitions")
	}
}

func TestParseAffectResponse_Valid(t *testing.T) {
	t.Parallel()

	got, err := ParseAffectResponse(1, `{"positive_affect": 0.72, "negative_affect": 0.1}`)
	if err != nil {
		t.Fatalf("ParseAffectResponse: %v", err)
	}
	if got.PositiveAffect != 0.72 || got.NegativeAffect != 0.1 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseAffectResponse_WrappedInText(t *testing.T) {
	t.Parallel()

	got, err := ParseAffectResponse(1, "Here you go:\n{\"positive_affect\": 0.5, \"negative_affect\": 0.5}\nDone.")
	if err != nil {
		t.Fatalf("ParseAffectResponse: %v", err)
	}
	if got.PositiveAffect != 0.5 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseAffectResponse_SchemaErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"no json", "I feel fine"},
		{"missing field", `{"positive_affect": 0.5}`},
		{"out of range", `{"positive_affect": 1.5, "negative_affect": 0.2}`},
		{"negative", `{"positive_affect": -0.1, "negative_affect": 0.2}`},
		{"non numeric", `{"positive_affect": "high", "negative_affect": 0.2}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseAffectResponse(7, tc.in)
			var schemaErr *LLMSchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("err=%v, want LLMSchemaError", err)
			}
			if schemaErr.Index != 7 {
				t.Fatalf("Index=%d, want 7", schemaErr.Index)
			}
		})
	}
}
