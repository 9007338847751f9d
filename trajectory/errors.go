package trajectory

import "fmt"

// LoadError reports malformed or conflicting corpus input. Run-fatal.
type LoadError struct {
	Line   int
	Index  int
	Reason string
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("corpus load: line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("corpus load: entry %d: %s", e.Index, e.Reason)
}

// ClassifierError reports a contract violation by the classifier backend:
// a failed call, a wrong label set, or an out-of-range probability. Recorded
// as a null score for the entry, never retried at this layer.
type ClassifierError struct {
	Index  int
	Reason string
	Err    error
}

func (e *ClassifierError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classifier: entry %d: %s: %v", e.Index, e.Reason, e.Err)
	}
	return fmt.Sprintf("classifier: entry %d: %s", e.Index, e.Reason)
}

func (e *ClassifierError) Unwrap() error { return e.Err }

// LLMTransportError is a network-level or timeout failure of a completion
// request. Retryable.
type LLMTransportError struct {
	Index int
	Err   error
}

func (e *LLMTransportError) Error() string {
	return fmt.Sprintf("llm transport: entry %d: %v", e.Index, e.Err)
}

func (e *LLMTransportError) Unwrap() error { return e.Err }

// LLMSchemaError is a completion response that failed schema validation:
// unparseable JSON, missing fields, or out-of-range values. Retryable up to
// the attempt cap, then terminal.
type LLMSchemaError struct {
	Index  int
	Reason string
}

func (e *LLMSchemaError) Error() string {
	return fmt.Sprintf("llm schema: entry %d: %s", e.Index, e.Reason)
}

// AggregationError reports a structural invariant violation in the aligned
// input (duplicate index, unsorted rows, empty row set where a result is
// required). Non-retryable, fatal to the run.
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string {
	return "aggregation: " + e.Reason
}
