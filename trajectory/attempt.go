package trajectory

import (
	"fmt"
	"time"
)

// AttemptState is the per-entry scoring state for the LLM phase.
type AttemptState string

const (
	StatePending         AttemptState = "pending"
	StateRequested       AttemptState = "requested"
	StateValidated       AttemptState = "validated"
	StateMalformed       AttemptState = "malformed"
	StateTransportFailed AttemptState = "transport_failed"
	StateFailed          AttemptState = "failed"
)

// Terminal reports whether no further attempts may be made from this state.
func (s AttemptState) Terminal() bool {
	return s == StateValidated || s == StateFailed
}

// AttemptOutcome is what one completed request attempt observed.
type AttemptOutcome string

const (
	OutcomeValidated       AttemptOutcome = "validated"
	OutcomeMalformed       AttemptOutcome = "malformed"
	OutcomeTransportFailed AttemptOutcome = "transport_failed"
)

// RetryPolicy bounds the attempt loop: a base delay grown by a fixed
// multiplier per retry, a delay cap, and a hard attempt cap.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		Multiplier:  2,
		MaxDelay:    60 * time.Second,
	}
}

func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: max attempts must be >= 1")
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("retry policy: base delay must be positive")
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("retry policy: multiplier must be >= 1")
	}
	return nil
}

// Delay returns how long to wait before attempt n+1, given that attempt n
// (1-based) just failed: BaseDelay * Multiplier^(n-1), capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	delay := time.Duration(d)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// AttemptMachine drives one entry through the bounded retry state machine.
// Transitions are pure; the caller owns the clock and the actual request.
type AttemptMachine struct {
	Policy   RetryPolicy
	State    AttemptState
	Attempts int
}

func NewAttemptMachine(policy RetryPolicy) *AttemptMachine {
	return &AttemptMachine{Policy: policy, State: StatePending}
}

// Begin moves pending → requested and counts the attempt. It fails if the
// machine is terminal or a request is already in flight.
func (m *AttemptMachine) Begin() (int, error) {
	if m.State.Terminal() {
		return 0, fmt.Errorf("attempt machine: begin from terminal state %s", m.State)
	}
	if m.State == StateRequested {
		return 0, fmt.Errorf("attempt machine: request already in flight")
	}
	m.Attempts++
	m.State = StateRequested
	return m.Attempts, nil
}

// Observe applies the outcome of the in-flight attempt. Validated is
// terminal; malformed and transport failures return to pending with a
// backoff delay until the attempt cap is exhausted, then the machine
// terminates in failed. The returned delay is zero for terminal states.
func (m *AttemptMachine) Observe(outcome AttemptOutcome) (AttemptState, time.Duration, error) {
	if m.State != StateRequested {
		return m.State, 0, fmt.Errorf("attempt machine: observe outside requested state (%s)", m.State)
	}
	switch outcome {
	case OutcomeValidated:
		m.State = StateValidated
		return m.State, 0, nil
	case OutcomeMalformed:
		m.State = StateMalformed
	case OutcomeTransportFailed:
		m.State = StateTransportFailed
	default:
		return m.State, 0, fmt.Errorf("attempt machine: unknown outcome %q", outcome)
	}

	if m.Attempts >= m.Policy.MaxAttempts {
		m.State = StateFailed
		return m.State, 0, nil
	}
	delay := m.Policy.Delay(m.Attempts)
	m.State = StatePending
	return m.State, delay, nil
}

// AttemptRecord is one audit-log row: exactly one per issued request.
type AttemptRecord struct {
	Index      int            `json:"entry_index"`
	Attempt    int            `json:"attempt_number"`
	Outcome    AttemptOutcome `json:"outcome"`
	Timestamp  time.Time      `json:"timestamp"`
	RequestID  string         `json:"request_id,omitempty"`
	RawPayload string         `json:"raw_payload,omitempty"`
	Error      string         `json:"error,omitempty"`
}
