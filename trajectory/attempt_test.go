package trajectory

import (
	"testing"
	"time"
)

func TestAttemptMachine_ValidatedFirstTry(t *testing.T) {
	t.Parallel()

	m := NewAttemptMachine(DefaultRetryPolicy())
	n, err := m.Begin()
	if err != nil || n != 1 {
		t.Fatalf("Begin: n=%d err=%v", n, err)
	}
	state, delay, err := m.Observe(OutcomeValidated)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if state != StateValidated || delay != 0 {
		t.Fatalf("state=%s delay=%v", state, delay)
	}
	if !state.Terminal() {
		t.Fatalf("validated should be terminal")
	}
}

func TestAttemptMachine_TimeoutTwiceThenSuccess(t *testing.T) {
	t.Parallel()

	m := NewAttemptMachine(DefaultRetryPolicy())
	for i := 0; i < 2; i++ {
		if _, err := m.Begin(); err != nil {
			t.Fatalf("Begin %d: %v", i+1, err)
		}
		state, delay, err := m.Observe(OutcomeTransportFailed)
		if err != nil {
			t.Fatalf("Observe %d: %v", i+1, err)
		}
		if state != StatePending || delay <= 0 {
			t.Fatalf("attempt %d: state=%s delay=%v", i+1, state, delay)
		}
	}
	n, err := m.Begin()
	if err != nil {
		t.Fatalf("Begin 3: %v", err)
	}
	if n != 3 {
		t.Fatalf("attempt=%d, want 3", n)
	}
	if state, _, _ := m.Observe(OutcomeValidated); state != StateValidated {
		t.Fatalf("state=%s, want validated", state)
	}
	if m.Attempts != 3 {
		t.Fatalf("Attempts=%d, want 3", m.Attempts)
	}
}

func TestAttemptMachine_ExhaustsCapToFailed(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2}
	m := NewAttemptMachine(policy)
	for i := 0; i < 3; i++ {
		if _, err := m.Begin(); err != nil {
			t.Fatalf("Begin %d: %v", i+1, err)
		}
		state, _, err := m.Observe(OutcomeMalformed)
		if err != nil {
			t.Fatalf("Observe %d: %v", i+1, err)
		}
		if i < 2 && state != StatePending {
			t.Fatalf("attempt %d: state=%s, want pending", i+1, state)
		}
		if i == 2 && state != StateFailed {
			t.Fatalf("final state=%s, want failed", state)
		}
	}
	if _, err := m.Begin(); err == nil {
		t.Fatalf("Begin after terminal failed should error")
	}
}

func TestAttemptMachine_ObserveOutsideRequested(t *testing.T) {
	t.Parallel()

	m := NewAttemptMachine(DefaultRetryPolicy())
	if _, _, err := m.Observe(OutcomeValidated); err == nil {
		t.Fatalf("observe before begin should error")
	}
	if _, err := m.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := m.Begin(); err == nil {
		t.Fatalf("double begin should error")
	}
}

func TestRetryPolicy_DelayDoublesAndCaps(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 2 * time.Second, Multiplier: 2, MaxDelay: 10 * time.Second}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Fatalf("Delay(%d)=%v, want %v", i+1, got, w)
		}
	}
}

func TestRetryPolicy_Validate(t *testing.T) {
	t.Parallel()

	if err := DefaultRetryPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
	bad := []RetryPolicy{
		{MaxAttempts: 0, BaseDelay: time.Second, Multiplier: 2},
		{MaxAttempts: 3, BaseDelay: 0, Multiplier: 2},
		{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 0.5},
	}
	for i, p := range bad {
		if err := p.Validate(); err == nil {
			t.Fatalf("policy %d should be invalid", i)
		}
	}
}
