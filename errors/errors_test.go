package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestError_StringIncludesCodeAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Connection(cause)

	got := err.Error()
	want := "CONNECTION_ERROR: connection failed (cause: connection refused)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Network(cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestCircuitOpen_CarriesBreakerName(t *testing.T) {
	err := CircuitOpen("payments")

	if err.Details["breaker"] != "payments" {
		t.Errorf("expected breaker detail, got %v", err.Details)
	}
	if !IsCircuitOpen(err) {
		t.Error("expected IsCircuitOpen to be true")
	}
	if IsRetryable(err) {
		t.Error("circuit open must not be retryable")
	}
}

func TestRetryTimeout_CarriesElapsed(t *testing.T) {
	err := RetryTimeout(1500*time.Millisecond, time.Second)

	if !IsRetryTimeout(err) {
		t.Error("expected IsRetryTimeout to be true")
	}
	if err.Details["elapsed"] != 1500*time.Millisecond {
		t.Errorf("expected elapsed detail, got %v", err.Details["elapsed"])
	}
}

func TestIs_MatchesWrappedErrors(t *testing.T) {
	inner := Timeout("GET /users", nil)
	wrapped := fmt.Errorf("attempt 3: %w", inner)

	if !Is(wrapped, ErrCodeTimeout) {
		t.Error("expected wrapped error to match TIMEOUT")
	}
	if Is(wrapped, ErrCodeNetwork) {
		t.Error("wrapped error must not match NETWORK_ERROR")
	}
}

func TestIsRetryableCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeTimeout, true},
		{ErrCodeNetwork, true},
		{ErrCodeConnection, true},
		{ErrCodeCircuitOpen, false},
		{ErrCodePluginNotFound, false},
	}
	for _, tt := range tests {
		if got := IsRetryableCode(tt.code); got != tt.want {
			t.Errorf("IsRetryableCode(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestWithDetail_Chains(t *testing.T) {
	err := New(ErrCodeInvalidConfig, "bad threshold").
		WithDetail("field", "failure_threshold").
		WithDetail("value", 1.5)

	if err.Details["field"] != "failure_threshold" {
		t.Errorf("expected field detail, got %v", err.Details)
	}
	if err.Details["value"] != 1.5 {
		t.Errorf("expected value detail, got %v", err.Details)
	}
}

func TestCodeOf_NonTypedError(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("expected empty code, got %s", got)
	}
}
