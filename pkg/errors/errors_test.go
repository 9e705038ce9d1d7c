// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("connection refused")
	ge := New(CodeNetwork, "request failed", cause)

	if ge.Code != CodeNetwork {
		t.Errorf("expected CodeNetwork, got %v", ge.Code)
	}
	if ge.Message != "request failed" {
		t.Errorf("expected message 'request failed', got %q", ge.Message)
	}
	if ge.Err != cause {
		t.Errorf("expected cause to be preserved")
	}
	if !errors.Is(ge, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		ge       *Error
		expected string
	}{
		{
			name:     "with cause",
			ge:       New(CodeTimeout, "request timed out", errors.New("deadline exceeded")),
			expected: "[TIMEOUT] request timed out: deadline exceeded",
		},
		{
			name:     "without cause",
			ge:       New(CodeNotFound, "worker not found", nil),
			expected: "[NOT_FOUND] worker not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ge.Error()
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRecoverableByCode(t *testing.T) {
	tests := []struct {
		code        Code
		recoverable bool
	}{
		{CodeRateLimited, true},
		{CodeServer, true},
		{CodeNetwork, true},
		{CodeTimeout, true},
		{CodeAuthentication, false},
		{CodeValidation, false},
		{CodeState, false},
		{CodeConfiguration, false},
		{CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			ge := New(tt.code, "test", nil)
			if ge.Recoverable != tt.recoverable {
				t.Errorf("expected recoverable=%v for %s", tt.recoverable, tt.code)
			}
		})
	}
}

func TestFromStatusCode(t *testing.T) {
	tests := []struct {
		status   int
		expected Code
	}{
		{401, CodeAuthentication},
		{403, CodeAuthentication},
		{400, CodeValidation},
		{404, CodeNotFound},
		{429, CodeRateLimited},
		{500, CodeServer},
		{503, CodeServer},
	}

	for _, tt := range tests {
		ge := FromStatusCode(tt.status, "api error", nil)
		if ge.Code != tt.expected {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.expected, ge.Code)
		}
		if ge.StatusCode != tt.status {
			t.Errorf("status %d: expected status preserved, got %d", tt.status, ge.StatusCode)
		}
	}
}

func TestWithContext(t *testing.T) {
	ge := New(CodeValidation, "bad function args", nil)
	ge.WithContext("fn_name", "get_weather").
		WithContext("args", map[string]interface{}{"city": "Boston"})

	if ge.Context["fn_name"] != "get_weather" {
		t.Errorf("expected context fn_name to be 'get_weather'")
	}
	if ge.Context["args"] == nil {
		t.Errorf("expected context args to be set")
	}
}

func TestWithRecoverableOverride(t *testing.T) {
	ge := New(CodeValidation, "retry anyway", nil)
	if ge.Recoverable {
		t.Fatalf("validation errors should not be recoverable by default")
	}
	ge.WithRecoverable(true)
	if !ge.Recoverable {
		t.Errorf("expected recoverable true after override")
	}
}

func TestAsError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "already typed", err: New(CodeState, "bad state", nil), expected: CodeState},
		{name: "generic error", err: errors.New("boom"), expected: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ge := AsError(tt.err)
			if tt.expected == "" {
				if ge != nil {
					t.Errorf("expected nil for nil error")
				}
				return
			}
			if ge == nil {
				t.Fatalf("expected non-nil Error")
			}
			if ge.Code != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, ge.Code)
			}
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	if IsRecoverable(nil) {
		t.Errorf("nil is not recoverable")
	}
	if IsRecoverable(errors.New("plain")) {
		t.Errorf("plain errors are not recoverable")
	}
	if !IsRecoverable(New(CodeServer, "upstream", nil)) {
		t.Errorf("server errors are recoverable")
	}
}

func TestMarshalJSON(t *testing.T) {
	ge := New(CodeRateLimited, "throttled", errors.New("429")).
		WithContext("endpoint", "/v2/agents")

	data, err := json.Marshal(ge)
	if err != nil {
		t.Fatalf("unexpected error marshaling: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unexpected error unmarshaling: %v", err)
	}

	if result["code"] != "RATE_LIMITED" {
		t.Errorf("expected code 'RATE_LIMITED', got %v", result["code"])
	}
	if result["recoverable"] != true {
		t.Errorf("expected recoverable true")
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code     Code
		expected int
	}{
		{CodeNotFound, 404},
		{CodeAuthentication, 401},
		{CodeValidation, 400},
		{CodeTimeout, 408},
		{CodeRateLimited, 429},
		{CodeInternal, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			ge := New(tt.code, "test", nil)
			if ge.StatusCode != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, ge.StatusCode)
			}
		})
	}
}
