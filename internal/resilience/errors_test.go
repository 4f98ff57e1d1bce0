package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRateLimit(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status 429", &statusErr{status: 429}, true},
		{"wrapped status 429", fmt.Errorf("call failed: %w", &statusErr{status: 429}), true},
		{"status 500", &statusErr{status: 500}, false},
		{"message too many requests", errors.New("HTTP 429 Too Many Requests"), true},
		{"message rate limit", errors.New("rate limit exceeded"), true},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimit(tt.err); got != tt.want {
				t.Errorf("IsRateLimit(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status 503", &statusErr{status: 503}, true},
		{"status 404", &statusErr{status: 404}, false},
		{"i/o timeout message", errors.New("read tcp: i/o timeout"), true},
		{"dns message", errors.New("dial tcp: no such host"), true},
		{"plain", errors.New("invalid argument"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be non-transient", code)
		}
	}
}
