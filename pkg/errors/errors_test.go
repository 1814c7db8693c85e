package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorRendering(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	inner := Wrap(ErrCodeInvalidLockfile, cause, "parsing package-lock.json")
	outer := fmt.Errorf("scan: %w", inner)

	tests := []struct {
		name string
		err  error
		msg  string
		user string
	}{
		{"plain", New(ErrCodeNoSeeds, "no dependencies in %s", "app"), "NO_SEEDS: no dependencies in app", "no dependencies in app"},
		{"wrapped", inner, "INVALID_LOCKFILE: parsing package-lock.json: unexpected end of JSON input", "parsing package-lock.json: unexpected end of JSON input"},
		{"nested codes", Wrap(ErrCodeInvalidConfig, New(ErrCodeInvalidInput, "bad URL"), "config"), "INVALID_CONFIG: config: bad URL", "config: bad URL"},
		{"foreign wrapper", outer, "scan: INVALID_LOCKFILE: parsing package-lock.json: unexpected end of JSON input", "parsing package-lock.json: unexpected end of JSON input"},
		{"not coded", cause, cause.Error(), cause.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.msg {
				t.Errorf("Error() = %q, want %q", got, tt.msg)
			}
			if got := UserMessage(tt.err); got != tt.user {
				t.Errorf("UserMessage() = %q, want %q", got, tt.user)
			}
		})
	}

	if !errors.Is(outer, cause) {
		t.Error("errors.Is should reach the cause")
	}
}

func TestIsAndGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		is   Code
		want bool
	}{
		{"matching", New(ErrCodeInvalidInput, "x"), ErrCodeInvalidInput, ErrCodeInvalidInput, true},
		{"other code", New(ErrCodeInvalidInput, "x"), ErrCodeInvalidInput, ErrCodeTimeout, false},
		{"outermost wins", Wrap(ErrCodeTimeout, New(ErrCodeInvalidInput, "inner"), "outer"), ErrCodeTimeout, ErrCodeTimeout, true},
		{"through fmt wrap", fmt.Errorf("ctx: %w", New(ErrCodeRunCancelled, "x")), ErrCodeRunCancelled, ErrCodeRunCancelled, true},
		{"through join", errors.Join(errors.New("a"), New(ErrCodeRunCancelled, "x")), ErrCodeRunCancelled, ErrCodeRunCancelled, true},
		{"plain", errors.New("plain"), "", ErrCodeInvalidInput, false},
		{"nil", nil, "", ErrCodeInvalidInput, false},
		{"empty code never matches", errors.New("plain"), "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.code {
				t.Errorf("GetCode() = %q, want %q", got, tt.code)
			}
			if got := Is(tt.err, tt.is); got != tt.want {
				t.Errorf("Is(%q) = %v, want %v", tt.is, got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"cancelled", Wrap(ErrCodeRunCancelled, errors.New("context canceled"), "scan interrupted"), 130},
		{"no seeds", New(ErrCodeNoSeeds, "empty lockfile"), 2},
		{"bad config", New(ErrCodeInvalidConfig, "bad"), 2},
		{"missing path", New(ErrCodeInvalidPath, "path not found"), 2},
		{"timeout", New(ErrCodeTimeout, "deadline"), 1},
		{"policy", New(ErrCodePolicyViolation, "2 violations"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRateLimitedError(t *testing.T) {
	tests := []struct {
		err  *RateLimitedError
		want string
	}{
		{&RateLimitedError{}, "rate limited"},
		{&RateLimitedError{RetryAfter: time.Minute}, "rate limited, retry after 1m0s"},
		{&RateLimitedError{Host: "api.github.com", Status: 403, RetryAfter: 30 * time.Second}, "rate limited by api.github.com (status 403), retry after 30s"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
		if tt.err.Code() != ErrCodeRateLimited {
			t.Errorf("Code() = %v", tt.err.Code())
		}
	}
}
