// Package errors provides the coded errors licensecrawl reports to users.
//
// A [Code] lets the CLI pick an exit status and the HTTP API a response
// status without string matching. Per-package fetch failures never surface
// here since the resolver turns them into degraded records; codes describe
// run-level failures such as an unusable lockfile or a cancelled run.
//
//	err := errors.New(errors.ErrCodeInvalidLockfile, "unsupported lockfile: %s", path)
//	if errors.Is(err, errors.ErrCodeInvalidLockfile) {
//	    // Report and exit
//	}
//
//	err = errors.Wrap(errors.ErrCodeInvalidConfig, cause, "reading %s", path)
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Code represents a machine-readable error code.
type Code string

// Usage errors: the invocation or its inputs must change.
const (
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"
	ErrCodeInvalidLockfile Code = "INVALID_LOCKFILE"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
	ErrCodeNoSeeds         Code = "NO_SEEDS"
)

// Run errors.
const (
	ErrCodeTimeout         Code = "TIMEOUT"
	ErrCodeRunCancelled    Code = "RUN_CANCELLED"
	ErrCodePolicyViolation Code = "POLICY_VIOLATION"
	ErrCodeRateLimited     Code = "RATE_LIMITED"
	ErrCodeUnsupported     Code = "UNSUPPORTED"
)

// exitCodes lists the codes that do not exit with status 1.
var exitCodes = map[Code]int{
	ErrCodeRunCancelled:    130,
	ErrCodeInvalidInput:    2,
	ErrCodeInvalidConfig:   2,
	ErrCodeInvalidLockfile: 2,
	ErrCodeInvalidPath:     2,
	ErrCodeFileNotFound:    2,
	ErrCodeNoSeeds:         2,
}

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error renders "CODE: message: cause".
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.userMessage()
}

func (e *Error) userMessage() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + UserMessage(e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode returns the code of the outermost *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage renders err for people: the messages along the chain
// without their codes.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.userMessage()
	}
	return err.Error()
}

// ExitCode maps err to a process exit status: 0 for nil, 130 for a
// cancelled run, 2 for usage errors and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if status, ok := exitCodes[GetCode(err)]; ok {
		return status
	}
	return 1
}

// RateLimitedError reports that a registry refused a request for quota
// reasons.
type RateLimitedError struct {
	Host       string
	Status     int
	RetryAfter time.Duration // Zero when the server gave no hint
}

func (e *RateLimitedError) Error() string {
	msg := "rate limited"
	if e.Host != "" {
		msg = fmt.Sprintf("rate limited by %s (status %d)", e.Host, e.Status)
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(", retry after %s", e.RetryAfter)
	}
	return msg
}

// Code returns [ErrCodeRateLimited].
func (e *RateLimitedError) Code() Code { return ErrCodeRateLimited }
