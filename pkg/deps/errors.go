package deps

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
)

// ErrNoSeeds is returned by [Resolver.Resolve] when there is nothing to resolve.
var ErrNoSeeds = apperr.New(apperr.ErrCodeNoSeeds, "no dependencies to resolve")

// ErrorKind classifies fetch failures. The kind decides whether the resolver
// retries and which [Status] a degraded record carries.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindNotFound
	KindRateLimited
	KindMalformed
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindMalformed:
		return "malformed"
	case KindCancelled:
		return "cancelled"
	default:
		return "transient"
	}
}

// Retryable reports whether a fetch failing with this kind may succeed later.
func (k ErrorKind) Retryable() bool {
	return k == KindTransient || k == KindRateLimited
}

// Status maps the kind onto the status of a degraded record.
func (k ErrorKind) Status() Status {
	switch k {
	case KindNotFound:
		return StatusNotFound
	case KindRateLimited:
		return StatusRateLimited
	case KindMalformed:
		return StatusMalformed
	case KindCancelled:
		return StatusCancelled
	default:
		return StatusTransient
	}
}

// FetchError is the error type returned by fetchers.
type FetchError struct {
	Kind       ErrorKind
	Identity   Identity
	RetryAfter time.Duration // Server-requested wait, zero if none
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Identity, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Identity, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError builds a FetchError for id.
func NewFetchError(kind ErrorKind, id Identity, err error) *FetchError {
	return &FetchError{Kind: kind, Identity: id, Err: err}
}

// KindOf classifies any error returned from a fetch. Context errors are
// reported as cancelled; errors of unknown shape are transient.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindTransient
}

func retryAfter(err error) time.Duration {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.RetryAfter
	}
	return 0
}
