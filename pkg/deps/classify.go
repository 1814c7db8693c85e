package deps

import (
	"context"
	"errors"
	"sort"

	"github.com/matzehuels/licensecrawl/pkg/cache"
	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
	"github.com/matzehuels/licensecrawl/pkg/integrations"
)

// Classify converts an error from a pkg/integrations client into a
// [*FetchError] for id. Errors that already are FetchErrors pass through.
//
// Client-side 4xx responses other than 404 and rate limits cannot be fixed
// by retrying and are reported as malformed.
func Classify(id Identity, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}

	var rl *apperr.RateLimitedError
	switch {
	case errors.Is(err, context.Canceled):
		return NewFetchError(KindCancelled, id, err)
	case errors.As(err, &rl):
		fe := NewFetchError(KindRateLimited, id, err)
		fe.RetryAfter, _ = integrations.RetryAfter(err)
		return fe
	case errors.Is(err, integrations.ErrNotFound):
		return NewFetchError(KindNotFound, id, err)
	case errors.Is(err, integrations.ErrMalformed):
		return NewFetchError(KindMalformed, id, err)
	case apperr.Is(err, apperr.ErrCodeInvalidPackage), apperr.Is(err, apperr.ErrCodeInvalidInput):
		return NewFetchError(KindMalformed, id, err)
	case cache.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		return NewFetchError(KindTransient, id, err)
	case errors.Is(err, integrations.ErrNetwork):
		return NewFetchError(KindMalformed, id, err)
	default:
		return NewFetchError(KindTransient, id, err)
	}
}

// Dependencies flattens a manifest dependency map into a list sorted by name.
func Dependencies(m map[string]string) []Dependency {
	out := make([]Dependency, 0, len(m))
	for name, spec := range m {
		out = append(out, Dependency{Name: name, Spec: spec})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
