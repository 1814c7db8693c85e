package deps

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
	"github.com/matzehuels/licensecrawl/pkg/observability"
)

// State is the bookkeeping of one resolution run. Runs never share state;
// resolving several projects at once creates one State each.
type State struct {
	RunID  string
	Ledger *Ledger
	Queue  *Queue
	Agg    *Aggregator

	mu        sync.Mutex
	exhausted []Identity
}

// NewState returns an empty State with a fresh run ID.
func NewState() *State {
	return &State{
		RunID:  uuid.NewString(),
		Ledger: NewLedger(),
		Queue:  NewQueue(),
		Agg:    NewAggregator(),
	}
}

// Result is the outcome of a run.
type Result struct {
	RunID     string
	Seeds     []Identity
	Records   []Record // Sorted by identity string
	Edges     []Edge
	Exhausted []Identity // Identities whose retries ran out
	Started   time.Time
	Duration  time.Duration
}

// Count returns the number of records with status s.
func (r *Result) Count(s Status) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Status == s {
			n++
		}
	}
	return n
}

// Degraded returns the records not backed by a successful fetch.
func (r *Result) Degraded() []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Status.Degraded() {
			out = append(out, rec)
		}
	}
	return out
}

// Resolver walks the dependency graph breadth-first with a fixed pool of
// workers. Every identity reachable from the seeds is fetched at most once
// per run and produces exactly one [Record], even when fetching fails.
type Resolver struct {
	fetcher Fetcher
	opts    Options
}

// NewResolver creates a Resolver over fetcher.
func NewResolver(fetcher Fetcher, opts Options) *Resolver {
	return &Resolver{fetcher: fetcher, opts: opts.WithDefaults()}
}

// Resolve runs to completion from seeds and returns every record.
//
// Per-identity failures never fail the run; they become degraded records.
// If ctx ends first, Resolve returns the partial result together with an
// error coded RUN_CANCELLED or TIMEOUT. Admitted identities that were never
// fetched are reported with [StatusCancelled].
func (r *Resolver) Resolve(ctx context.Context, seeds []Identity) (*Result, error) {
	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}

	st := NewState()
	start := time.Now()
	hooks := observability.Resolve()
	hooks.OnRunStart(ctx, st.RunID, len(seeds))
	r.opts.Logger("run %s: resolving %d seeds with %d workers", st.RunID, len(seeds), r.opts.Workers)

	for _, id := range seeds {
		if st.Ledger.TryAdmit(id) {
			st.Queue.Push(id)
		}
	}

	stop := context.AfterFunc(ctx, st.Queue.Close)
	defer stop()

	var wg sync.WaitGroup
	for range r.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.work(ctx, st)
		}()
	}
	wg.Wait()

	for _, id := range st.Queue.Drain() {
		r.add(ctx, st, Cancelled(id))
	}

	res := &Result{
		RunID:     st.RunID,
		Seeds:     seeds,
		Records:   st.Agg.Records(),
		Edges:     st.Agg.Edges(),
		Exhausted: st.exhausted,
		Started:   start,
		Duration:  time.Since(start),
	}
	if n := len(res.Exhausted); n > 0 {
		r.opts.Warnf("%d packages reported as UNKNOWN after exhausting %d attempts", n, r.opts.MaxAttempts)
	}

	err := runError(ctx)
	hooks.OnRunComplete(ctx, st.RunID, len(res.Records), res.Duration, err)
	return res, err
}

// ResolveAll resolves each seed set with its own State, at most limit runs
// at a time. results[i] and errs[i] belong to seedSets[i].
func (r *Resolver) ResolveAll(ctx context.Context, seedSets [][]Identity, limit int) (results []*Result, errs []error) {
	results = make([]*Result, len(seedSets))
	errs = make([]error, len(seedSets))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, seeds := range seedSets {
		g.Go(func() error {
			results[i], errs[i] = r.Resolve(ctx, seeds)
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}

func runError(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.ErrCodeTimeout, err, "resolution timed out")
	default:
		return apperr.Wrap(apperr.ErrCodeRunCancelled, err, "resolution cancelled")
	}
}

func (r *Resolver) work(ctx context.Context, st *State) {
	for {
		id, ok := st.Queue.Pop(ctx)
		if !ok {
			return
		}
		r.process(ctx, st, id)
		st.Queue.Done(id)
	}
}

// process fetches one identity, admits its children and records it. The
// children are pushed before the caller marks id done.
func (r *Resolver) process(ctx context.Context, st *State, id Identity) {
	if err := id.Validate(); err != nil {
		r.add(ctx, st, Degrade(id, NewFetchError(KindMalformed, id, err)))
		return
	}

	md, attempts, err := r.fetch(ctx, id)

	var rec Record
	var children []Identity
	switch {
	case err == nil:
		rec, children = Expand(id, md)
	case ctx.Err() != nil:
		rec = Cancelled(id)
		rec.Detail = "run cancelled during fetch"
	default:
		rec = Degrade(id, err)
		if kind := KindOf(err); kind.Retryable() {
			st.mu.Lock()
			st.exhausted = append(st.exhausted, id)
			st.mu.Unlock()
			r.opts.Warnf("%s: giving up after %d attempts: %v", id, attempts, err)
		} else {
			r.opts.Logger("%s: %s", id, kind)
		}
	}
	rec.Attempts = attempts

	st.Agg.AddEdges(id, children)
	for _, child := range children {
		if !st.Ledger.TryAdmit(child) {
			continue
		}
		if !st.Queue.Push(child) {
			r.add(ctx, st, Cancelled(child))
		}
	}
	r.add(ctx, st, rec)
}

func (r *Resolver) add(ctx context.Context, st *State, rec Record) {
	st.Agg.Add(rec)
	observability.Resolve().OnRecord(ctx, rec.ID, string(rec.Status))
	r.opts.OnRecord(rec)
}

// fetch calls the fetcher with a per-attempt timeout, retrying transient and
// rate-limited failures with jittered exponential backoff.
func (r *Resolver) fetch(ctx context.Context, id Identity) (*Metadata, int, error) {
	hooks := observability.Resolve()
	for attempt := 1; ; attempt++ {
		hooks.OnFetch(ctx, id.String(), attempt)
		md, err := r.fetchOnce(ctx, id)
		if err == nil {
			return md, attempt, nil
		}

		kind := KindOf(err)
		if ctx.Err() != nil || !kind.Retryable() || attempt >= r.opts.MaxAttempts {
			return nil, attempt, err
		}

		delay, ok := r.backoff(attempt, retryAfter(err))
		if !ok {
			return nil, attempt, fmt.Errorf("retry-after %s exceeds limit %s: %w", retryAfter(err), r.opts.MaxRetryWait, err)
		}
		hooks.OnRetry(ctx, id.String(), kind.String(), delay)
		r.opts.Logger("%s: %s, retrying in %s (attempt %d/%d)", id, kind, delay.Round(time.Millisecond), attempt+1, r.opts.MaxAttempts)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, attempt, err
		case <-timer.C:
		}
	}
}

func (r *Resolver) fetchOnce(ctx context.Context, id Identity) (*Metadata, error) {
	fctx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()

	md, err := r.fetcher.Fetch(fctx, id)
	if err != nil && ctx.Err() == nil && errors.Is(fctx.Err(), context.DeadlineExceeded) {
		return nil, NewFetchError(KindTransient, id, fmt.Errorf("timed out after %s: %w", r.opts.FetchTimeout, err))
	}
	return md, err
}

// backoff returns the wait before attempt+1. The exponential delay is
// jittered to [d/2, d]; a server-requested wait takes precedence when it is
// longer. ok is false when the server asks for more than MaxRetryWait.
func (r *Resolver) backoff(attempt int, after time.Duration) (time.Duration, bool) {
	if after > r.opts.MaxRetryWait {
		return 0, false
	}
	d := r.opts.BaseDelay << (attempt - 1)
	if d <= 0 || d > r.opts.MaxDelay {
		d = r.opts.MaxDelay
	}
	d = d/2 + rand.N(d/2+1)
	return max(d, after), true
}
