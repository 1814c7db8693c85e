package deps

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
)

// fakeRegistry serves canned metadata. script lists errors returned on the
// first calls for an identity before the canned metadata is served.
type fakeRegistry struct {
	mu       sync.Mutex
	packages map[Identity]*Metadata
	script   map[Identity][]error
	calls    map[Identity]int
	delay    time.Duration
	started  chan Identity
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		packages: make(map[Identity]*Metadata),
		script:   make(map[Identity][]error),
		calls:    make(map[Identity]int),
	}
}

func (f *fakeRegistry) add(id Identity, license string, deps ...Dependency) {
	f.packages[id] = &Metadata{Name: id.Name, Version: id.Version, License: license, Dependencies: deps}
}

func (f *fakeRegistry) Fetch(ctx context.Context, id Identity) (*Metadata, error) {
	f.mu.Lock()
	f.calls[id]++
	n := f.calls[id]
	var scripted error
	if n <= len(f.script[id]) {
		scripted = f.script[id][n-1]
	}
	md, ok := f.packages[id]
	f.mu.Unlock()

	if f.started != nil {
		f.started <- id
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if scripted != nil {
		return nil, scripted
	}
	if !ok {
		return nil, NewFetchError(KindNotFound, id, nil)
	}
	return md, nil
}

func (f *fakeRegistry) callCount(id Identity) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeRegistry) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func testOptions() Options {
	return Options{
		Workers:      4,
		MaxAttempts:  4,
		BaseDelay:    time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		FetchTimeout: time.Second,
	}
}

func recordIDs(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID + "," + r.License
	}
	return out
}

func TestResolveNoSeeds(t *testing.T) {
	_, err := NewResolver(newFakeRegistry(), testOptions()).Resolve(context.Background(), nil)
	if !errors.Is(err, ErrNoSeeds) {
		t.Fatalf("err = %v, want ErrNoSeeds", err)
	}
	if !apperr.Is(err, apperr.ErrCodeNoSeeds) {
		t.Errorf("code = %s, want %s", apperr.GetCode(err), apperr.ErrCodeNoSeeds)
	}
}

func TestResolveSinglePackage(t *testing.T) {
	reg := newFakeRegistry()
	leftPad := NPM("left-pad", "1.3.0")
	reg.add(leftPad, "MIT")

	res, err := NewResolver(reg, testOptions()).Resolve(context.Background(), []Identity{leftPad})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := recordIDs(res.Records)
	if want := []string{"npm:left-pad@1.3.0,MIT"}; !reflect.DeepEqual(got, want) {
		t.Errorf("records = %v, want %v", got, want)
	}
	if res.Records[0].Status != StatusOK || res.Records[0].Attempts != 1 {
		t.Errorf("record = %+v", res.Records[0])
	}
	if res.RunID == "" {
		t.Error("RunID should be set")
	}
}

func TestResolveCycle(t *testing.T) {
	reg := newFakeRegistry()
	a, b := NPM("a", "1.0.0"), NPM("b", "2.0.0")
	reg.add(a, "MIT", Dependency{Name: "b", Spec: "2.0.0"})
	reg.add(b, "ISC", Dependency{Name: "a", Spec: "^1.0.0"})

	done := make(chan struct{})
	var res *Result
	var err error
	go func() {
		defer close(done)
		res, err = NewResolver(reg, testOptions()).Resolve(context.Background(), []Identity{a})
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Resolve did not terminate on a cyclic graph")
	}
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got := recordIDs(res.Records)
	if want := []string{"npm:a@1.0.0,MIT", "npm:b@2.0.0,ISC"}; !reflect.DeepEqual(got, want) {
		t.Errorf("records = %v, want %v", got, want)
	}
	if n := reg.callCount(a); n != 1 {
		t.Errorf("a fetched %d times, want 1", n)
	}
	if len(res.Edges) != 2 {
		t.Errorf("edges = %v, want a->b and b->a", res.Edges)
	}
}

func TestResolveRetriesRateLimit(t *testing.T) {
	reg := newFakeRegistry()
	xy := GitHub("x/y", "abc")
	reg.add(xy, "BSD")
	reg.script[xy] = []error{
		NewFetchError(KindRateLimited, xy, errors.New("403 rate limit exceeded")),
		NewFetchError(KindRateLimited, xy, errors.New("403 rate limit exceeded")),
	}

	res, err := NewResolver(reg, testOptions()).Resolve(context.Background(), []Identity{xy})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("records = %v, want 1", recordIDs(res.Records))
	}
	rec := res.Records[0]
	if rec.License != "BSD" || rec.Status != StatusOK {
		t.Errorf("record = %+v, want BSD/ok", rec)
	}
	if rec.Attempts != 3 || reg.callCount(xy) != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3", rec.Attempts, reg.callCount(xy))
	}
	if len(res.Exhausted) != 0 {
		t.Errorf("exhausted = %v, want none", res.Exhausted)
	}
}

func TestResolveRetryAfterHonored(t *testing.T) {
	reg := newFakeRegistry()
	id := NPM("slow", "1.0.0")
	reg.add(id, "MIT")
	reg.script[id] = []error{&FetchError{Kind: KindRateLimited, Identity: id, RetryAfter: 30 * time.Millisecond}}

	start := time.Now()
	res, err := NewResolver(reg, testOptions()).Resolve(context.Background(), []Identity{id})
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("elapsed = %s, want at least the requested 30ms", elapsed)
	}
	if res.Records[0].Status != StatusOK {
		t.Errorf("status = %s", res.Records[0].Status)
	}
}

func TestResolveRetryAfterTooLong(t *testing.T) {
	reg := newFakeRegistry()
	id := NPM("blocked", "1.0.0")
	reg.add(id, "MIT")
	reg.script[id] = []error{&FetchError{Kind: KindRateLimited, Identity: id, RetryAfter: time.Hour}}

	opts := testOptions()
	opts.MaxRetryWait = time.Second
	res, err := NewResolver(reg, opts).Resolve(context.Background(), []Identity{id})
	if err != nil {
		t.Fatal(err)
	}
	if rec := res.Records[0]; rec.Status != StatusRateLimited || rec.License != UnknownLicense {
		t.Errorf("record = %+v, want rate_limited/UNKNOWN", rec)
	}
	if reg.callCount(id) != 1 {
		t.Errorf("calls = %d, want 1", reg.callCount(id))
	}
}

func TestResolveExhaustedRetries(t *testing.T) {
	reg := newFakeRegistry()
	id := NPM("flaky", "1.0.0")
	reg.add(id, "MIT")
	reg.script[id] = []error{errors.New("reset"), errors.New("reset"), errors.New("reset"), errors.New("reset")}

	var warnings atomic.Int64
	opts := testOptions()
	opts.Warnf = func(string, ...any) { warnings.Add(1) }

	res, err := NewResolver(reg, opts).Resolve(context.Background(), []Identity{id})
	if err != nil {
		t.Fatal(err)
	}
	rec := res.Records[0]
	if rec.Status != StatusTransient || rec.License != UnknownLicense {
		t.Errorf("record = %+v, want transient/UNKNOWN", rec)
	}
	if rec.Attempts != opts.MaxAttempts {
		t.Errorf("attempts = %d, want %d", rec.Attempts, opts.MaxAttempts)
	}
	if !reflect.DeepEqual(res.Exhausted, []Identity{id}) {
		t.Errorf("exhausted = %v", res.Exhausted)
	}
	// One per identity plus the run summary.
	if warnings.Load() != 2 {
		t.Errorf("warnings = %d, want 2", warnings.Load())
	}
}

func TestResolveFetchTimeoutIsTransient(t *testing.T) {
	reg := newFakeRegistry()
	id := NPM("hang", "1.0.0")
	reg.add(id, "MIT")
	reg.delay = 50 * time.Millisecond

	opts := testOptions()
	opts.FetchTimeout = 5 * time.Millisecond
	opts.MaxAttempts = 2

	res, err := NewResolver(reg, opts).Resolve(context.Background(), []Identity{id})
	if err != nil {
		t.Fatal(err)
	}
	if rec := res.Records[0]; rec.Status != StatusTransient || rec.Attempts != 2 {
		t.Errorf("record = %+v, want transient after 2 attempts", rec)
	}
}

func TestResolveNotFoundContinues(t *testing.T) {
	reg := newFakeRegistry()
	root, ghost, fine := NPM("root", "1.0.0"), NPM("ghost", "9.9.9"), NPM("fine", "1.0.0")
	reg.add(root, "MIT", Dependency{Name: "ghost", Spec: "9.9.9"}, Dependency{Name: "fine", Spec: "1.0.0"})
	reg.add(fine, "Apache-2.0")

	res, err := NewResolver(reg, testOptions()).Resolve(context.Background(), []Identity{root})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := recordIDs(res.Records)
	want := []string{"npm:fine@1.0.0,Apache-2.0", "npm:ghost@9.9.9,UNKNOWN", "npm:root@1.0.0,MIT"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("records = %v, want %v", got, want)
	}
	for _, rec := range res.Records {
		if rec.Identity == ghost && (rec.Status != StatusNotFound || rec.Attempts != 1) {
			t.Errorf("ghost = %+v, want not_found after one attempt", rec)
		}
	}
}

func TestResolveSeedNotFound(t *testing.T) {
	ghost := NPM("ghost", "9.9.9")
	res, err := NewResolver(newFakeRegistry(), testOptions()).Resolve(context.Background(), []Identity{ghost})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := recordIDs(res.Records); !reflect.DeepEqual(got, []string{"npm:ghost@9.9.9,UNKNOWN"}) {
		t.Errorf("records = %v", got)
	}
}

func TestResolveInvalidIdentityIsMalformed(t *testing.T) {
	reg := newFakeRegistry()
	bad := NPM("../../etc/passwd", "1.0.0")
	res, err := NewResolver(reg, testOptions()).Resolve(context.Background(), []Identity{bad})
	if err != nil {
		t.Fatal(err)
	}
	if res.Records[0].Status != StatusMalformed {
		t.Errorf("status = %s, want malformed", res.Records[0].Status)
	}
	if reg.totalCalls() != 0 {
		t.Error("invalid identities must not reach the fetcher")
	}
}

// wideGraph builds a dense graph: every package depends on the next width
// packages, wrapping around so the graph is full of cycles.
func wideGraph(reg *fakeRegistry, n, width int) []Identity {
	ids := make([]Identity, n)
	for i := range n {
		ids[i] = NPM(fmt.Sprintf("pkg-%03d", i), "1.0.0")
	}
	for i, id := range ids {
		var deps []Dependency
		for j := 1; j <= width; j++ {
			deps = append(deps, Dependency{Name: ids[(i+j)%n].Name, Spec: "^1.0.0"})
		}
		reg.add(id, "MIT", deps...)
	}
	return ids
}

func TestResolveAtMostOnceUnderConcurrency(t *testing.T) {
	reg := newFakeRegistry()
	ids := wideGraph(reg, 200, 7)

	var onRecord atomic.Int64
	opts := testOptions()
	opts.Workers = 16
	opts.OnRecord = func(Record) { onRecord.Add(1) }

	res, err := NewResolver(reg, opts).Resolve(context.Background(), ids[:3])
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != len(ids) {
		t.Fatalf("records = %d, want %d", len(res.Records), len(ids))
	}
	for _, id := range ids {
		if n := reg.callCount(id); n != 1 {
			t.Errorf("%s fetched %d times, want 1", id, n)
		}
	}
	if onRecord.Load() != int64(len(ids)) {
		t.Errorf("OnRecord calls = %d, want %d", onRecord.Load(), len(ids))
	}
	seen := make(map[string]bool)
	for _, r := range res.Records {
		if seen[r.ID] {
			t.Errorf("duplicate record %s", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestResolveDuplicateSeeds(t *testing.T) {
	reg := newFakeRegistry()
	a := NPM("a", "1.0.0")
	reg.add(a, "MIT")

	res, err := NewResolver(reg, testOptions()).Resolve(context.Background(), []Identity{a, a, a})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 1 || reg.callCount(a) != 1 {
		t.Errorf("records = %d, calls = %d, want 1 and 1", len(res.Records), reg.callCount(a))
	}
}

func TestResolveIdempotent(t *testing.T) {
	reg := newFakeRegistry()
	ids := wideGraph(reg, 60, 4)
	ghost := NPM("ghost", "9.9.9")
	reg.packages[ids[0]].Dependencies = append(reg.packages[ids[0]].Dependencies, Dependency{Name: "ghost", Spec: "9.9.9"})

	r := NewResolver(reg, testOptions())
	first, err := r.Resolve(context.Background(), ids[:1])
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(context.Background(), ids[:1])
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(recordIDs(first.Records), recordIDs(second.Records)) {
		t.Error("re-running against the same registry should yield the same records")
	}
	if first.RunID == second.RunID {
		t.Error("each run gets its own ID")
	}
	if reg.callCount(ghost) != 2 {
		t.Errorf("ghost calls = %d, want one per run", reg.callCount(ghost))
	}
}

func TestResolveCancelReportsEveryAdmitted(t *testing.T) {
	reg := newFakeRegistry()
	ids := wideGraph(reg, 100, 5)
	reg.delay = 10 * time.Millisecond
	reg.started = make(chan Identity, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Cancel once a handful of fetches are under way.
		for range 5 {
			<-reg.started
		}
		cancel()
	}()

	opts := testOptions()
	opts.Workers = 2
	res, err := NewResolver(reg, opts).Resolve(ctx, ids[:1])
	if !apperr.Is(err, apperr.ErrCodeRunCancelled) {
		t.Fatalf("err = %v, want RUN_CANCELLED", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err should wrap context.Canceled")
	}
	if res == nil {
		t.Fatal("partial result expected")
	}

	cancelled := res.Count(StatusCancelled)
	if cancelled == 0 {
		t.Error("expected cancelled records for unprocessed identities")
	}
	// Every admitted identity shows up exactly once.
	seen := make(map[string]bool)
	for _, r := range res.Records {
		if seen[r.ID] {
			t.Errorf("duplicate record %s", r.ID)
		}
		seen[r.ID] = true
		if r.Status == StatusCancelled && r.License != UnknownLicense {
			t.Errorf("cancelled record %s has license %s", r.ID, r.License)
		}
	}
	if len(res.Records) < reg.totalCalls() {
		t.Errorf("records = %d < fetches = %d", len(res.Records), reg.totalCalls())
	}
}

func TestResolveTimeout(t *testing.T) {
	reg := newFakeRegistry()
	ids := wideGraph(reg, 20, 2)
	reg.delay = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	res, err := NewResolver(reg, testOptions()).Resolve(ctx, ids[:1])
	if !apperr.Is(err, apperr.ErrCodeTimeout) {
		t.Fatalf("err = %v, want TIMEOUT", err)
	}
	if res == nil || len(res.Records) == 0 {
		t.Fatal("partial result expected")
	}
}

func TestResolveAll(t *testing.T) {
	reg := newFakeRegistry()
	a, b, shared := NPM("a", "1.0.0"), NPM("b", "1.0.0"), NPM("shared", "1.0.0")
	reg.add(a, "MIT", Dependency{Name: "shared", Spec: "1.0.0"})
	reg.add(b, "ISC", Dependency{Name: "shared", Spec: "1.0.0"})
	reg.add(shared, "MIT")

	results, errs := NewResolver(reg, testOptions()).ResolveAll(context.Background(), [][]Identity{{a}, {b}, nil}, 2)
	if len(results) != 3 || len(errs) != 3 {
		t.Fatalf("got %d results, %d errs", len(results), len(errs))
	}
	for i := range 2 {
		if errs[i] != nil {
			t.Errorf("errs[%d] = %v", i, errs[i])
		}
		if len(results[i].Records) != 2 {
			t.Errorf("results[%d] = %v", i, recordIDs(results[i].Records))
		}
	}
	if !errors.Is(errs[2], ErrNoSeeds) {
		t.Errorf("errs[2] = %v, want ErrNoSeeds", errs[2])
	}
	// Independent states: the shared package is fetched once per project.
	if reg.callCount(shared) != 2 {
		t.Errorf("shared calls = %d, want 2", reg.callCount(shared))
	}
}

func TestRegistriesDispatch(t *testing.T) {
	npmReg, ghReg := newFakeRegistry(), newFakeRegistry()
	npmReg.add(NPM("a", "1.0.0"), "MIT", Dependency{Name: "b", Spec: "github:o/b#main"})
	ghReg.add(GitHub("o/b", "main"), "BSD-2-Clause")

	r := NewResolver(Registries{RegistryNPM: npmReg, RegistryGitHub: ghReg}, testOptions())
	res, err := r.Resolve(context.Background(), []Identity{NPM("a", "1.0.0")})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"github:o/b@main,BSD-2-Clause", "npm:a@1.0.0,MIT"}
	if got := recordIDs(res.Records); !reflect.DeepEqual(got, want) {
		t.Errorf("records = %v, want %v", got, want)
	}

	_, err = Registries{}.Fetch(context.Background(), NPM("a", "1.0.0"))
	if KindOf(err) != KindMalformed {
		t.Errorf("unregistered registry kind = %s, want malformed", KindOf(err))
	}
}

func TestBackoff(t *testing.T) {
	r := NewResolver(newFakeRegistry(), Options{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, MaxRetryWait: time.Minute})
	for attempt := 1; attempt <= 6; attempt++ {
		d, ok := r.backoff(attempt, 0)
		if !ok {
			t.Fatalf("attempt %d: backoff refused", attempt)
		}
		ceiling := min(100*time.Millisecond<<(attempt-1), time.Second)
		if d < ceiling/2 || d > ceiling {
			t.Errorf("attempt %d: delay %s outside [%s, %s]", attempt, d, ceiling/2, ceiling)
		}
	}
	if d, _ := r.backoff(1, 5*time.Second); d != 5*time.Second {
		t.Errorf("retry-after should win, got %s", d)
	}
	if _, ok := r.backoff(1, 2*time.Minute); ok {
		t.Error("retry-after above MaxRetryWait should be refused")
	}
}
