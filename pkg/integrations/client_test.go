package integrations

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/licensecrawl/pkg/cache"
	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
)

func TestNewClient(t *testing.T) {
	headers := map[string]string{"Authorization": "Bearer token"}
	client := NewClient(nil, "test:", time.Hour, headers)

	if client.http == nil {
		t.Error("http should not be nil")
	}
	if client.cache == nil {
		t.Error("nil cache should be replaced by a null cache")
	}
	if client.headers["Authorization"] != "Bearer token" {
		t.Error("headers not set correctly")
	}
}

func TestClientCached(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	client := NewClient(fc, "test:", time.Hour, nil)

	type payload struct{ Value string }
	calls := 0
	fetch := func(v *payload) func() error {
		return func() error {
			calls++
			v.Value = "fetched"
			return nil
		}
	}

	var first payload
	if err := client.Cached(ctx, "key", false, &first, fetch(&first)); err != nil {
		t.Fatalf("Cached: %v", err)
	}
	var second payload
	if err := client.Cached(ctx, "key", false, &second, fetch(&second)); err != nil {
		t.Fatalf("Cached: %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	if second.Value != "fetched" {
		t.Errorf("cached value = %q", second.Value)
	}

	var third payload
	if err := client.Cached(ctx, "key", true, &third, fetch(&third)); err != nil {
		t.Fatalf("Cached(refresh): %v", err)
	}
	if calls != 2 {
		t.Errorf("refresh should bypass cache, calls = %d", calls)
	}
}

func TestClientCachedErrorNotStored(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	client := NewClient(fc, "test:", time.Hour, nil)

	var v struct{ N int }
	boom := errors.New("boom")
	if err := client.Cached(ctx, "k", false, &v, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, ok, _ := fc.Get(ctx, "test:k"); ok {
		t.Error("failed fetch must not be cached")
	}
}

func TestClientGet(t *testing.T) {
	var gotUA, gotAuth, gotExtra string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		gotExtra = r.Header.Get("X-Extra")
		w.Write([]byte(`{"name":"left-pad"}`))
	}))
	defer srv.Close()

	client := NewClient(nil, "", 0, map[string]string{"Authorization": "Bearer t"})
	var v struct{ Name string }
	if err := client.GetWithHeaders(context.Background(), srv.URL, map[string]string{"X-Extra": "1"}, &v); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Name != "left-pad" {
		t.Errorf("Name = %q", v.Name)
	}
	if gotUA == "" || gotAuth != "Bearer t" || gotExtra != "1" {
		t.Errorf("headers: ua=%q auth=%q extra=%q", gotUA, gotAuth, gotExtra)
	}
}

func TestClientGetMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := NewClient(nil, "", 0, nil)
	var v map[string]any
	if err := client.Get(context.Background(), srv.URL, &v); !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		code      int
		wantErr   error
		retryable bool
	}{
		{200, nil, false},
		{404, ErrNotFound, false},
		{410, ErrNotFound, false},
		{500, ErrNetwork, true},
		{503, ErrNetwork, true},
		{400, ErrNetwork, false},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.code), func(t *testing.T) {
			err := checkStatus(tt.code)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("checkStatus(%d) = %v, want nil", tt.code, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("checkStatus(%d) = %v, want %v", tt.code, err, tt.wantErr)
			}
			var re *cache.RetryableError
			if errors.As(err, &re) != tt.retryable {
				t.Errorf("checkStatus(%d) retryable = %v, want %v", tt.code, !tt.retryable, tt.retryable)
			}
		})
	}
}

func TestRateLimitResponses(t *testing.T) {
	reset := strconv.FormatInt(time.Now().Add(90*time.Second).Unix(), 10)
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		limited bool
		minWait time.Duration
	}{
		{"429 retry-after", 429, map[string]string{"Retry-After": "7"}, true, 7 * time.Second},
		{"429 bare", 429, nil, true, 0},
		{"403 exhausted", 403, map[string]string{"X-RateLimit-Remaining": "0", "X-RateLimit-Reset": reset}, true, 60 * time.Second},
		{"403 forbidden", 403, nil, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewClient(nil, "", 0, nil).GetBytes(context.Background(), srv.URL, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			var rl *apperr.RateLimitedError
			if errors.As(err, &rl) != tt.limited {
				t.Fatalf("rate limited = %v, want %v (err %v)", !tt.limited, tt.limited, err)
			}
			if !tt.limited {
				return
			}
			wait, ok := RetryAfter(err)
			if !ok || wait < tt.minWait {
				t.Errorf("RetryAfter = %s, %v; want >= %s", wait, ok, tt.minWait)
			}
		})
	}
}

func TestClientNetworkErrorRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(nil, "", 0, nil).GetBytes(context.Background(), url, nil)
	if !errors.Is(err, ErrNetwork) || !cache.IsRetryable(err) {
		t.Errorf("err = %v, want retryable network error", err)
	}
}

func TestClientCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewClient(nil, "", 0, nil).GetBytes(ctx, srv.URL, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestClientLimiter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := NewClient(nil, "", 0, nil)
	client.SetLimiter(NewLimiter(1, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := client.GetBytes(ctx, srv.URL, nil); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := client.GetBytes(ctx, srv.URL, nil); err == nil {
		t.Error("second request should wait past the deadline")
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
}

func TestNormalizeRepoURL(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"", ""},
		{"https://github.com/foo/bar", "https://github.com/foo/bar"},
		{"https://github.com/foo/bar.git", "https://github.com/foo/bar"},
		{"git@github.com:foo/bar.git", "https://github.com/foo/bar"},
		{"git://github.com/foo/bar", "https://github.com/foo/bar"},
		{"git+https://github.com/foo/bar.git", "https://github.com/foo/bar"},
		{"git+ssh://git@github.com/foo/bar.git", "https://github.com/foo/bar"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeRepoURL(tt.input); got != tt.want {
				t.Errorf("NormalizeRepoURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscapePackageName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"left-pad", "left-pad"},
		{"@babel/core", "@babel%2Fcore"},
	}
	for _, tt := range tests {
		if got := EscapePackageName(tt.in); got != tt.want {
			t.Errorf("EscapePackageName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
