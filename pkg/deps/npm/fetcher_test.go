package npm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matzehuels/licensecrawl/pkg/deps"
	npmapi "github.com/matzehuels/licensecrawl/pkg/integrations/npm"
)

func newFetcher(t *testing.T, h http.HandlerFunc) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewFetcher(npmapi.NewClient(nil, 0).WithBaseURL(srv.URL), false)
}

func TestFetch(t *testing.T) {
	f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"a","version":"1.0.0","license":"MIT","dependencies":{"c":"^2.0.0","b":"1.x"}}`))
	})
	md, err := f.Fetch(context.Background(), deps.NPM("a", "1.0.0"))
	if err != nil {
		t.Fatal(err)
	}
	if md.License != "MIT" {
		t.Errorf("License = %q", md.License)
	}
	want := []deps.Dependency{{Name: "b", Spec: "1.x"}, {Name: "c", Spec: "^2.0.0"}}
	if len(md.Dependencies) != 2 || md.Dependencies[0] != want[0] || md.Dependencies[1] != want[1] {
		t.Errorf("Dependencies = %v, want %v", md.Dependencies, want)
	}
}

func TestFetchErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		body    string
		want    deps.ErrorKind
	}{
		{"not found", 404, nil, "", deps.KindNotFound},
		{"rate limited", 429, map[string]string{"Retry-After": "3"}, "", deps.KindRateLimited},
		{"server error", 503, nil, "", deps.KindTransient},
		{"malformed", 200, nil, `{"name":"a"}`, deps.KindMalformed},
		{"unauthorized", 401, nil, "", deps.KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := f.Fetch(context.Background(), deps.NPM("a", "1.0.0"))
			if got := deps.KindOf(err); got != tt.want {
				t.Errorf("kind = %s, want %s (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestFetchRetryAfter(t *testing.T) {
	f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := f.Fetch(context.Background(), deps.NPM("a", "1.0.0"))
	fe, ok := err.(*deps.FetchError)
	if !ok {
		t.Fatalf("err = %T, want *deps.FetchError", err)
	}
	if fe.RetryAfter.Seconds() != 3 {
		t.Errorf("RetryAfter = %s", fe.RetryAfter)
	}
}
