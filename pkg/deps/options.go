package deps

import "time"

const (
	DefaultWorkers      = 8                      // Concurrent fetch workers
	DefaultMaxAttempts  = 4                      // Fetch attempts per identity
	DefaultBaseDelay    = 500 * time.Millisecond // First retry delay
	DefaultMaxDelay     = 30 * time.Second       // Retry delay cap
	DefaultMaxRetryWait = 2 * time.Minute        // Longest server-requested wait that is honored
	DefaultFetchTimeout = 30 * time.Second       // Per-attempt fetch timeout
	DefaultCacheTTL     = 24 * time.Hour         // HTTP cache duration
)

// Options configures a [Resolver].
type Options struct {
	Workers      int           // Concurrent workers (default: 8)
	MaxAttempts  int           // Attempts per identity including the first (default: 4)
	BaseDelay    time.Duration // Initial backoff, doubled per retry (default: 500ms)
	MaxDelay     time.Duration // Backoff cap (default: 30s)
	MaxRetryWait time.Duration // Retry-After values above this give up (default: 2m)
	FetchTimeout time.Duration // Timeout of a single fetch attempt (default: 30s)

	Logger   func(string, ...any) // Debug progress callback (optional)
	Warnf    func(string, ...any) // Warning callback (optional)
	OnRecord func(Record)         // Called once per record, from worker goroutines (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = opts.BaseDelay
	}
	if opts.MaxRetryWait <= 0 {
		opts.MaxRetryWait = DefaultMaxRetryWait
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	if opts.Warnf == nil {
		opts.Warnf = func(string, ...any) {}
	}
	if opts.OnRecord == nil {
		opts.OnRecord = func(Record) {}
	}
	return opts
}
