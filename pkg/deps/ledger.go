package deps

import "sync"

// Ledger remembers every identity admitted during one run. It only grows.
type Ledger struct {
	mu   sync.Mutex
	seen map[Identity]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[Identity]struct{})}
}

// TryAdmit reports true for the first call with id and false for every
// later call, however many goroutines race on it.
func (l *Ledger) TryAdmit(id Identity) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[id]; ok {
		return false
	}
	l.seen[id] = struct{}{}
	return true
}

// Len returns the number of admitted identities.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
