package deps

import (
	"sort"
	"sync"
)

// Aggregator collects records and dependency edges from all workers.
type Aggregator struct {
	mu      sync.Mutex
	records []Record
	edges   []Edge
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add appends a record.
func (a *Aggregator) Add(r Record) {
	a.mu.Lock()
	a.records = append(a.records, r)
	a.mu.Unlock()
}

// AddEdges appends the dependency edges of one parent.
func (a *Aggregator) AddEdges(parent Identity, children []Identity) {
	if len(children) == 0 {
		return
	}
	a.mu.Lock()
	for _, c := range children {
		a.edges = append(a.edges, Edge{Parent: parent, Child: c})
	}
	a.mu.Unlock()
}

// Len returns the number of records collected so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// Records returns a copy of the records sorted by identity string.
func (a *Aggregator) Records() []Record {
	a.mu.Lock()
	out := make([]Record, len(a.records))
	copy(out, a.records)
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns a copy of the edges sorted by parent, then child.
func (a *Aggregator) Edges() []Edge {
	a.mu.Lock()
	out := make([]Edge, len(a.edges))
	copy(out, a.edges)
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].Parent.String(), out[j].Parent.String()
		if pi != pj {
			return pi < pj
		}
		return out[i].Child.String() < out[j].Child.String()
	})
	return out
}
