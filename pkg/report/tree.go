package report

import (
	"fmt"
	"io"

	"github.com/matzehuels/licensecrawl/pkg/deps"
)

// WriteTree prints the dependency tree below each seed of res.
//
// A dependency that already appears on the path from its seed is printed
// with "[circular reference]" and not descended into. A subtree already
// printed elsewhere is abbreviated with "[see above]".
func WriteTree(w io.Writer, res *deps.Result) error {
	t := newTree(w, res)
	for i, seed := range res.Seeds {
		if i > 0 {
			t.printf("\n")
		}
		rec, ok := t.records[seed]
		if !ok {
			t.printf("%s [unknown]\n", seed)
			continue
		}
		t.printf("%s\n", label(rec))
		t.walk(seed, "", map[deps.Identity]bool{seed: true})
	}
	return t.err
}

type tree struct {
	w        io.Writer
	err      error
	records  map[deps.Identity]deps.Record
	children map[deps.Identity][]deps.Identity
	printed  map[deps.Identity]bool
}

func newTree(w io.Writer, res *deps.Result) *tree {
	t := &tree{
		w:        w,
		records:  make(map[deps.Identity]deps.Record, len(res.Records)),
		children: make(map[deps.Identity][]deps.Identity),
		printed:  make(map[deps.Identity]bool),
	}
	for _, rec := range res.Records {
		t.records[rec.Identity] = rec
	}
	for _, e := range res.Edges {
		t.children[e.Parent] = append(t.children[e.Parent], e.Child)
	}
	return t
}

func (t *tree) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *tree) walk(id deps.Identity, indent string, path map[deps.Identity]bool) {
	kids := t.children[id]
	if len(kids) > 0 && t.printed[id] {
		t.printf("%s└── [see above]\n", indent)
		return
	}
	t.printed[id] = true

	for i, child := range kids {
		branch, next := "├── ", "│   "
		if i == len(kids)-1 {
			branch, next = "└── ", "    "
		}
		if path[child] {
			t.printf("%s%s%s [circular reference]\n", indent, branch, child)
			continue
		}
		rec, ok := t.records[child]
		if !ok {
			t.printf("%s%s%s [unknown]\n", indent, branch, child)
			continue
		}
		t.printf("%s%s%s\n", indent, branch, label(rec))
		path[child] = true
		t.walk(child, indent+next, path)
		delete(path, child)
	}
}
