package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/matzehuels/licensecrawl/pkg/deps"
	"github.com/matzehuels/licensecrawl/pkg/deps/license"
)

// Options filters and annotates rendered records.
type Options struct {
	// UnknownOnly keeps only records whose license is unknown.
	UnknownOnly bool
	// Policy marks records whose license it does not allow. Nil allows all.
	Policy *license.Policy
}

// Line renders rec as "<registry>:<name>@<version>,<license>[,<expiration>]".
// Commas in the expiration become semicolons and whitespace runs collapse
// to one space, so a line always has at most three fields.
func Line(rec deps.Record) string {
	s := rec.ID + "," + rec.License
	if exp := lineField(rec.Expiration); exp != "" {
		s += "," + exp
	}
	return s
}

func lineField(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, ",", ";")), " ")
}

// Filter returns the records selected by opts, in their original order.
func Filter(records []deps.Record, opts Options) []deps.Record {
	if !opts.UnknownOnly {
		return records
	}
	var out []deps.Record
	for _, rec := range records {
		if rec.License == deps.UnknownLicense {
			out = append(out, rec)
		}
	}
	return out
}

// WriteText writes one [Line] per record. Records the policy rejects are
// suffixed with " [NOT ALLOWED]".
func WriteText(w io.Writer, records []deps.Record, opts Options) error {
	for _, rec := range Filter(records, opts) {
		line := Line(rec)
		if !opts.Policy.Allowed(rec.License) {
			line += " [NOT ALLOWED]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

var csvHeader = []string{"id", "registry", "name", "version", "license", "expiration", "status", "allowed", "url", "license_url"}

// WriteCSV writes the records as CSV with a header row.
func WriteCSV(w io.Writer, records []deps.Record, opts Options) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range Filter(records, opts) {
		row := []string{
			rec.ID,
			string(rec.Registry),
			rec.Name,
			rec.Version,
			rec.License,
			rec.Expiration,
			string(rec.Status),
			fmt.Sprint(opts.Policy.Allowed(rec.License)),
			rec.URL,
			rec.LicenseURL,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// LicenseCount is the usage of one license across a run.
type LicenseCount struct {
	License string
	URL     string
	Count   int
	Percent float64
	Allowed bool
}

// Summary aggregates a run's records.
type Summary struct {
	Total      int
	Unknown    int
	Degraded   int
	Licenses   []LicenseCount // Most used first
	Violations []deps.Record
}

// Summarize counts licenses and collects the records policy rejects.
func Summarize(records []deps.Record, policy *license.Policy) Summary {
	s := Summary{Total: len(records)}
	counts := make(map[string]*LicenseCount)
	for _, rec := range records {
		if rec.License == deps.UnknownLicense {
			s.Unknown++
		}
		if rec.Status.Degraded() {
			s.Degraded++
		}
		allowed := policy.Allowed(rec.License)
		if !allowed {
			s.Violations = append(s.Violations, rec)
		}

		lc, ok := counts[rec.License]
		if !ok {
			lc = &LicenseCount{License: rec.License, URL: license.URL(rec.License), Allowed: allowed}
			if lc.URL == "" {
				lc.URL = rec.LicenseURL
			}
			counts[rec.License] = lc
		}
		lc.Count++
	}

	for _, lc := range counts {
		lc.Percent = float64(lc.Count) / float64(s.Total) * 100
		s.Licenses = append(s.Licenses, *lc)
	}
	sort.Slice(s.Licenses, func(i, j int) bool {
		a, b := s.Licenses[i], s.Licenses[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.License < b.License
	})
	return s
}

// WriteStats writes the license usage table of s.
func WriteStats(w io.Writer, s Summary) error {
	for _, lc := range s.Licenses {
		name := lc.License
		if lc.URL != "" {
			name += " (" + lc.URL + ")"
		}
		line := fmt.Sprintf("%s: %d packages (%.1f%%)", name, lc.Count, lc.Percent)
		if !lc.Allowed {
			line += " [NOT ALLOWED]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// label renders "name@version (license)" for tree and graph output.
func label(rec deps.Record) string {
	var b strings.Builder
	b.WriteString(rec.Name)
	b.WriteString("@")
	b.WriteString(rec.Version)
	b.WriteString(" (")
	b.WriteString(rec.License)
	b.WriteString(")")
	return b.String()
}

// Merge combines the results of several projects. A record seen in more
// than one project is kept once, preferring a copy with a known license.
// Nil results are skipped. The merged run ID is that of the first result.
func Merge(results ...*deps.Result) *deps.Result {
	out := &deps.Result{}
	records := make(map[deps.Identity]deps.Record)
	seeds := make(map[deps.Identity]bool)
	edges := make(map[deps.Edge]bool)
	for _, res := range results {
		if res == nil {
			continue
		}
		if out.RunID == "" {
			out.RunID = res.RunID
			out.Started = res.Started
		}
		if res.Started.Before(out.Started) {
			out.Started = res.Started
		}
		out.Duration = max(out.Duration, res.Duration)
		for _, id := range res.Seeds {
			if !seeds[id] {
				seeds[id] = true
				out.Seeds = append(out.Seeds, id)
			}
		}
		for _, rec := range res.Records {
			prev, ok := records[rec.Identity]
			if !ok || (prev.License == deps.UnknownLicense && rec.License != deps.UnknownLicense) {
				records[rec.Identity] = rec
			}
		}
		for _, e := range res.Edges {
			if !edges[e] {
				edges[e] = true
				out.Edges = append(out.Edges, e)
			}
		}
		out.Exhausted = append(out.Exhausted, res.Exhausted...)
	}
	for _, rec := range records {
		out.Records = append(out.Records, rec)
	}
	sort.Slice(out.Records, func(i, j int) bool { return out.Records[i].ID < out.Records[j].ID })
	return out
}
