package license

import (
	"regexp"
	"strings"
)

// Policy is an allow-list of license patterns. A pattern is an identifier
// where "*" matches any run of characters ("Apache*", "BSD-*-Clause").
// An empty Policy allows everything.
type Policy struct {
	patterns []*regexp.Regexp
	raw      []string
}

// NewPolicy compiles patterns. Blank entries are ignored.
func NewPolicy(patterns []string) *Policy {
	p := &Policy{}
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(raw), `\*`, ".*") + "$"
		p.patterns = append(p.patterns, regexp.MustCompile(expr))
		p.raw = append(p.raw, raw)
	}
	return p
}

// ParsePolicy builds a Policy from a comma separated list.
func ParsePolicy(list string) *Policy {
	return NewPolicy(strings.Split(list, ","))
}

// Empty reports whether the policy allows every license.
func (p *Policy) Empty() bool { return p == nil || len(p.patterns) == 0 }

// Patterns returns the source patterns.
func (p *Policy) Patterns() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.raw...)
}

// Allowed reports whether license satisfies the policy. SPDX "OR"
// expressions pass when any alternative passes; "AND" expressions need
// every operand to pass. Unknown never passes a non-empty policy.
func (p *Policy) Allowed(license string) bool {
	if p.Empty() {
		return true
	}
	license = strings.TrimSpace(license)
	if license == "" || license == Unknown {
		return false
	}
	if p.match(license) {
		return true
	}

	expr := strings.Trim(license, "()")
	if alts := splitOp(expr, "OR"); len(alts) > 1 {
		for _, alt := range alts {
			if p.Allowed(alt) {
				return true
			}
		}
		return false
	}
	if ops := splitOp(expr, "AND"); len(ops) > 1 {
		for _, op := range ops {
			if !p.Allowed(op) {
				return false
			}
		}
		return true
	}
	return p.match(Normalize(expr))
}

func (p *Policy) match(license string) bool {
	for _, re := range p.patterns {
		if re.MatchString(license) {
			return true
		}
	}
	return false
}

func splitOp(expr, op string) []string {
	parts := strings.Split(expr, " "+op+" ")
	out := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
