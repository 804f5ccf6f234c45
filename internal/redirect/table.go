package redirect

import (
	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/uri"
)

// Table is an ordered, immutable sequence of redirects. It is walked
// front-to-back and the first matching rule wins.
type Table struct {
	rules []Redirect
}

// Sanitize validates redirects and builds a Table. Every rule must have a
// From pattern and exactly one target. Duplicate From patterns are then
// dropped (the first occurrence wins and the order is kept), and a kept rule
// pointing at itself is rejected. Multi-hop cycles are not detected here;
// they only show up while walking.
func Sanitize(redirects []Redirect) (*Table, error) {
	seen := make(map[string]struct{}, len(redirects))
	rules := make([]Redirect, 0, len(redirects))

	for _, r := range redirects {
		from := r.From.String()
		if from == "" {
			return nil, &core.InvalidRedirectError{Reason: "missing from pattern"}
		}
		if r.To.IsZero() == (r.Factory == nil) {
			return nil, &core.InvalidRedirectError{From: from, Reason: "exactly one of a target uri or a factory is required"}
		}
		if _, dup := seen[from]; dup {
			continue
		}
		if r.From.IsExact() && !r.To.IsZero() && from == r.To.String() {
			return nil, &core.CyclicRedirectError{Uri: from}
		}
		seen[from] = struct{}{}

		r.Priority = len(rules)
		rules = append(rules, r)
	}

	return &Table{rules: rules}, nil
}

// Match returns the first rule whose pattern matches u.
func (t *Table) Match(u uri.Uri) (Redirect, bool) {
	if t == nil {
		return Redirect{}, false
	}
	for _, r := range t.rules {
		if r.From.Match(u) {
			return r, true
		}
	}
	return Redirect{}, false
}

// Redirects returns a copy of the rules in table order.
func (t *Table) Redirects() []Redirect {
	if t == nil {
		return nil
	}
	out := make([]Redirect, len(t.rules))
	copy(out, t.rules)
	return out
}

// Len returns the number of rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}
