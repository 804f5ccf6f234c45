package uri

import (
	"path"
	"strings"
)

// Pattern is the `from` side of a redirect. It either names one Uri
// exactly or globs over path segments: `*` matches within one segment and
// a trailing `**` matches one or more remaining segments.
type Pattern struct {
	raw   string
	exact bool
	segs  []string
}

// ParsePattern normalizes raw into a Pattern.
func ParsePattern(raw string) (Pattern, error) {
	if !strings.Contains(raw, "*") {
		u, err := Parse(raw)
		if err != nil {
			return Pattern{}, err
		}
		return ExactPattern(u), nil
	}

	u, err := parse(raw, true)
	if err != nil {
		return Pattern{}, err
	}
	segs := append([]string{u.authority}, strings.Split(u.path, "/")...)
	for i, seg := range segs {
		if strings.Contains(seg, "**") && (seg != "**" || i != len(segs)-1) {
			return Pattern{}, &InvalidUriError{Raw: raw, Reason: "`**` is only allowed as the last segment"}
		}
		if _, err := path.Match(seg, ""); err != nil {
			return Pattern{}, &InvalidUriError{Raw: raw, Reason: "malformed glob segment " + seg}
		}
	}
	return Pattern{raw: u.raw, segs: segs}, nil
}

// ExactPattern returns a pattern matching only u.
func ExactPattern(u Uri) Pattern {
	return Pattern{raw: u.raw, exact: true}
}

// String returns the normalized pattern text.
func (p Pattern) String() string { return p.raw }

// IsExact reports whether the pattern names a single Uri.
func (p Pattern) IsExact() bool { return p.exact }

// Match reports whether u is addressed by this pattern.
func (p Pattern) Match(u Uri) bool {
	if p.exact {
		return p.raw == u.raw
	}
	if p.raw == "" || u.IsZero() {
		return false
	}

	target := append([]string{u.authority}, strings.Split(u.path, "/")...)
	for i, seg := range p.segs {
		if seg == "**" {
			return len(target) > i
		}
		if i >= len(target) {
			return false
		}
		if ok, _ := path.Match(seg, target[i]); !ok {
			return false
		}
	}
	return len(target) == len(p.segs)
}
