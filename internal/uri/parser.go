package uri

import (
	"regexp"
	"strings"
	"unicode"
)

// authorityRegex accepts the authority after lowercasing.
var authorityRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// globAuthorityRegex is authorityRegex with `*` allowed, for patterns.
var globAuthorityRegex = regexp.MustCompile(`^[a-z0-9*][a-z0-9._*-]*$`)

// Parse creates a Uri by normalizing its raw string representation.
func Parse(raw string) (Uri, error) {
	return parse(raw, false)
}

// MustParse is like Parse but panics on error. It is intended for
// package-level constants and tests.
func MustParse(raw string) Uri {
	u, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// Resolve parses ref relative to base. A ref starting with a single `/`
// keeps the base authority; anything else is parsed as a full Uri.
func Resolve(base Uri, ref string) (Uri, error) {
	if strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") && !base.IsZero() {
		return Parse(Scheme + "://" + base.authority + ref)
	}
	return Parse(ref)
}

func parse(raw string, allowGlob bool) (Uri, error) {
	if raw == "" {
		return Uri{}, &InvalidUriError{Raw: raw, Reason: "uri cannot be empty"}
	}
	for _, r := range raw {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return Uri{}, &InvalidUriError{Raw: raw, Reason: "uri contains whitespace or control characters"}
		}
		switch r {
		case '?', '#', '\\':
			return Uri{}, &InvalidUriError{Raw: raw, Reason: "uri contains illegal character " + string(r)}
		}
	}

	rest := raw
	if idx := strings.Index(raw, "://"); idx >= 0 {
		if !strings.EqualFold(raw[:idx], Scheme) {
			return Uri{}, &InvalidUriError{Raw: raw, Reason: "unsupported scheme " + raw[:idx]}
		}
		rest = raw[idx+3:]
	}
	rest = strings.TrimLeft(rest, "/")

	authority, path, _ := strings.Cut(rest, "/")
	authority = strings.ToLower(authority)
	if authority == "" {
		return Uri{}, &InvalidUriError{Raw: raw, Reason: "authority cannot be empty"}
	}
	authRegex := authorityRegex
	if allowGlob {
		authRegex = globAuthorityRegex
	}
	if !authRegex.MatchString(authority) {
		return Uri{}, &InvalidUriError{Raw: raw, Reason: "invalid authority " + authority}
	}

	segments := make([]string, 0, strings.Count(path, "/")+1)
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		if !allowGlob && strings.Contains(segment, "*") {
			return Uri{}, &InvalidUriError{Raw: raw, Reason: "wildcards are only allowed in redirect patterns"}
		}
		segments = append(segments, segment)
	}
	if len(segments) == 0 {
		return Uri{}, &InvalidUriError{Raw: raw, Reason: "path cannot be empty"}
	}
	path = strings.Join(segments, "/")

	return Uri{
		authority: authority,
		path:      path,
		raw:       Scheme + "://" + authority + "/" + path,
	}, nil
}
