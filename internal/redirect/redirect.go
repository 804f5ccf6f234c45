// Package redirect holds the ordered rules that rewrite a requested Uri,
// either to another Uri or to a factory that builds a concrete
// implementation. Tables are sanitized once and are read-only afterwards.
package redirect

import (
	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/uri"
)

// Redirect is a single rewrite rule. Exactly one of To and Factory is set.
type Redirect struct {
	From     uri.Pattern
	To       uri.Uri
	Factory  core.Factory
	Priority int
}

// ToUri builds a rule that rewrites from onto another Uri.
func ToUri(from uri.Pattern, to uri.Uri) Redirect {
	return Redirect{From: from, To: to}
}

// ToFactory builds a terminal rule that binds from to an implementation factory.
func ToFactory(from uri.Pattern, factory core.Factory) Redirect {
	return Redirect{From: from, Factory: factory}
}

// Parse builds a Uri-to-Uri rule from its textual form.
func Parse(from, to string) (Redirect, error) {
	pattern, err := uri.ParsePattern(from)
	if err != nil {
		return Redirect{}, err
	}
	target, err := uri.Parse(to)
	if err != nil {
		return Redirect{}, err
	}
	return ToUri(pattern, target), nil
}

// IsTerminal reports whether the rule ends a resolution walk.
func (r Redirect) IsTerminal() bool {
	return r.Factory != nil
}

// String describes the rule for logs.
func (r Redirect) String() string {
	if r.IsTerminal() {
		return r.From.String() + " => <factory>"
	}
	return r.From.String() + " => " + r.To.String()
}
