package config

import (
	"fmt"

	"github.com/vk/wrapgrid/internal/redirect"
)

// Model is the unified, format-agnostic representation of a client
// configuration.
type Model struct {
	Redirects []RedirectDefinition
	// Concurrency caps how many requests of one query run at once. Zero
	// means no limit.
	Concurrency int
	// ModulesRoot is the directory wrap://fs Uris are resolved against.
	ModulesRoot string
}

// RedirectDefinition is the format-agnostic representation of a `redirect`
// block.
type RedirectDefinition struct {
	From string
	To   string
}

// NewModel creates an empty Model.
func NewModel() *Model {
	return &Model{}
}

// Merge appends other's redirects and takes its non-zero settings.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	m.Redirects = append(m.Redirects, other.Redirects...)
	if other.Concurrency != 0 {
		m.Concurrency = other.Concurrency
	}
	if other.ModulesRoot != "" {
		m.ModulesRoot = other.ModulesRoot
	}
}

// BuildRedirects parses every redirect definition, in order.
func (m *Model) BuildRedirects() ([]redirect.Redirect, error) {
	out := make([]redirect.Redirect, 0, len(m.Redirects))
	for i, def := range m.Redirects {
		r, err := redirect.Parse(def.From, def.To)
		if err != nil {
			return nil, fmt.Errorf("redirect #%d: %w", i+1, err)
		}
		out = append(out, r)
	}
	return out, nil
}
