package client

import (
	"github.com/vk/wrapgrid/internal/plugin"
	"github.com/vk/wrapgrid/internal/redirect"
	"github.com/vk/wrapgrid/internal/uri"
	"github.com/vk/wrapgrid/internal/wasm"
)

// ModulesPattern is the Uri space served by the file system module loader.
const ModulesPattern = "wrap://fs/**"

// DefaultRedirects returns the rules for every registered plugin followed,
// when loader is not nil, by the file system module loader.
func DefaultRedirects(plugins *plugin.Registry, loader *wasm.FSLoader) []redirect.Redirect {
	var out []redirect.Redirect
	if plugins != nil {
		out = append(out, plugins.Redirects()...)
	}
	if loader != nil {
		pattern, err := uri.ParsePattern(ModulesPattern)
		if err != nil {
			panic(err)
		}
		out = append(out, redirect.ToFactory(pattern, loader.Factory()))
	}
	return out
}
