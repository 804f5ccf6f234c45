package testutil

import (
	"context"
	"sync/atomic"

	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/plugin"
	"github.com/vk/wrapgrid/internal/uri"
)

// SimpleModule is a test helper for easily creating a mock module that
// registers a single plugin package.
type SimpleModule struct {
	URI     string
	Methods map[string]*plugin.Method
}

// Register implements the plugin.Module interface.
func (m *SimpleModule) Register(r *plugin.Registry) {
	r.Register(&plugin.Package{URI: m.URI, Methods: m.Methods})
}

// Untyped wraps fn as a plugin method taking raw arguments.
func Untyped(fn func(ctx context.Context, client core.Invoker, args map[string]any) (any, error)) *plugin.Method {
	return &plugin.Method{Fn: fn}
}

// CountingFactory wraps build and counts how many times it runs.
type CountingFactory struct {
	calls atomic.Int64
	build core.Factory
}

// NewCountingFactory returns a factory that delegates to build.
func NewCountingFactory(build core.Factory) *CountingFactory {
	return &CountingFactory{build: build}
}

// Factory returns the counted factory.
func (f *CountingFactory) Factory() core.Factory {
	return func(ctx context.Context, matched, origin uri.Uri) (core.Implementation, error) {
		f.calls.Add(1)
		return f.build(ctx, matched, origin)
	}
}

// Calls returns how many times the factory ran.
func (f *CountingFactory) Calls() int64 {
	return f.calls.Load()
}
