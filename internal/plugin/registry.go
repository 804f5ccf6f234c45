package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/redirect"
	"github.com/vk/wrapgrid/internal/uri"
)

// Module is the interface that all bundled plugin modules implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Method holds the compiled Go parts of one plugin method.
//
// Fn is either typed, func(context.Context, core.Invoker, *T) (R, error)
// with NewInput returning a fresh *T, or untyped,
// func(context.Context, core.Invoker, map[string]any) (any, error) with a
// nil NewInput.
//
// A method that succeeds with a nil result fails with core.EmptyResultError
// unless it is declared Nullable.
type Method struct {
	NewInput func() any
	Fn       any
	Nullable bool
}

// Package is the set of methods published under one Uri.
type Package struct {
	URI     string
	Methods map[string]*Method
}

// Registry holds every registered plugin package for a single client.
type Registry struct {
	packages map[string]*Package
	uris     map[string]uri.Uri
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		packages: make(map[string]*Package),
		uris:     make(map[string]uri.Uri),
	}
}

// Load registers every module.
func (r *Registry) Load(modules ...Module) *Registry {
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register adds a package. It panics on an invalid Uri, a duplicate Uri or a
// method whose Fn does not have a supported signature.
func (r *Registry) Register(pkg *Package) {
	u, err := uri.Parse(pkg.URI)
	if err != nil {
		panic(fmt.Sprintf("plugin package uri: %v", err))
	}
	if _, exists := r.packages[u.String()]; exists {
		panic(fmt.Sprintf("plugin package with uri '%s' already registered", u))
	}
	for name, m := range pkg.Methods {
		if err := validateMethod(m); err != nil {
			panic(fmt.Sprintf("plugin '%s' method '%s': %v", u, name, err))
		}
	}
	slog.Debug("Registering plugin package.", "uri", u.String(), "methods", len(pkg.Methods))
	r.packages[u.String()] = pkg
	r.uris[u.String()] = u
}

// Package returns the package registered under raw.
func (r *Registry) Package(raw string) (*Package, bool) {
	u, err := uri.Parse(raw)
	if err != nil {
		return nil, false
	}
	pkg, ok := r.packages[u.String()]
	return pkg, ok
}

// Len returns the number of registered packages.
func (r *Registry) Len() int {
	return len(r.packages)
}

// Redirects returns one factory redirect per package, ordered by Uri.
func (r *Registry) Redirects() []redirect.Redirect {
	keys := make([]string, 0, len(r.packages))
	for k := range r.packages {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]redirect.Redirect, 0, len(keys))
	for _, k := range keys {
		pkg := r.packages[k]
		out = append(out, redirect.ToFactory(uri.ExactPattern(r.uris[k]), func(ctx context.Context, matched, _ uri.Uri) (core.Implementation, error) {
			return New(matched, pkg), nil
		}))
	}
	return out
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	invokerType = reflect.TypeOf((*core.Invoker)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	argsType    = reflect.TypeOf(map[string]any(nil))
)

func validateMethod(m *Method) error {
	if m == nil || m.Fn == nil {
		return fmt.Errorf("handler function is nil")
	}
	fnType := reflect.TypeOf(m.Fn)
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("handler is %s, not a function", fnType)
	}
	if fnType.NumIn() != 3 || fnType.NumOut() != 2 {
		return fmt.Errorf("handler must take (ctx, client, input) and return (result, error)")
	}
	if fnType.In(0) != contextType || fnType.In(1) != invokerType {
		return fmt.Errorf("handler must start with (context.Context, core.Invoker)")
	}
	if fnType.Out(1) != errorType {
		return fmt.Errorf("handler must return error as its second result")
	}

	if m.NewInput == nil {
		if fnType.In(2) != argsType {
			return fmt.Errorf("handler without NewInput must accept map[string]any")
		}
		return nil
	}
	input := m.NewInput()
	if input == nil || reflect.TypeOf(input) != fnType.In(2) {
		return fmt.Errorf("NewInput returns %T but handler accepts %s", input, fnType.In(2))
	}
	if reflect.TypeOf(input).Kind() != reflect.Pointer {
		return fmt.Errorf("NewInput must return a pointer")
	}
	return nil
}
