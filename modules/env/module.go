// Package env publishes the process environment at wrap://plugin/env.
package env

import (
	"context"
	"os"
	"strings"

	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/plugin"
)

// URI is where the plugin is registered.
const URI = "wrap://plugin/env"

// Module implements the plugin.Module interface for this package.
type Module struct{}

// GetInput defines the arguments of the 'get' method.
type GetInput struct {
	Name    string  `wrap:"name"`
	Default *string `wrap:"default"`
}

// Get returns one variable, the default when it is unset, or null.
func Get(ctx context.Context, _ core.Invoker, input *GetInput) (*string, error) {
	if value, ok := os.LookupEnv(input.Name); ok {
		return &value, nil
	}
	return input.Default, nil
}

// All returns every variable of the process environment.
func All(ctx context.Context, _ core.Invoker, _ map[string]any) (map[string]string, error) {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}
	return envMap, nil
}

// Register registers the package with the registry.
func (m *Module) Register(r *plugin.Registry) {
	r.Register(&plugin.Package{
		URI: URI,
		Methods: map[string]*plugin.Method{
			"get": {
				NewInput: func() any { return new(GetInput) },
				Fn:       Get,
				Nullable: true,
			},
			"all": {Fn: All},
		},
	})
}
