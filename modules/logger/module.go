// Package logger publishes structured logging at wrap://plugin/logger, so
// queries and sandboxed modules can write to the client's log.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/plugin"
)

// URI is where the plugin is registered.
const URI = "wrap://plugin/logger"

// Module implements the plugin.Module interface for this package.
type Module struct{}

// Input defines the arguments of the 'log' method.
type Input struct {
	Level   string         `wrap:"level"`
	Message string         `wrap:"message"`
	Fields  map[string]any `wrap:"fields"`
}

// Log writes one record to the logger carried by ctx.
func Log(ctx context.Context, _ core.Invoker, input *Input) (bool, error) {
	var level slog.Level
	switch strings.ToLower(input.Level) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return false, fmt.Errorf("unknown log level: '%s'", input.Level)
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(input.Fields))
	for k := range input.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, len(keys)*2+2)
	attrs = append(attrs, "source", URI)
	for _, k := range keys {
		attrs = append(attrs, k, input.Fields[k])
	}

	ctxlog.FromContext(ctx).Log(ctx, level, input.Message, attrs...)
	return true, nil
}

// Register registers the package with the registry.
func (m *Module) Register(r *plugin.Registry) {
	r.Register(&plugin.Package{
		URI: URI,
		Methods: map[string]*plugin.Method{
			"log": {
				NewInput: func() any { return new(Input) },
				Fn:       Log,
			},
		},
	})
}
