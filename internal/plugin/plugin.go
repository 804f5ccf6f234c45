package plugin

import (
	"context"
	"reflect"

	"github.com/vk/wrapgrid/internal/codec"
	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/uri"
)

// Plugin is a resolved plugin package bound to the Uri that matched it.
type Plugin struct {
	uri uri.Uri
	pkg *Package
}

var _ core.Implementation = (*Plugin)(nil)

// New creates a Plugin implementation for pkg.
func New(u uri.Uri, pkg *Package) *Plugin {
	return &Plugin{uri: u, pkg: pkg}
}

// Invoke binds args onto the method's input and calls it. Results are
// normalized through the codec so callers always see plain values keyed by
// their wrap tags.
func (p *Plugin) Invoke(ctx context.Context, method string, args map[string]any, client core.Invoker) (res core.InvokeResult) {
	logger := ctxlog.FromContext(ctx).With("uri", p.uri.String(), "method", method)

	m, ok := p.pkg.Methods[method]
	if !ok {
		return core.Fail(&core.MethodNotFoundError{Uri: p.uri.String(), Method: method})
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Plugin method panicked.", "panic", r)
			res = core.Fail(&core.PluginPanicError{Uri: p.uri.String(), Method: method, Value: r})
		}
	}()

	var input reflect.Value
	if m.NewInput == nil {
		if args == nil {
			args = map[string]any{}
		}
		input = reflect.ValueOf(args)
	} else {
		in := m.NewInput()
		if len(args) > 0 {
			if err := codec.Convert(args, in); err != nil {
				return core.Fail(err)
			}
		}
		input = reflect.ValueOf(in)
	}

	logger.Debug("Calling plugin method.")
	results := reflect.ValueOf(m.Fn).Call([]reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(&client).Elem(),
		input,
	})
	if errResult := results[1].Interface(); errResult != nil {
		return core.Fail(errResult.(error))
	}

	data, err := normalize(results[0].Interface())
	if err != nil {
		return core.Fail(err)
	}
	if data == nil && !m.Nullable {
		return core.Fail(&core.EmptyResultError{Uri: p.uri.String(), Method: method})
	}
	return core.Ok(data)
}

func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := codec.Marshal(v)
	if err != nil {
		return nil, err
	}
	return codec.DecodeValue(raw)
}
