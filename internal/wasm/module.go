package wasm

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/wrapgrid/internal/codec"
	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/uri"
)

// Module is a sandboxed implementation: a manifest bound to a compiled
// program.
type Module struct {
	uri      uri.Uri
	origin   uri.Uri
	manifest *Manifest
	program  Program
}

var _ core.Implementation = (*Module)(nil)

// NewModule binds a manifest and program found at u. Relative targets of
// sub-invocations are resolved against origin, the Uri the client was asked
// to resolve.
func NewModule(u, origin uri.Uri, manifest *Manifest, program Program) *Module {
	if origin.IsZero() {
		origin = u
	}
	return &Module{uri: u, origin: origin, manifest: manifest, program: program}
}

// Manifest returns the module's manifest.
func (m *Module) Manifest() *Manifest {
	return m.manifest
}

// Invoke validates and encodes args, runs the method and validates its
// result.
func (m *Module) Invoke(ctx context.Context, method string, args map[string]any, client core.Invoker) core.InvokeResult {
	logger := ctxlog.FromContext(ctx).With("uri", m.uri.String(), "method", method)

	sig, ok := m.manifest.Schema.Method(method)
	if !ok {
		return core.Fail(&core.MethodNotFoundError{Uri: m.uri.String(), Method: method})
	}

	fields, err := sig.BindArgs(args)
	if err != nil {
		return core.Fail(err)
	}
	payload, err := codec.EncodeRecord(fields)
	if err != nil {
		return core.Fail(err)
	}

	logger.Debug("Calling module method.", "args_bytes", len(payload))
	out, err := m.program.Call(ctx, method, payload, &host{module: m, client: client})
	if err != nil {
		if errors.Is(err, ErrMethodNotExported) {
			return core.Fail(&core.MethodNotFoundError{Uri: m.uri.String(), Method: method})
		}
		logger.Warn("Module trapped.", "error", err)
		return core.Fail(&core.ModuleTrapError{Uri: m.uri.String(), Method: method, Err: err})
	}

	raw, err := codec.DecodeValue(out)
	if err != nil {
		return core.Fail(err)
	}
	data, err := sig.BindResult(raw)
	if err != nil {
		return core.Fail(err)
	}
	return core.Ok(data)
}

// host answers a running module's sub-invocations through the client that
// invoked it.
type host struct {
	module *Module
	client core.Invoker
}

func (h *host) SubInvoke(ctx context.Context, target, method string, rawArgs []byte) []byte {
	logger := ctxlog.FromContext(ctx).With("caller", h.module.uri.String(), "target", target, "method", method)

	fail := func(err error) []byte {
		logger.Debug("Sub-invocation failed.", "error", err)
		return EncodeEnvelope(nil, &core.SubInvocationError{Uri: target, Method: method, Err: err})
	}

	if h.client == nil {
		return fail(errors.New("no client available for sub-invocations"))
	}

	u, err := uri.Resolve(h.module.origin, target)
	if err != nil {
		return fail(err)
	}

	args, err := decodeArgs(rawArgs)
	if err != nil {
		return fail(err)
	}

	res := h.client.Invoke(ctx, u.String(), method, args)
	if res.Failed() {
		return fail(res.Error)
	}
	logger.Debug("Sub-invocation completed.")
	return EncodeEnvelope(res.Data, nil)
}

func decodeArgs(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	v, err := codec.DecodeValue(raw)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return t, nil
	default:
		return nil, &core.SerializationError{Op: "decode", Path: "args", Err: fmt.Errorf("arguments must be a map, got %T", v)}
	}
}
