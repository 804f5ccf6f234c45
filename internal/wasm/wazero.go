package wasm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/vk/wrapgrid/internal/ctxlog"
)

const (
	hostModuleName = "wrap"
	subinvokeName  = "subinvoke"
	allocName      = "wrap_alloc"
)

type hostKey struct{}

// WazeroRuntime runs modules on the wazero interpreter/compiler.
type WazeroRuntime struct {
	runtime wazero.Runtime
}

var _ Runtime = (*WazeroRuntime)(nil)

// NewWazeroRuntime creates a runtime with the WASI preview1 imports and the
// wrap host module instantiated.
func NewWazeroRuntime(ctx context.Context) (*WazeroRuntime, error) {
	r := wazero.NewRuntime(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate wasi: %w", err)
	}

	i32, i64 := api.ValueTypeI32, api.ValueTypeI64
	_, err := r.NewHostModuleBuilder(hostModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(subinvoke), []api.ValueType{i32, i32, i32, i32, i32, i32}, []api.ValueType{i64}).
		Export(subinvokeName).
		Instantiate(ctx)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate host module: %w", err)
	}

	return &WazeroRuntime{runtime: r}, nil
}

// Compile validates and compiles code.
func (w *WazeroRuntime) Compile(ctx context.Context, name string, code []byte) (Program, error) {
	compiled, err := w.runtime.CompileModule(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module %q: %w", name, err)
	}
	ctxlog.FromContext(ctx).Debug("Compiled module.", "module", name, "exports", len(compiled.ExportedFunctions()))
	return &wazeroProgram{runtime: w.runtime, compiled: compiled, name: name}, nil
}

// Close releases every compiled module and instance.
func (w *WazeroRuntime) Close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}

type wazeroProgram struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	name     string
}

// Call instantiates a fresh copy of the module, copies args into its memory
// and runs method.
func (p *wazeroProgram) Call(ctx context.Context, method string, args []byte, host Host) ([]byte, error) {
	if _, ok := p.compiled.ExportedFunctions()[method]; !ok {
		return nil, ErrMethodNotExported
	}

	ctx = context.WithValue(ctx, hostKey{}, host)
	// Anonymous instances so concurrent calls do not collide on the name.
	cfg := wazero.NewModuleConfig().WithName("").WithStartFunctions("_initialize")
	mod, err := p.runtime.InstantiateModule(ctx, p.compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module %q: %w", p.name, err)
	}
	defer mod.Close(ctx)

	ptr, err := writeGuest(ctx, mod, args)
	if err != nil {
		return nil, err
	}

	results, err := mod.ExportedFunction(method).Call(ctx, uint64(ptr), uint64(len(args)))
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("method %q returned %d values, expected one packed pointer", method, len(results))
	}

	outPtr, outLen := Unpack(results[0])
	out, ok := mod.Memory().Read(outPtr, outLen)
	if !ok {
		return nil, fmt.Errorf("result pointer %d+%d is out of memory range", outPtr, outLen)
	}
	return append([]byte(nil), out...), nil
}

// writeGuest allocates len(data) bytes in the guest and copies data there.
func writeGuest(ctx context.Context, mod api.Module, data []byte) (uint32, error) {
	alloc := mod.ExportedFunction(allocName)
	if alloc == nil {
		return 0, fmt.Errorf("module does not export %s", allocName)
	}
	mem := mod.Memory()
	if mem == nil {
		return 0, errors.New("module does not export memory")
	}

	results, err := alloc.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%s failed: %w", allocName, err)
	}
	ptr := uint32(results[0])
	if !mem.Write(ptr, data) {
		return 0, fmt.Errorf("%s returned out of range pointer %d", allocName, ptr)
	}
	return ptr, nil
}

func readGuest(mod api.Module, ptr, length uint64) []byte {
	out, ok := mod.Memory().Read(uint32(ptr), uint32(length))
	if !ok {
		panic(fmt.Sprintf("guest pointer %d+%d is out of memory range", ptr, length))
	}
	return append([]byte(nil), out...)
}

// subinvoke implements wrap.subinvoke. Panics abort the guest and surface as
// a trap of the calling method.
func subinvoke(ctx context.Context, mod api.Module, stack []uint64) {
	target := string(readGuest(mod, stack[0], stack[1]))
	method := string(readGuest(mod, stack[2], stack[3]))
	args := readGuest(mod, stack[4], stack[5])

	var envelope []byte
	if host, ok := ctx.Value(hostKey{}).(Host); ok && host != nil {
		envelope = host.SubInvoke(ctx, target, method, args)
	} else {
		envelope = EncodeEnvelope(nil, errors.New("sub-invocations are not available"))
	}

	ptr, err := writeGuest(ctx, mod, envelope)
	if err != nil {
		panic(err)
	}
	stack[0] = Pack(ptr, uint32(len(envelope)))
}
