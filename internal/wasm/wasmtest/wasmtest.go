// Package wasmtest provides an in-process stand-in for a WebAssembly runtime.
// Guests are Go functions, so module behavior, sub-invocations and traps can
// be scripted in tests without compiled binaries.
package wasmtest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/wrapgrid/internal/codec"
	"github.com/vk/wrapgrid/internal/wasm"
)

// Func is a scripted guest method. It receives the encoded arguments and
// returns the encoded result; a returned error is a trap.
type Func func(ctx context.Context, args []byte, host wasm.Host) ([]byte, error)

// Program is a scripted module.
type Program struct {
	Methods map[string]Func
	calls   atomic.Int64
}

// Call runs the scripted method. Panics in a method are reported as traps.
func (p *Program) Call(ctx context.Context, method string, args []byte, host wasm.Host) (out []byte, err error) {
	fn, ok := p.Methods[method]
	if !ok {
		return nil, wasm.ErrMethodNotExported
	}
	p.calls.Add(1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unreachable: %v", r)
		}
	}()
	return fn(ctx, args, host)
}

// Calls returns how many times any method ran.
func (p *Program) Calls() int64 {
	return p.calls.Load()
}

// Runtime compiles code by looking it up in a table of scripted programs.
type Runtime struct {
	mu       sync.Mutex
	programs map[string]*Program
	compiles map[string]int
	closed   bool
}

var _ wasm.Runtime = (*Runtime)(nil)

// NewRuntime creates an empty Runtime.
func NewRuntime() *Runtime {
	return &Runtime{programs: make(map[string]*Program), compiles: make(map[string]int)}
}

// Add registers p under code; compiling exactly that code yields p.
func (r *Runtime) Add(code string, p *Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[code] = p
}

// Compile returns the program registered for code.
func (r *Runtime) Compile(_ context.Context, name string, code []byte) (wasm.Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.programs[string(code)]
	if !ok {
		return nil, fmt.Errorf("failed to compile module %q: invalid magic number", name)
	}
	r.compiles[string(code)]++
	return p, nil
}

// Compiles reports how many times code was compiled.
func (r *Runtime) Compiles(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.compiles[string(code)]
}

// Close marks the runtime closed.
func (r *Runtime) Close(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *Runtime) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Args decodes a scripted method's argument record.
func Args(raw []byte) (map[string]any, error) {
	v, err := codec.DecodeValue(raw)
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]any)
	return m, nil
}

// Result encodes a scripted method's result.
func Result(v any) []byte {
	out, err := codec.Marshal(v)
	if err != nil {
		panic(err)
	}
	return out
}

// SubInvoke encodes args, calls the host and decodes the envelope.
func SubInvoke(ctx context.Context, host wasm.Host, target, method string, args map[string]any) (wasm.Envelope, error) {
	raw, err := codec.Marshal(args)
	if err != nil {
		return wasm.Envelope{}, err
	}
	return wasm.DecodeEnvelope(host.SubInvoke(ctx, target, method, raw))
}
