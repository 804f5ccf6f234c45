package wasm

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/wrapgrid/internal/codec"
)

// ErrMethodNotExported is returned by Program.Call when the program has no
// export for the requested method.
var ErrMethodNotExported = errors.New("method is not exported by the module")

// Host services the imports of a running module.
type Host interface {
	// SubInvoke runs a nested invocation and returns the encoded envelope.
	SubInvoke(ctx context.Context, target, method string, args []byte) []byte
}

// Program is a compiled module that can be called any number of times.
type Program interface {
	Call(ctx context.Context, method string, args []byte, host Host) ([]byte, error)
}

// Runtime compiles module code into Programs.
type Runtime interface {
	Compile(ctx context.Context, name string, code []byte) (Program, error)
	Close(ctx context.Context) error
}

// Pack combines a guest pointer and length into one i64 return value.
func Pack(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// Unpack splits a packed i64 into a guest pointer and length.
func Unpack(v uint64) (ptr, length uint32) {
	return uint32(v >> 32), uint32(v)
}

// Envelope is the result of a nested invocation as seen by the guest.
type Envelope struct {
	Data  any
	Error *string
}

// EncodeEnvelope encodes the outcome of a nested invocation. Data that
// cannot be encoded is reported as an error envelope.
func EncodeEnvelope(data any, err error) []byte {
	env := map[string]any{"data": data, "error": nil}
	if err != nil {
		env = map[string]any{"data": nil, "error": err.Error()}
	}
	out, encErr := codec.Marshal(env)
	if encErr != nil {
		out, _ = codec.Marshal(map[string]any{"data": nil, "error": encErr.Error()})
	}
	return out
}

// DecodeEnvelope decodes an envelope produced by EncodeEnvelope.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	v, err := codec.DecodeValue(raw)
	if err != nil {
		return Envelope{}, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return Envelope{}, fmt.Errorf("envelope is %T, not a map", v)
	}
	env := Envelope{Data: m["data"]}
	if msg, ok := m["error"].(string); ok {
		env.Error = &msg
	}
	return env, nil
}
