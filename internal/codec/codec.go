// Package codec is the binary serialization shared by the sandboxed-module
// ABI and plugin argument binding. It is MessagePack: every value carries
// its own type marker and length prefix, and nil is an explicit marker, so
// nullable fields and nested sequences round-trip exactly.
package codec

import (
	"bytes"
	"fmt"

	"github.com/vk/wrapgrid/internal/core"
	"github.com/vmihailenco/msgpack/v5"
)

// Field is one named member of a record, encoded in declaration order.
type Field struct {
	Name  string
	Value any
}

// Marshal encodes v. Map keys are sorted so equal values encode equally.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	enc.SetCustomStructTag("wrap")
	if err := enc.Encode(v); err != nil {
		return nil, &core.SerializationError{Op: "encode", Err: err}
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v, which must be a non-nil pointer.
func Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("wrap")
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(v); err != nil {
		return &core.SerializationError{Op: "decode", Err: err}
	}
	return nil
}

// DecodeValue decodes data into plain Go values: nil, bool, int64, uint64,
// float64, string, []byte, []any and map[string]any.
func DecodeValue(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, &core.SerializationError{Op: "decode", Err: fmt.Errorf("empty payload")}
	}
	var v any
	if err := Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeRecord encodes fields as a map whose entries follow the order of
// fields rather than key order. Record layouts derived from a schema use it
// so the bytes follow the declaration.
func EncodeRecord(fields []Field) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	enc.SetCustomStructTag("wrap")

	if err := enc.EncodeMapLen(len(fields)); err != nil {
		return nil, &core.SerializationError{Op: "encode", Err: err}
	}
	for _, f := range fields {
		if err := enc.EncodeString(f.Name); err != nil {
			return nil, &core.SerializationError{Op: "encode", Path: f.Name, Err: err}
		}
		if err := enc.Encode(f.Value); err != nil {
			return nil, &core.SerializationError{Op: "encode", Path: f.Name, Err: err}
		}
	}
	return buf.Bytes(), nil
}

// Convert re-shapes src into dst by encoding and decoding it, which binds
// loosely typed arguments (map[string]any) onto typed input structs.
func Convert(src any, dst any) error {
	data, err := Marshal(src)
	if err != nil {
		return err
	}
	return Unmarshal(data, dst)
}
