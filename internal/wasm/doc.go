// Package wasm is the sandboxed-module backend for invocable APIs.
//
// A module is a directory holding a manifest (wrap.hcl) and a compiled
// WebAssembly program (wrap.wasm). The manifest declares every method with
// its argument and result types; arguments are validated against it before
// the program is entered and results are validated on the way out.
//
// # Guest ABI
//
// All pointers and lengths are i32 offsets into the guest's exported memory.
// A 64-bit "packed" value carries a pointer in its high 32 bits and a length
// in its low 32 bits.
//
// The guest exports:
//
//	memory
//	wrap_alloc(len i32) -> i32
//	<method>(argsPtr i32, argsLen i32) -> i64   one export per manifest method
//
// Arguments are a MessagePack map whose entries follow the manifest's
// declaration order. The method returns a packed pointer to its MessagePack
// encoded result.
//
// The host provides one import:
//
//	wrap.subinvoke(uriPtr, uriLen, methodPtr, methodLen, argsPtr, argsLen i32) -> i64
//
// It invokes another Uri through the same client that is running the module
// and returns a packed pointer to a MessagePack envelope {data, error}. A
// failed nested invocation is reported through the envelope's error string;
// it never traps the caller. Each call runs in a fresh module instance.
package wasm
