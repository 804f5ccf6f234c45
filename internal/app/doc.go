// Package app wires configuration, bundled plugins, the wasm runtime and the
// client together, then runs one query document or one direct invocation and
// prints the JSON result.
package app
