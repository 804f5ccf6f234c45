// Package schema describes the methods a sandboxed module exposes and binds
// loosely typed invocation arguments to them.
//
// Types are go-cty types written as HCL type expressions in module
// manifests (`string`, `list(number)`, `object({ name = string })`). Every
// value that crosses into or out of a module is converted to its declared
// type first, so shape mismatches surface as *core.SerializationError
// before any bytes reach the module.
package schema
