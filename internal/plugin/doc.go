// Package plugin is the native backend for invocable APIs.
//
// A plugin is a Package of Go methods published under a single wrap Uri.
// Modules add their packages to a Registry at startup; the Registry then
// produces the factory redirects that bind each package Uri to a Plugin
// implementation. Arguments arrive as loosely typed maps and are bound onto
// each method's input struct through the msgpack codec, so a method sees a
// fully typed value or is never called at all.
package plugin
