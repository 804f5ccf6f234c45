// Package client is the invocation orchestrator: the public face of the
// engine. A Client owns an immutable redirect table and an implementation
// cache, resolves Uris on demand, dispatches method calls to plugin or
// sandboxed-module implementations and aggregates the results of query
// documents.
//
// A Client is also the core.Invoker handed to every implementation, so
// nested calls made by plugins and sandboxed modules go through the same
// table and cache as the outer call.
package client
