package core

import (
	"fmt"
	"strings"
)

// InvalidRedirectError reports a malformed redirect rule.
type InvalidRedirectError struct {
	From   string
	Reason string
}

func (e *InvalidRedirectError) Error() string {
	return fmt.Sprintf("invalid redirect from %q: %s", e.From, e.Reason)
}

// CyclicRedirectError reports a rule that redirects a Uri to itself.
type CyclicRedirectError struct {
	Uri string
}

func (e *CyclicRedirectError) Error() string {
	return fmt.Sprintf("redirect from %q points to itself", e.Uri)
}

// RedirectCycleError reports a multi-hop cycle found while walking the table.
type RedirectCycleError struct {
	Path []string
}

func (e *RedirectCycleError) Error() string {
	return "redirect cycle detected: " + strings.Join(e.Path, " -> ")
}

// UnresolvedUriError reports a walk that ended on a Uri no rule matches.
type UnresolvedUriError struct {
	Uri  string
	Path []string
}

func (e *UnresolvedUriError) Error() string {
	if len(e.Path) > 1 {
		return fmt.Sprintf("unable to resolve uri %q (via %s)", e.Uri, strings.Join(e.Path, " -> "))
	}
	return fmt.Sprintf("unable to resolve uri %q", e.Uri)
}

// InstantiationError reports a factory that failed to build an implementation.
type InstantiationError struct {
	Uri string
	Err error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate %q: %v", e.Uri, e.Err)
}

func (e *InstantiationError) Unwrap() error { return e.Err }

// MethodNotFoundError reports a method the implementation does not expose.
type MethodNotFoundError struct {
	Uri    string
	Method string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method %q not found on %q", e.Method, e.Uri)
}

// SerializationError reports an argument or result that does not fit the
// expected shape.
type SerializationError struct {
	Op   string // "encode" or "decode"
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// ModuleTrapError reports a sandboxed module that aborted. It fails only the
// invocation that trapped.
type ModuleTrapError struct {
	Uri    string
	Method string
	Err    error
}

func (e *ModuleTrapError) Error() string {
	return fmt.Sprintf("module %q trapped in %q: %v", e.Uri, e.Method, e.Err)
}

func (e *ModuleTrapError) Unwrap() error { return e.Err }

// SubInvocationError reports a nested invocation issued by a sandboxed
// module that failed. The module receives it as a value.
type SubInvocationError struct {
	Uri    string
	Method string
	Err    error
}

func (e *SubInvocationError) Error() string {
	return fmt.Sprintf("sub-invocation %s.%s failed: %v", e.Uri, e.Method, e.Err)
}

func (e *SubInvocationError) Unwrap() error { return e.Err }

// PluginPanicError reports a plugin method that panicked.
type PluginPanicError struct {
	Uri    string
	Method string
	Value  any
}

func (e *PluginPanicError) Error() string {
	return fmt.Sprintf("plugin %q panicked in %q: %v", e.Uri, e.Method, e.Value)
}

// EmptyResultError reports an implementation that returned neither data nor
// an error.
type EmptyResultError struct {
	Uri    string
	Method string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("invocation of %q on %q completed without data or error", e.Method, e.Uri)
}
