package core

import (
	"context"

	"github.com/vk/wrapgrid/internal/uri"
)

// Invoker is the calling client as seen by an implementation. Plugins and
// sandboxed modules use it to issue nested invocations that go through the
// same redirect table and cache as the outer call.
type Invoker interface {
	Invoke(ctx context.Context, target string, method string, args map[string]any) InvokeResult
}

// Implementation is a resolved, invocable API. The variant (plugin or
// sandboxed module) is decided once, when the Uri is bound.
type Implementation interface {
	Invoke(ctx context.Context, method string, args map[string]any, client Invoker) InvokeResult
}

// Factory builds an Implementation for the Uri a redirect rule matched.
// origin is the Uri the resolution started from; sandboxed modules resolve
// their own sub-invocations relative to it.
type Factory func(ctx context.Context, matched uri.Uri, origin uri.Uri) (Implementation, error)

// InvokeRequest is one method invocation, optionally tagged with the result
// key it was compiled from.
type InvokeRequest struct {
	Key    string
	Uri    uri.Uri
	Method string
	Args   map[string]any
}

// InvokeResult carries exactly one meaningful outcome of a completed call.
// Build it with Ok or Fail; the zero value means the call never completed.
type InvokeResult struct {
	Data  any
	Error error
	done  bool
}

// Ok returns a successful result. A nil data value is a legitimate null.
func Ok(data any) InvokeResult {
	return InvokeResult{Data: data, done: true}
}

// Fail returns a failed result.
func Fail(err error) InvokeResult {
	return InvokeResult{Error: err, done: true}
}

// Completed reports whether the result was produced by Ok or Fail.
func (r InvokeResult) Completed() bool {
	return r.done
}

// Failed reports whether the result carries an error.
func (r InvokeResult) Failed() bool {
	return r.Error != nil
}
