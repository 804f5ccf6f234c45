package client

import (
	"context"
	"fmt"

	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/hcl"
	"github.com/vk/wrapgrid/internal/implcache"
	"github.com/vk/wrapgrid/internal/query"
	"github.com/vk/wrapgrid/internal/redirect"
	"github.com/vk/wrapgrid/internal/resolver"
	"github.com/vk/wrapgrid/internal/uri"
	"github.com/vk/wrapgrid/internal/wasm"
)

// Config holds everything a Client is built from.
type Config struct {
	// Redirects are the user rules. They take precedence over Defaults.
	Redirects []redirect.Redirect
	// Defaults are appended after Redirects, typically the bundled plugins
	// and the file system module loader.
	Defaults []redirect.Redirect
	// Compiler turns query documents into requests. Nil selects the HCL
	// compiler.
	Compiler query.Compiler
	// Concurrency caps how many requests of one query run at once. Zero
	// means no limit.
	Concurrency int
	// Runtime, when set, is owned by the Client and closed by Close.
	Runtime wasm.Runtime
}

// Client resolves and invokes Uris. It is safe for concurrent use.
type Client struct {
	table       *redirect.Table
	cache       *implcache.Cache
	compiler    query.Compiler
	concurrency int
	runtime     wasm.Runtime
}

var _ core.Invoker = (*Client)(nil)

// New sanitizes the redirect table and builds a Client. Malformed or
// self-cyclic redirects are reported here.
func New(cfg Config) (*Client, error) {
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency cannot be negative, got %d", cfg.Concurrency)
	}

	all := make([]redirect.Redirect, 0, len(cfg.Redirects)+len(cfg.Defaults))
	all = append(all, cfg.Redirects...)
	all = append(all, cfg.Defaults...)
	table, err := redirect.Sanitize(all)
	if err != nil {
		return nil, err
	}

	compiler := cfg.Compiler
	if compiler == nil {
		compiler = hcl.NewCompiler()
	}

	return &Client{
		table:       table,
		cache:       implcache.New(resolver.New(table)),
		compiler:    compiler,
		concurrency: cfg.Concurrency,
		runtime:     cfg.Runtime,
	}, nil
}

// Redirects returns a copy of the sanitized redirect table.
func (c *Client) Redirects() []redirect.Redirect {
	return c.table.Redirects()
}

// Invoke parses target and invokes method on it. It always returns a
// completed result; failures are reported in its Error.
func (c *Client) Invoke(ctx context.Context, target string, method string, args map[string]any) core.InvokeResult {
	u, err := uri.Parse(target)
	if err != nil {
		return core.Fail(err)
	}
	return c.InvokeRequest(ctx, core.InvokeRequest{Uri: u, Method: method, Args: args})
}

// InvokeRequest resolves req.Uri through the cache and dispatches the call.
// Panics raised while resolving or invoking are recovered into the result.
func (c *Client) InvokeRequest(ctx context.Context, req core.InvokeRequest) (res core.InvokeResult) {
	logger := ctxlog.FromContext(ctx).With("uri", req.Uri.String(), "method", req.Method)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Invocation panicked.", "panic", r)
			res = core.Fail(&core.PluginPanicError{Uri: req.Uri.String(), Method: req.Method, Value: r})
		}
	}()

	if req.Uri.IsZero() {
		return core.Fail(&uri.InvalidUriError{Reason: "uri cannot be empty"})
	}

	impl, err := c.cache.GetOrResolve(ctx, req.Uri)
	if err != nil {
		logger.Debug("Resolution failed.", "error", err)
		return core.Fail(err)
	}

	logger.Debug("Invoking method.")
	res = impl.Invoke(ctx, req.Method, req.Args, c)
	if !res.Completed() {
		return core.Fail(&core.EmptyResultError{Uri: req.Uri.String(), Method: req.Method})
	}
	if res.Failed() {
		logger.Debug("Invocation failed.", "error", res.Error)
	}
	return res
}

// CacheSize returns how many Uris currently have a cached implementation.
func (c *Client) CacheSize() int {
	return c.cache.Len()
}

// Close drops every cached implementation and closes the owned runtime.
func (c *Client) Close(ctx context.Context) error {
	c.cache.Purge()
	if c.runtime != nil {
		return c.runtime.Close(ctx)
	}
	return nil
}
