package client

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/query"
	"golang.org/x/sync/errgroup"
)

// QueryResult is the outcome of a query document. Data holds one entry per
// request key, nil for failed requests. Errors holds one *query.FieldError
// per failed request, in request order.
type QueryResult struct {
	Keys   []string
	Data   map[string]any
	Errors []error
}

// Query compiles document and runs every request concurrently. One failing
// request never fails the others.
func (c *Client) Query(ctx context.Context, document string, variables map[string]any) QueryResult {
	logger := ctxlog.FromContext(ctx)

	requests, err := c.compiler.Compile(ctx, document, variables)
	if err != nil {
		logger.Debug("Query compilation failed.", "error", err)
		return QueryResult{Data: map[string]any{}, Errors: []error{err}}
	}

	keys := query.AssignKeys(requests)
	results := make([]core.InvokeResult, len(requests))

	var g errgroup.Group
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, r := range requests {
		g.Go(func() error {
			results[i] = c.Invoke(ctx, r.Uri, r.Method, r.Args)
			return nil
		})
	}
	_ = g.Wait()

	out := QueryResult{Keys: keys, Data: make(map[string]any, len(keys))}
	for i, res := range results {
		out.Data[keys[i]] = res.Data
		if res.Error != nil {
			out.Errors = append(out.Errors, &query.FieldError{Key: keys[i], Err: res.Error})
		}
	}
	logger.Debug("Query finished.", "requests", len(requests), "errors", len(out.Errors))
	return out
}

// MarshalJSON renders data in key order followed by the error messages.
func (r QueryResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"data":{`)
	for i, k := range r.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Data[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString(`}`)

	if len(r.Errors) > 0 {
		msgs := make([]string, len(r.Errors))
		for i, e := range r.Errors {
			msgs[i] = e.Error()
		}
		errs, err := json.Marshal(msgs)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"errors":`)
		buf.Write(errs)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
