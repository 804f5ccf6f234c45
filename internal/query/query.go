// Package query defines compiled query documents: an ordered list of keyed
// invocation requests, and the rules for giving every request a unique
// result key.
package query

import (
	"context"
	"fmt"
	"strconv"
)

// Request is one invocation compiled from a query document.
type Request struct {
	Key    string
	Uri    string
	Method string
	Args   map[string]any
}

// Compiler turns a query document and its variables into requests, in
// document order.
type Compiler interface {
	Compile(ctx context.Context, document string, variables map[string]any) ([]Request, error)
}

// AssignKeys returns one unique key per request, in request order. A
// request without a key uses its method name. A key already taken gets the
// first free numeric suffix: foo, foo_1, foo_2.
func AssignKeys(requests []Request) []string {
	keys := make([]string, len(requests))
	used := make(map[string]struct{}, len(requests))
	for i, r := range requests {
		base := r.Key
		if base == "" {
			base = r.Method
		}
		key := base
		for n := 1; ; n++ {
			if _, taken := used[key]; !taken {
				break
			}
			key = base + "_" + strconv.Itoa(n)
		}
		used[key] = struct{}{}
		keys[i] = key
	}
	return keys
}

// FieldError attributes a failure to the result key of the request that
// produced it.
type FieldError struct {
	Key string
	Err error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
