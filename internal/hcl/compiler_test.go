package hcl

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vk/wrapgrid/internal/query"
)

func TestCompiler_Compile(t *testing.T) {
	doc := `
query "sum" {
  uri    = "wrap://ens/calc"
  method = "add"
  args = {
    a = var.x
    b = 2
    tags = ["p", var.tag]
  }
}

query "sum" {
  uri    = "wrap://ens/${var.name}"
  method = "ping"
}
`
	requests, err := NewCompiler().Compile(context.Background(), doc, map[string]any{
		"x":    40,
		"tag":  "q",
		"name": "health",
	})
	require.NoError(t, err)

	want := []query.Request{
		{
			Key:    "sum",
			Uri:    "wrap://ens/calc",
			Method: "add",
			Args: map[string]any{
				"a":    int64(40),
				"b":    int64(2),
				"tags": []any{"p", "q"},
			},
		},
		{Key: "sum", Uri: "wrap://ens/health", Method: "ping"},
	}
	if diff := cmp.Diff(want, requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestCompiler_Errors(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		vars map[string]any
	}{
		{name: "syntax", doc: `query "x" {`},
		{name: "empty document", doc: ``},
		{name: "missing method", doc: `query "x" { uri = "wrap://a/b" }`},
		{name: "unknown variable", doc: `
query "x" {
  uri    = "wrap://a/b"
  method = "m"
  args   = { a = var.nope }
}`},
		{name: "args not an object", doc: `
query "x" {
  uri    = "wrap://a/b"
  method = "m"
  args   = [1, 2]
}`},
		{name: "unsupported variable", doc: `query "x" {
  uri = "wrap://a/b"
  method = "m"
}`, vars: map[string]any{"c": make(chan int)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCompiler().Compile(context.Background(), tc.doc, tc.vars)
			require.Error(t, err)
		})
	}
}
