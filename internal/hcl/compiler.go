package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/query"
	"github.com/vk/wrapgrid/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// queryFileSchema is the top-level structure of a query document.
type queryFileSchema struct {
	Queries []*queryBlock `hcl:"query,block"`
}

type queryBlock struct {
	Key    string         `hcl:"key,label"`
	Uri    string         `hcl:"uri"`
	Method string         `hcl:"method"`
	Args   hcl.Expression `hcl:"args,optional"`
}

// Compiler is the HCL implementation of query.Compiler. A document is a
// list of query blocks; variables are available to every expression under
// `var.`:
//
//	query "sum" {
//	  uri    = "wrap://ens/calc"
//	  method = "add"
//	  args = {
//	    a = var.x
//	    b = 2
//	  }
//	}
type Compiler struct{}

var _ query.Compiler = (*Compiler)(nil)

// NewCompiler creates a new HCL query compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile parses document and evaluates every block against variables.
func (c *Compiler) Compile(ctx context.Context, document string, variables map[string]any) ([]query.Request, error) {
	logger := ctxlog.FromContext(ctx)

	evalCtx, err := newEvalContext(variables)
	if err != nil {
		return nil, err
	}

	file, diags := hclparse.NewParser().ParseHCL([]byte(document), "query.hcl")
	if diags.HasErrors() {
		return nil, diags
	}

	var root queryFileSchema
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &root); diags.HasErrors() {
		return nil, diags
	}
	if len(root.Queries) == 0 {
		return nil, fmt.Errorf("query document contains no query blocks")
	}

	requests := make([]query.Request, 0, len(root.Queries))
	for _, q := range root.Queries {
		args, err := evalArgs(q.Args, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", q.Key, err)
		}
		requests = append(requests, query.Request{Key: q.Key, Uri: q.Uri, Method: q.Method, Args: args})
	}

	logger.Debug("Compiled query document.", "requests", len(requests))
	return requests, nil
}

func newEvalContext(variables map[string]any) (*hcl.EvalContext, error) {
	vars := cty.EmptyObjectVal
	if len(variables) > 0 {
		v, err := schema.FromGo(variables)
		if err != nil {
			return nil, fmt.Errorf("invalid query variables: %w", err)
		}
		vars = v
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": vars},
	}, nil
}

func evalArgs(expr hcl.Expression, evalCtx *hcl.EvalContext) (map[string]any, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("args must be an object, got %s", val.Type().FriendlyName())
	}
	goVal, err := schema.ToGo(val)
	if err != nil {
		return nil, fmt.Errorf("invalid args: %w", err)
	}
	return goVal.(map[string]any), nil
}
