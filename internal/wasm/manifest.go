// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the module manifest and the logic for parsing it from
// HCL. A manifest is the typed contract of a sandboxed module:
//
//	module "calc" {
//	  description = "Basic arithmetic"
//
//	  method "add" {
//	    arg "a" { type = number }
//	    arg "b" { type = number }
//	    arg "label" {
//	      type     = string
//	      nullable = true
//	    }
//	    result {
//	      type = number
//	    }
//	  }
//	}
//
// Arguments are encoded in the order their blocks appear.
package wasm

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// Manifest is the parsed, format-agnostic description of a module.
type Manifest struct {
	Name        string
	Description string
	Schema      *schema.Schema
}

// manifestRootSchema expects exactly one 'module' block.
type manifestRootSchema struct {
	Modules []*hclModule `hcl:"module,block"`
}

type hclModule struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

var moduleBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "method", LabelNames: []string{"name"}},
	},
}

var methodBodySchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "arg", LabelNames: []string{"name"}},
		{Type: "result"},
	},
}

// typedBodySchema is shared by 'arg' and 'result' blocks.
var typedBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		// `type` is required, but we check for its existence manually
		// to provide a better error message.
		{Name: "type"},
		{Name: "nullable"},
	},
}

// ParseManifest parses the manifest source found in filename.
func ParseManifest(ctx context.Context, src []byte, filename string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing module manifest.", "file_path", filename)

	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}

	root := &manifestRootSchema{}
	if diags := gohcl.DecodeBody(file.Body, nil, root); diags.HasErrors() {
		return nil, diags
	}
	if len(root.Modules) != 1 {
		return nil, fmt.Errorf("%s: expected exactly one module block, found %d", filename, len(root.Modules))
	}

	manifest, diags := parseModule(ctx, root.Modules[0])
	if diags.HasErrors() {
		return nil, diags
	}

	logger.Debug("Successfully parsed module manifest.", "module", manifest.Name, "methods", len(manifest.Schema.Methods()))
	return manifest, nil
}

func parseModule(ctx context.Context, m *hclModule) (*Manifest, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	content, contentDiags := m.Body.Content(moduleBodySchema)
	diags = append(diags, contentDiags...)
	if contentDiags.HasErrors() {
		return nil, diags
	}

	manifest := &Manifest{Name: m.Name}
	if attr, exists := content.Attributes["description"]; exists {
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &manifest.Description)...)
	}

	var methods []*schema.Method
	for _, block := range content.Blocks.OfType("method") {
		method, methodDiags := parseMethod(ctx, block)
		diags = append(diags, methodDiags...)
		if method != nil {
			methods = append(methods, method)
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}

	s, err := schema.New(methods...)
	if err != nil {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid module schema",
			Detail:   err.Error(),
		})
		return nil, diags
	}
	manifest.Schema = s
	return manifest, diags
}

func parseMethod(ctx context.Context, block *hcl.Block) (*schema.Method, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	// The schema guarantees us one label.
	method := &schema.Method{Name: block.Labels[0], Result: cty.DynamicPseudoType, ResultNullable: true}

	content, contentDiags := block.Body.Content(methodBodySchema)
	diags = append(diags, contentDiags...)
	if contentDiags.HasErrors() {
		return nil, diags
	}

	for _, argBlock := range content.Blocks.OfType("arg") {
		ty, nullable, typeDiags := parseTyped(ctx, argBlock)
		diags = append(diags, typeDiags...)
		if typeDiags.HasErrors() {
			continue
		}
		method.Args = append(method.Args, schema.Arg{Name: argBlock.Labels[0], Type: ty, Nullable: nullable})
	}

	results := content.Blocks.OfType("result")
	if len(results) > 1 {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Duplicate result block",
			Detail:   fmt.Sprintf("Method '%s' declares more than one result.", method.Name),
			Subject:  &results[1].DefRange,
		})
	} else if len(results) == 1 {
		ty, nullable, typeDiags := parseTyped(ctx, results[0])
		diags = append(diags, typeDiags...)
		method.Result, method.ResultNullable = ty, nullable
	}

	return method, diags
}

func parseTyped(ctx context.Context, block *hcl.Block) (cty.Type, bool, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	content, contentDiags := block.Body.Content(typedBodySchema)
	diags = append(diags, contentDiags...)
	if contentDiags.HasErrors() {
		return cty.DynamicPseudoType, false, diags
	}

	// Manually check for the required 'type' attribute for a better error.
	typeAttr, exists := content.Attributes["type"]
	if !exists {
		missingItemRange := block.Body.MissingItemRange()
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Missing 'type' attribute",
			Detail:   fmt.Sprintf("The 'type' attribute is required for %s blocks.", block.Type),
			Subject:  &missingItemRange,
		})
		return cty.DynamicPseudoType, false, diags
	}

	ty, err := schema.TypeFromExpr(ctx, typeAttr.Expr)
	if err != nil {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid type",
			Detail:   err.Error(),
			Subject:  typeAttr.Expr.Range().Ptr(),
		})
		return cty.DynamicPseudoType, false, diags
	}

	var nullable bool
	if attr, exists := content.Attributes["nullable"]; exists {
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &nullable)...)
	}
	return ty, nullable, diags
}
