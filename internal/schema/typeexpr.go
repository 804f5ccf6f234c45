// This file contains the logic for parsing HCL type expressions (e.g., `string`,
// `list(number)`) into their corresponding cty.Type objects.

package schema

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// TypeFromExpr converts an HCL type expression into its cty.Type equivalent.
func TypeFromExpr(ctx context.Context, expr hcl.Expression) (cty.Type, error) {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		logger.Debug("Type expression is nil, defaulting to any.")
		return cty.DynamicPseudoType, nil
	}

	switch v := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		logger.Debug("Parsing type expression as a function call.", "call", v.Name)
		if len(v.Args) != 1 {
			return cty.DynamicPseudoType, fmt.Errorf("type constructors (list, map, set, object) require exactly one argument, got %d", len(v.Args))
		}

		if v.Name == "object" {
			return objectTypeFromExpr(ctx, v.Args[0])
		}

		elementType, err := TypeFromExpr(ctx, v.Args[0])
		if err != nil {
			return cty.DynamicPseudoType, err
		}

		switch v.Name {
		case "list":
			return cty.List(elementType), nil
		case "map":
			return cty.Map(elementType), nil
		case "set":
			if elementType == cty.DynamicPseudoType {
				return cty.DynamicPseudoType, fmt.Errorf("set types cannot contain type 'any'")
			}
			return cty.Set(elementType), nil
		default:
			return cty.DynamicPseudoType, fmt.Errorf("unknown type constructor function %q", v.Name)
		}

	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return cty.DynamicPseudoType, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
		}
		rootName := v.Traversal.RootName()
		switch rootName {
		case "string":
			return cty.String, nil
		case "number":
			return cty.Number, nil
		case "bool":
			return cty.Bool, nil
		case "any":
			return cty.DynamicPseudoType, nil
		default:
			return cty.DynamicPseudoType, fmt.Errorf("unknown primitive type %q", rootName)
		}

	default:
		return cty.DynamicPseudoType, fmt.Errorf("unsupported expression for type definition: %T", v)
	}
}

func objectTypeFromExpr(ctx context.Context, expr hcl.Expression) (cty.Type, error) {
	cons, ok := expr.(*hclsyntax.ObjectConsExpr)
	if !ok {
		return cty.DynamicPseudoType, fmt.Errorf("object type requires an attribute map, got %T", expr)
	}

	attrs := make(map[string]cty.Type, len(cons.Items))
	for _, item := range cons.Items {
		name := hcl.ExprAsKeyword(item.KeyExpr)
		if name == "" {
			return cty.DynamicPseudoType, fmt.Errorf("object attribute names must be identifiers")
		}
		attrType, err := TypeFromExpr(ctx, item.ValueExpr)
		if err != nil {
			return cty.DynamicPseudoType, fmt.Errorf("attribute %q: %w", name, err)
		}
		attrs[name] = attrType
	}
	return cty.Object(attrs), nil
}
