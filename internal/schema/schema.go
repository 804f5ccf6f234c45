package schema

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Arg is one declared method argument.
type Arg struct {
	Name     string
	Type     cty.Type
	Nullable bool
}

// Method is the declared signature of one module entry point.
type Method struct {
	Name           string
	Args           []Arg
	Result         cty.Type
	ResultNullable bool
}

// Arg returns the declared argument called name.
func (m *Method) Arg(name string) (Arg, bool) {
	for _, a := range m.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Arg{}, false
}

// Schema is the ordered set of methods of one module.
type Schema struct {
	methods map[string]*Method
	order   []string
}

// New builds a Schema, rejecting duplicate method or argument names.
func New(methods ...*Method) (*Schema, error) {
	s := &Schema{methods: make(map[string]*Method, len(methods))}
	for _, m := range methods {
		if m == nil || m.Name == "" {
			return nil, fmt.Errorf("method must have a name")
		}
		if _, exists := s.methods[m.Name]; exists {
			return nil, fmt.Errorf("method %q declared more than once", m.Name)
		}
		seen := make(map[string]struct{}, len(m.Args))
		for _, a := range m.Args {
			if _, exists := seen[a.Name]; exists {
				return nil, fmt.Errorf("method %q: argument %q declared more than once", m.Name, a.Name)
			}
			seen[a.Name] = struct{}{}
		}
		if m.Result == cty.NilType {
			m.Result = cty.DynamicPseudoType
		}
		s.methods[m.Name] = m
		s.order = append(s.order, m.Name)
	}
	return s, nil
}

// Method returns the method called name.
func (s *Schema) Method(name string) (*Method, bool) {
	if s == nil {
		return nil, false
	}
	m, ok := s.methods[name]
	return m, ok
}

// Methods returns the methods in declaration order.
func (s *Schema) Methods() []*Method {
	if s == nil {
		return nil
	}
	out := make([]*Method, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.methods[name])
	}
	return out
}
