package schema

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/vk/wrapgrid/internal/codec"
	"github.com/vk/wrapgrid/internal/core"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// BindArgs checks args against the declared argument types and returns them
// as record fields in declaration order. Conforming values are passed on
// unchanged; others are converted when the declared type allows it. Missing or null arguments are only
// accepted when the argument is nullable; undeclared arguments are rejected.
func (m *Method) BindArgs(args map[string]any) ([]codec.Field, error) {
	fields := make([]codec.Field, 0, len(m.Args))
	for _, a := range m.Args {
		path := m.Name + "." + a.Name
		raw, present := args[a.Name]
		if !present || raw == nil {
			if !a.Nullable {
				return nil, &core.SerializationError{Op: "encode", Path: path, Err: errors.New("missing required argument")}
			}
			fields = append(fields, codec.Field{Name: a.Name})
			continue
		}

		val, err := bindValue(raw, a.Type, false)
		if err != nil {
			return nil, &core.SerializationError{Op: "encode", Path: path, Err: err}
		}
		fields = append(fields, codec.Field{Name: a.Name, Value: val})
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if _, ok := m.Arg(name); !ok {
			return nil, &core.SerializationError{Op: "encode", Path: m.Name + "." + name, Err: errors.New("unexpected argument")}
		}
	}
	return fields, nil
}

// BindResult checks a decoded module result against the declared result
// type. A conforming result is returned unchanged.
func (m *Method) BindResult(v any) (any, error) {
	val, err := bindValue(v, m.Result, m.ResultNullable)
	if err != nil {
		return nil, &core.SerializationError{Op: "decode", Path: m.Name, Err: err}
	}
	return val, nil
}

func bindValue(raw any, ty cty.Type, nullable bool) (any, error) {
	if raw == nil {
		if nullable || ty == cty.DynamicPseudoType {
			return nil, nil
		}
		return nil, errors.New("value cannot be null")
	}

	val, err := FromGo(raw)
	if err != nil {
		return nil, err
	}
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return nil, fmt.Errorf("cannot use %s as %s: %w", val.Type().FriendlyName(), ty.FriendlyName(), err)
	}
	return conform(raw, converted)
}

// conform returns raw wherever it already has the shape of want, so a value
// that matches its declared type is passed on exactly as given. Only the
// parts that needed a conversion, such as a string given for a number, are
// taken from want.
func conform(raw any, want cty.Value) (any, error) {
	if want.IsNull() {
		return nil, nil
	}
	rv := reflect.ValueOf(raw)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return ToGo(want)
	}

	ty := want.Type()
	switch {
	case ty == cty.String:
		if rv.Kind() == reflect.String {
			return rv.Interface(), nil
		}
	case ty == cty.Bool:
		if rv.Kind() == reflect.Bool {
			return rv.Interface(), nil
		}
	case ty == cty.Number:
		if isNumberKind(rv.Kind()) {
			return rv.Interface(), nil
		}
	case ty.IsListType() || ty.IsTupleType():
		if isSequence(rv) && rv.Len() == want.LengthInt() {
			out := make([]any, rv.Len())
			for i := range out {
				elem, err := conform(rv.Index(i).Interface(), want.Index(cty.NumberIntVal(int64(i))))
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				out[i] = elem
			}
			return out, nil
		}
	case ty.IsSetType():
		if isSequence(rv) && rv.Len() == want.LengthInt() {
			out := make([]any, rv.Len())
			for i := range out {
				src := rv.Index(i).Interface()
				val, err := FromGo(src)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				converted, err := convert.Convert(val, ty.ElementType())
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				if out[i], err = conform(src, converted); err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
			}
			return out, nil
		}
	case ty.IsMapType() || ty.IsObjectType():
		if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
			return conformMap(rv, want)
		}
	}
	return ToGo(want)
}

func conformMap(rv reflect.Value, want cty.Value) (any, error) {
	ty := want.Type()
	out := make(map[string]any, rv.Len())
	for iter := rv.MapRange(); iter.Next(); {
		name := iter.Key().String()
		var elem cty.Value
		switch {
		case ty.IsObjectType():
			if !ty.HasAttribute(name) {
				continue
			}
			elem = want.GetAttr(name)
		default:
			key := cty.StringVal(name)
			if !want.HasIndex(key).True() {
				continue
			}
			elem = want.Index(key)
		}
		v, err := conform(iter.Value().Interface(), elem)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = v
	}
	if ty.IsObjectType() {
		for name := range ty.AttributeTypes() {
			if _, ok := out[name]; ok {
				continue
			}
			if rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())).IsValid() {
				continue
			}
			v, err := ToGo(want.GetAttr(name))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out[name] = v
		}
	}
	return out, nil
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isSequence(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}
