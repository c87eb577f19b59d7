package io

import (
	"fmt"
	"math"
	"slices"

	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// fieldValue converts a decoded document value to the stored form of f.
func fieldValue(f schema.Field, v any) (any, error) {
	switch f.Kind {
	case schema.KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case schema.KindInt:
		if i, ok := asInt(v); ok {
			return i, nil
		}
	case schema.KindFloat:
		if x, ok := asFloat(v); ok {
			return x, nil
		}
	case schema.KindFloatVector:
		if vec, ok := asFloats(v); ok {
			return vec, nil
		}
	case schema.KindEnum, schema.KindString, schema.KindObject, schema.KindImage, schema.KindCurve:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case schema.KindReferenceList:
		if v == nil {
			return []string{}, nil
		}
		if list, ok := asStrings(v); ok {
			return list, nil
		}
	}
	return nil, fmt.Errorf("%w: %s: cannot store %T in a %s field", schema.ErrValueType, f.Name, v, f.Kind)
}

// Layer value types.
const (
	typeBool        = "bool"
	typeInt         = "int"
	typeFloat       = "float"
	typeString      = "string"
	typeFloatVector = "float-vector"
	typeStringList  = "string-list"
)

// valueType names the type of an override value.
func valueType(v any) (string, error) {
	switch v.(type) {
	case bool:
		return typeBool, nil
	case int:
		return typeInt, nil
	case float64:
		return typeFloat, nil
	case string:
		return typeString, nil
	case []float64:
		return typeFloatVector, nil
	case []string:
		return typeStringList, nil
	}
	return "", fmt.Errorf("unsupported override value %T", v)
}

// typedValue converts a decoded override value to the named type.
func typedValue(typ string, v any) (any, error) {
	var (
		out any
		ok  bool
	)
	switch typ {
	case typeBool:
		out, ok = v.(bool)
	case typeInt:
		out, ok = asInt(v)
	case typeFloat:
		out, ok = asFloat(v)
	case typeString:
		out, ok = v.(string)
	case typeFloatVector:
		out, ok = asFloats(v)
	case typeStringList:
		out, ok = asStrings(v)
	case "":
		return inferValue(v)
	default:
		return nil, fmt.Errorf("unknown override type %q", typ)
	}
	if !ok {
		return nil, fmt.Errorf("override value %v is not a %s", v, typ)
	}
	return out, nil
}

// OverrideValue converts a decoded value into an override value. An
// explicit type wins. Otherwise a known field gets its stored form, and
// values that do not fit the field are inferred so the resolver can apply
// its own type gate.
func OverrideValue(typ string, field *schema.Field, v any) (any, error) {
	if typ != "" || field == nil {
		return typedValue(typ, v)
	}
	if out, err := fieldValue(*field, v); err == nil {
		return out, nil
	}
	return inferValue(v)
}

// inferValue is used for entries written without a type. Whole numbers
// become ints.
func inferValue(v any) (any, error) {
	switch x := v.(type) {
	case bool, string:
		return x, nil
	case int, int64, float64:
		if i, ok := asInt(x); ok {
			return i, nil
		}
		return asFloatValue(x), nil
	case []any:
		if s, ok := asStrings(x); ok {
			return s, nil
		}
		if f, ok := asFloats(x); ok {
			return f, nil
		}
	}
	return nil, fmt.Errorf("cannot infer override type of %T", v)
}

func asFloatValue(v any) float64 {
	x, _ := asFloat(v)
	return x
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case uint64:
		return int(x), true
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int(x), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

func asFloats(v any) ([]float64, bool) {
	switch x := v.(type) {
	case []float64:
		return slices.Clone(x), true
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, ok := asFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func asStrings(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return slices.Clone(x), true
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
