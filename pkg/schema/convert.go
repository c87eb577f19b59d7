package schema

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrValueType is returned when a value does not fit its field's kind.
var ErrValueType = errors.New("value does not match field kind")

// Convert maps a resolved value to its export representation:
//   - angles: degrees to radians
//   - percentages: 0..100 to a 0..1 fraction
//   - enums: identifier to integer code
//   - vectors and reference lists: copied
//
// Node, node-list and curve fields are resolved by the export pass itself
// and are rejected here.
func Convert(f Field, v any) (any, error) {
	switch f.Kind {
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindInt:
		if i, ok := v.(int); ok {
			return i, nil
		}
	case KindFloat:
		if x, ok := toFloat(v); ok {
			return scale(f.Subtype, x), nil
		}
	case KindFloatVector:
		if vec, ok := v.([]float64); ok {
			out := make([]float64, len(vec))
			for i, x := range vec {
				out[i] = scale(f.Subtype, x)
			}
			return out, nil
		}
	case KindEnum:
		if id, ok := v.(string); ok {
			code, found := f.Code(id)
			if !found {
				return nil, fmt.Errorf("%w: %s: unknown enum item %q", ErrValueType, f.Name, id)
			}
			return code, nil
		}
	case KindString, KindObject, KindImage:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindReferenceList:
		if list, ok := v.([]string); ok {
			if list == nil {
				return []string{}, nil
			}
			return slices.Clone(list), nil
		}
	default:
		return nil, fmt.Errorf("%w: %s: %s fields are resolved by the export pass", ErrValueType, f.Name, f.Kind)
	}
	return nil, fmt.Errorf("%w: %s: %s field holds %T", ErrValueType, f.Name, f.Kind, v)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}

func scale(st Subtype, x float64) float64 {
	switch st {
	case SubtypeAngle:
		return x * math.Pi / 180
	case SubtypePercentage:
		return x * 0.01
	}
	return x
}

// Check reports whether v is a valid stored value for f, including its
// range. It is used when documents are loaded.
func Check(f Field, v any) error {
	if !f.Stored() {
		return fmt.Errorf("%w: %s is derived from sockets", ErrValueType, f.Name)
	}
	switch f.Kind {
	case KindBool:
		if _, ok := v.(bool); ok {
			return nil
		}
	case KindInt:
		if i, ok := v.(int); ok {
			return checkRange(f, float64(i))
		}
	case KindFloat:
		if x, ok := v.(float64); ok {
			return checkRange(f, x)
		}
	case KindFloatVector:
		if vec, ok := v.([]float64); ok {
			def, _ := f.Default.([]float64)
			if len(vec) != len(def) {
				return fmt.Errorf("%w: %s: want %d components, got %d", ErrValueType, f.Name, len(def), len(vec))
			}
			return nil
		}
	case KindEnum:
		if id, ok := v.(string); ok {
			if _, found := f.Code(id); !found {
				return fmt.Errorf("%w: %s: unknown enum item %q", ErrValueType, f.Name, id)
			}
			return nil
		}
	case KindString, KindObject, KindImage, KindCurve:
		if _, ok := v.(string); ok {
			return nil
		}
	case KindReferenceList:
		if _, ok := v.([]string); ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: %s field holds %T", ErrValueType, f.Name, f.Kind, v)
}

func checkRange(f Field, x float64) error {
	if f.Range != nil && !f.Range.Contains(x) {
		return fmt.Errorf("%w: %s: %g outside [%g, %g]", ErrValueType, f.Name, x, f.Range.Min, f.Range.Max)
	}
	return nil
}
