package override

import "reflect"

// Attributes is the view of a node the resolver needs: its name, used to
// build paths, and its stored field values.
type Attributes interface {
	Name() string
	Attr(field string) (any, bool)
}

// Result is the outcome of a resolution.
type Result struct {
	// Value is the effective value.
	Value any
	// Layer is the name of the layer that supplied Value, or "" when the
	// stored value (or the default) was used.
	Layer string
	// Key is the literal key or pattern that matched; for non-overridden
	// results it is the attribute path.
	Key string
}

// Overridden reports whether a layer supplied the value.
func (r Result) Overridden() bool { return r.Layer != "" }

// Resolve returns the effective value of field on node.
//
// If the node does not carry the field and def is given, def[0] is returned
// without consulting the layers. Otherwise the layers are walked in order
// and the first type-compatible candidate wins.
func Resolve(node Attributes, field string, stack Stack, def ...any) Result {
	field = Canonical(field)
	path := Path(node.Name(), field)

	base, ok := node.Attr(field)
	if !ok {
		if len(def) > 0 {
			return Result{Value: def[0], Key: path}
		}
		return Result{Key: path}
	}

	for _, layer := range stack {
		if layer == nil {
			continue
		}
		e, found := layer.lookup(path)
		if !found || e.Value == nil {
			continue
		}
		if v, accepted := Coerce(base, e.Value); accepted {
			return Result{Value: v, Layer: layer.Name, Key: e.Key}
		}
	}
	return Result{Value: base, Key: path}
}

// Value is shorthand for Resolve(...).Value.
func Value(node Attributes, field string, stack Stack, def ...any) any {
	return Resolve(node, field, stack, def...).Value
}

// IsOverridden reports whether any layer supplies field for node.
func IsOverridden(node Attributes, field string, stack Stack) bool {
	return Resolve(node, field, stack).Overridden()
}

// Bool resolves a boolean field. Non-boolean results yield def.
func Bool(node Attributes, field string, stack Stack, def bool) bool {
	if b, ok := Value(node, field, stack, def).(bool); ok {
		return b
	}
	return def
}

// Float resolves a numeric field as float64. Non-numeric results yield def.
func Float(node Attributes, field string, stack Stack, def float64) float64 {
	switch v := Value(node, field, stack, def).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// Int resolves an integer field. Non-integer results yield def.
func Int(node Attributes, field string, stack Stack, def int) int {
	if v, ok := Value(node, field, stack, def).(int); ok {
		return v
	}
	return def
}

// String resolves a string field. Non-string results yield def.
func String(node Attributes, field string, stack Stack, def string) string {
	if v, ok := Value(node, field, stack, def).(string); ok {
		return v
	}
	return def
}

// Coerce applies the type gate to an override candidate. It returns the
// value to use and whether the candidate was accepted:
//   - identical dynamic types are accepted as-is
//   - an int over a bool base becomes v != 0
//   - equal-length sequences whose first elements share a type are
//     accepted and converted to the base's slice type when possible
func Coerce(base, candidate any) (any, bool) {
	if base == nil || candidate == nil {
		return nil, false
	}
	bt, ct := reflect.TypeOf(base), reflect.TypeOf(candidate)
	if bt == ct {
		return candidate, true
	}
	if b, ok := candidate.(int); ok && bt.Kind() == reflect.Bool {
		return b != 0, true
	}

	bv, cv := reflect.ValueOf(base), reflect.ValueOf(candidate)
	if !isSequence(bv) || !isSequence(cv) || bv.Len() != cv.Len() || bv.Len() == 0 {
		return nil, false
	}
	if elemType(bv, 0) != elemType(cv, 0) {
		return nil, false
	}
	return reshape(cv, bt), true
}

func isSequence(v reflect.Value) bool {
	k := v.Kind()
	return k == reflect.Slice || k == reflect.Array
}

// elemType returns the dynamic type of the i-th element, looking through
// interface elements.
func elemType(v reflect.Value, i int) reflect.Type {
	e := v.Index(i)
	if e.Kind() == reflect.Interface {
		if e.IsNil() {
			return nil
		}
		e = e.Elem()
	}
	return e.Type()
}

// reshape converts a sequence into the slice type of the base value. Elements
// that cannot be converted leave the candidate untouched.
func reshape(cv reflect.Value, target reflect.Type) any {
	if target.Kind() != reflect.Slice {
		return cv.Interface()
	}
	out := reflect.MakeSlice(target, cv.Len(), cv.Len())
	et := target.Elem()
	for i := 0; i < cv.Len(); i++ {
		e := cv.Index(i)
		if e.Kind() == reflect.Interface {
			e = e.Elem()
		}
		if !e.IsValid() || !(e.Type() == et || isNumeric(e.Kind()) && isNumeric(et.Kind())) {
			return cv.Interface()
		}
		out.Index(i).Set(e.Convert(et))
	}
	return out.Interface()
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
