package store

import "reflect"

// Kind classifies a store's value shape.
type Kind int

const (
	// KindInvalid marks values the bridge cannot hold (channels, functions,
	// unsafe pointers).
	KindInvalid Kind = iota

	// KindPrimitive marks values that are replaced wholesale on change.
	KindPrimitive

	// KindStructured marks keyed or indexed values (maps with string keys,
	// structs, slices, arrays and pointers to them) that are reconciled
	// field by field.
	KindStructured
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindStructured:
		return "structured"
	default:
		return "invalid"
	}
}

// KindOf classifies T. When T is an interface type the dynamic type of
// sample is used instead; a nil sample is primitive.
func KindOf[T any](sample T) Kind {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Interface {
		t = reflect.TypeOf(any(sample))
		if t == nil {
			return KindPrimitive
		}
	}
	return kindOfType(t)
}

func kindOfType(t reflect.Type) Kind {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return KindInvalid
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return KindInvalid
		}
		return KindStructured
	case reflect.Struct, reflect.Array:
		return KindStructured
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindPrimitive
		}
		return KindStructured
	case reflect.Pointer:
		if kindOfType(t.Elem()) == KindStructured {
			return KindStructured
		}
		return KindPrimitive
	default:
		return KindPrimitive
	}
}

// IsAbsent reports whether v is the absent value: a nil pointer, map,
// slice or interface. Writing an absent value to a persistent store deletes
// its backing key.
func IsAbsent[T any](v T) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Equal reports whether a and b are equal, using == for comparable scalars
// and reflect.DeepEqual otherwise.
func Equal[T any](a, b T) bool {
	switch av := any(a).(type) {
	case string:
		bv, ok := any(b).(string)
		return ok && av == bv
	case bool:
		bv, ok := any(b).(bool)
		return ok && av == bv
	case int:
		bv, ok := any(b).(int)
		return ok && av == bv
	case int64:
		bv, ok := any(b).(int64)
		return ok && av == bv
	case float64:
		bv, ok := any(b).(float64)
		return ok && av == bv
	}
	return reflect.DeepEqual(a, b)
}
