package bridge

import (
	"reflect"
	"strconv"
)

// Reconcile returns a value equal to next that shares every part of prev
// that did not change. Containers are only allocated along changed paths,
// and when nothing changed prev itself is returned.
//
// Maps with string keys, slices, arrays, structs, pointers and interfaces
// are compared element by element; anything else is compared with ==.
// Unexported struct fields are taken from next as-is.
func Reconcile[T any](prev, next T) T {
	var out T
	reflect.ValueOf(&out).Elem().Set(
		reconcile(reflect.ValueOf(&prev).Elem(), reflect.ValueOf(&next).Elem()))
	return out
}

func reconcile(prev, next reflect.Value) reflect.Value {
	if !prev.IsValid() || !next.IsValid() || prev.Type() != next.Type() {
		return next
	}
	if identical(prev, next) {
		return prev
	}

	switch next.Kind() {
	case reflect.Map:
		return reconcileMap(prev, next)
	case reflect.Slice:
		return reconcileSlice(prev, next)
	case reflect.Array:
		out := reflect.New(next.Type()).Elem()
		for i := 0; i < next.Len(); i++ {
			out.Index(i).Set(reconcile(prev.Index(i), next.Index(i)))
		}
		return out
	case reflect.Struct:
		out := reflect.New(next.Type()).Elem()
		out.Set(next)
		for i := 0; i < next.NumField(); i++ {
			if f := out.Field(i); f.CanSet() {
				f.Set(reconcile(prev.Field(i), next.Field(i)))
			}
		}
		return out
	case reflect.Pointer:
		if prev.IsNil() || next.IsNil() {
			return next
		}
		elem := reconcile(prev.Elem(), next.Elem())
		if identical(elem, prev.Elem()) {
			return prev
		}
		out := reflect.New(next.Type().Elem())
		out.Elem().Set(elem)
		return out
	case reflect.Interface:
		if prev.IsNil() || next.IsNil() {
			return next
		}
		elem := reconcile(prev.Elem(), next.Elem())
		if identical(elem, prev.Elem()) {
			return prev
		}
		out := reflect.New(next.Type()).Elem()
		out.Set(elem)
		return out
	}
	return next
}

func reconcileMap(prev, next reflect.Value) reflect.Value {
	if prev.IsNil() || next.IsNil() || next.Type().Key().Kind() != reflect.String {
		return next
	}
	changed := prev.Len() != next.Len()
	out := reflect.MakeMapWithSize(next.Type(), next.Len())
	iter := next.MapRange()
	for iter.Next() {
		old := prev.MapIndex(iter.Key())
		v := reconcile(old, iter.Value())
		if !old.IsValid() || !identical(old, v) {
			changed = true
		}
		out.SetMapIndex(iter.Key(), v)
	}
	if !changed {
		return prev
	}
	return out
}

func reconcileSlice(prev, next reflect.Value) reflect.Value {
	if prev.IsNil() || next.IsNil() {
		return next
	}
	changed := prev.Len() != next.Len()
	out := reflect.MakeSlice(next.Type(), next.Len(), next.Len())
	for i := 0; i < next.Len(); i++ {
		if i >= prev.Len() {
			out.Index(i).Set(next.Index(i))
			continue
		}
		v := reconcile(prev.Index(i), next.Index(i))
		if !identical(prev.Index(i), v) {
			changed = true
		}
		out.Index(i).Set(v)
	}
	if !changed {
		return prev
	}
	return out
}

// identical reports whether a and b are the same value: containers are
// compared by identity, scalars by value, structs and arrays field by field.
func identical(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}
	switch a.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Slice:
		return a.Pointer() == b.Pointer() && a.Len() == b.Len()
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return identical(a.Elem(), b.Elem())
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !identical(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if !identical(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	}
	return a.Equal(b)
}

// same reports whether a and b are identical.
func same[T any](a, b T) bool {
	return identical(reflect.ValueOf(&a).Elem(), reflect.ValueOf(&b).Elem())
}

// field returns the named part of v: a map entry, a struct field or a
// slice element (by decimal index). Pointers and interfaces are followed.
// It returns an invalid Value when there is no such part.
func field(v reflect.Value, name string) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return v
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}
		}
		return v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
	case reflect.Struct:
		return v.FieldByName(name)
	case reflect.Slice, reflect.Array:
		i, ok := index(name)
		if !ok || i < 0 || i >= v.Len() {
			return reflect.Value{}
		}
		return v.Index(i)
	}
	return reflect.Value{}
}

func index(name string) (int, bool) {
	for _, c := range name {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return i, true
}
