package fn

import "reflect"

// ShallowEqual reports whether a and b have the same length and hold
// identical values at every position.
//
// Identity follows reference semantics for maps, slices, channels, pointers
// and functions (same underlying pointer, and same length for slices).
// Other values are compared with == when their dynamic value is comparable;
// values that cannot be compared are never identical.
func ShallowEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Identical(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Identical reports whether x and y are the same value under the rules
// described on ShallowEqual. Structs that cannot be compared with == are
// identical when each of their fields is.
func Identical(x, y any) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	return identical(reflect.ValueOf(x), reflect.ValueOf(y))
}

func identical(vx, vy reflect.Value) bool {
	if vx.Type() != vy.Type() {
		return false
	}

	switch vx.Kind() {
	case reflect.Map, reflect.Chan, reflect.Func, reflect.Pointer, reflect.UnsafePointer:
		return vx.Pointer() == vy.Pointer()
	case reflect.Slice:
		return vx.Len() == vy.Len() && vx.Pointer() == vy.Pointer()
	case reflect.Interface:
		if vx.IsNil() || vy.IsNil() {
			return vx.IsNil() && vy.IsNil()
		}
		return identical(vx.Elem(), vy.Elem())
	}

	if vx.Comparable() && vy.Comparable() {
		return vx.Equal(vy)
	}

	if vx.Kind() == reflect.Struct {
		for i := range vx.NumField() {
			if !identical(vx.Field(i), vy.Field(i)) {
				return false
			}
		}
		return true
	}
	return false
}
