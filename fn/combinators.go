package fn

import "slices"

// Partial returns a function that calls f with args followed by the
// arguments it receives.
//
//	sum := func(xs ...any) int { ... }
//	plus1 := fn.Partial(sum, 1)
//	plus1(2) // 3
func Partial[R any](f func(args ...any) R, args ...any) func(more ...any) R {
	bound := slices.Clone(args)
	return func(more ...any) R {
		all := make([]any, 0, len(bound)+len(more))
		all = append(all, bound...)
		all = append(all, more...)
		return f(all...)
	}
}

// Curried is the result of Curry: either another Curried value or the
// result of the wrapped function once enough arguments were supplied.
type Curried func(args ...any) any

// Curry turns f, which takes arity arguments, into a function that can be
// called with the arguments spread over several calls.
//
//	add := fn.Curry(3, func(xs ...any) any { return xs[0].(int) + xs[1].(int) + xs[2].(int) })
//	add(1).(fn.Curried)(2).(fn.Curried)(3) // 6
//
// Once at least arity arguments have been collected, f receives all of them.
func Curry(arity int, f func(args ...any) any) Curried {
	return curry(arity, f, nil)
}

func curry(arity int, f func(args ...any) any, collected []any) Curried {
	return func(args ...any) any {
		all := make([]any, 0, len(collected)+len(args))
		all = append(all, collected...)
		all = append(all, args...)
		if len(all) < arity {
			return curry(arity, f, all)
		}
		return f(all...)
	}
}

// Compose returns the right-to-left composition of fns:
// Compose(f1, f2, f3)(x) == f1(f2(f3(x))). With no functions it returns the
// identity.
func Compose[T any](fns ...func(T) T) func(T) T {
	ordered := slices.Clone(fns)
	slices.Reverse(ordered)
	return func(v T) T {
		for _, f := range ordered {
			v = f(v)
		}
		return v
	}
}

// MapValues returns a new map with f applied to every value of m.
func MapValues[K comparable, V, R any](m map[K]V, f func(value V, key K) R) map[K]R {
	result := make(map[K]R, len(m))
	for k, v := range m {
		result[k] = f(v, k)
	}
	return result
}
