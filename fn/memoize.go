package fn

import (
	"slices"
	"sync"
)

// Memoize wraps f with a cache of its single most recent call. A call whose
// arguments are ShallowEqual to the previous call returns the previous result
// without invoking f.
func Memoize[R any](f func(args ...any) R) func(args ...any) R {
	m := MemoizeE(func(args ...any) (R, error) {
		return f(args...), nil
	})
	return func(args ...any) R {
		r, _ := m(args...)
		return r
	}
}

// MemoizeE is Memoize for functions that can fail. Failed calls are not
// cached, so the next call with the same arguments invokes f again.
//
// f runs outside the cache lock, which keeps recursive and reentrant calls
// safe at the cost of possibly computing the same result twice under
// concurrent misses.
func MemoizeE[R any](f func(args ...any) (R, error)) func(args ...any) (R, error) {
	var (
		mu       sync.Mutex
		called   bool
		lastArgs []any
		last     R
	)

	return func(args ...any) (R, error) {
		mu.Lock()
		if called && ShallowEqual(args, lastArgs) {
			r := last
			mu.Unlock()
			return r, nil
		}
		mu.Unlock()

		r, err := f(args...)
		if err != nil {
			var zero R
			return zero, err
		}

		mu.Lock()
		called = true
		lastArgs = slices.Clone(args)
		last = r
		mu.Unlock()

		return r, nil
	}
}
