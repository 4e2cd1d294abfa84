package fn

import (
	"slices"
	"sync"
	"unsafe"
)

const (
	// DefaultPartialCacheSize bounds the number of distinct functions a
	// PartialMemoizer remembers.
	DefaultPartialCacheSize = 1000
	// DefaultPartialItemSize bounds the number of argument lists remembered
	// per function.
	DefaultPartialItemSize = 40
)

// Bound is a partially applied function. Its pointer identity is stable for
// as long as the owning PartialMemoizer keeps it cached, which lets callers
// hand the same callback to consumers that compare by identity.
type Bound[R any] struct {
	f    func(args ...any) R
	args []any
}

// Call invokes the bound function with the bound arguments followed by more.
func (b *Bound[R]) Call(more ...any) R {
	all := make([]any, 0, len(b.args)+len(more))
	all = append(all, b.args...)
	all = append(all, more...)
	return b.f(all...)
}

// PartialMemoizer caches partial applications on two levels: the number of
// functions and the number of argument lists per function. Within a function
// the newest argument list comes first and the oldest is dropped; across
// functions the function cached earliest is evicted first.
//
// Functions are identified by their func value, so two closures created
// from the same function literal occupy separate slots.
type PartialMemoizer[R any] struct {
	cacheSize int
	itemSize  int

	mu    sync.Mutex
	cache map[unsafe.Pointer][]*Bound[R]
	order []unsafe.Pointer
}

// NewPartialMemoizer creates a PartialMemoizer. Non-positive sizes fall back
// to DefaultPartialCacheSize and DefaultPartialItemSize.
func NewPartialMemoizer[R any](cacheSize, itemSize int) *PartialMemoizer[R] {
	if cacheSize <= 0 {
		cacheSize = DefaultPartialCacheSize
	}
	if itemSize <= 0 {
		itemSize = DefaultPartialItemSize
	}
	return &PartialMemoizer[R]{
		cacheSize: cacheSize,
		itemSize:  itemSize,
		cache:     make(map[unsafe.Pointer][]*Bound[R]),
	}
}

// Partial returns the cached Bound for f and args, creating it on a miss.
func (p *PartialMemoizer[R]) Partial(f func(args ...any) R, args ...any) *Bound[R] {
	key := funcKey(f)

	p.mu.Lock()
	defer p.mu.Unlock()

	entries, exists := p.cache[key]
	if exists {
		for _, b := range entries {
			if ShallowEqual(b.args, args) {
				return b
			}
		}
	}

	bound := &Bound[R]{f: f, args: slices.Clone(args)}

	if exists {
		entries = append([]*Bound[R]{bound}, entries...)
		if len(entries) > p.itemSize {
			entries = entries[:p.itemSize]
		}
		p.cache[key] = entries
		return bound
	}

	p.cache[key] = []*Bound[R]{bound}
	p.order = append(p.order, key)
	if len(p.order) > p.cacheSize {
		oldest := p.order[0]
		p.order = p.order[1:]
		delete(p.cache, oldest)
	}

	return bound
}

// funcKey returns the address of the closure record behind f. Closures
// sharing code but not captured variables get different keys.
func funcKey[R any](f func(args ...any) R) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&f))
}

// Len returns the number of functions currently cached.
func (p *PartialMemoizer[R]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}
