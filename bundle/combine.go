package bundle

import (
	"fmt"
	"slices"
)

// Part is anything that can be combined: a Bundle contributes itself, a
// Combined contributes its leaf bundles.
type Part interface {
	Bundles() []*Bundle
}

// Flatten concatenates the leaf bundles of parts, preserving order. Nil
// parts and nil leaves, typed or not, are skipped.
func Flatten(parts ...Part) []*Bundle {
	var out []*Bundle
	for _, p := range parts {
		if p == nil {
			continue
		}
		for _, b := range p.Bundles() {
			if b != nil {
				out = append(out, b)
			}
		}
	}
	return out
}

// Combined is an ordered collection of bundles with distinct keys. Its state
// is a map from bundle key to bundle state, one level deep.
type Combined struct {
	bundles []*Bundle
	index   map[string]int
}

// Combine flattens parts into a Combined. Nested combined values contribute
// their leaves, so the same *Bundle is reachable from every level. A key
// that appears twice fails with ErrDuplicateKey. Zero parts yield an empty
// root.
func Combine(parts ...Part) (*Combined, error) {
	leaves := Flatten(parts...)
	c := &Combined{
		bundles: make([]*Bundle, 0, len(leaves)),
		index:   make(map[string]int, len(leaves)),
	}

	for _, b := range leaves {
		if _, exists := c.index[b.Key()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, b.Key())
		}
		c.index[b.Key()] = len(c.bundles)
		c.bundles = append(c.bundles, b)
	}

	return c, nil
}

// MustCombine is like Combine but panics on error.
func MustCombine(parts ...Part) *Combined {
	c, err := Combine(parts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Bundle returns the leaf bundle with the given key.
func (c *Combined) Bundle(key string) (*Bundle, error) {
	i, ok := c.index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBundleNotFound, key)
	}
	return c.bundles[i], nil
}

// Bundles returns the leaf bundles in combination order.
func (c *Combined) Bundles() []*Bundle {
	if c == nil {
		return nil
	}
	return slices.Clone(c.bundles)
}

// Keys returns the leaf keys in combination order.
func (c *Combined) Keys() []string {
	keys := make([]string, len(c.bundles))
	for i, b := range c.bundles {
		keys[i] = b.Key()
	}
	return keys
}

// Len returns the number of leaf bundles.
func (c *Combined) Len() int {
	return len(c.bundles)
}

// State returns a fresh map of every leaf's current state.
func (c *Combined) State() map[string]any {
	out := make(map[string]any, len(c.bundles))
	for _, b := range c.bundles {
		out[b.Key()] = b.State()
	}
	return out
}

// InitialState returns a fresh map of every leaf's initial state.
func (c *Combined) InitialState() map[string]any {
	out := make(map[string]any, len(c.bundles))
	for _, b := range c.bundles {
		out[b.Key()] = b.InitialState()
	}
	return out
}

// SetState replaces the state of every leaf present in m. Leaves whose key
// is absent keep their state. Nobody is notified.
func (c *Combined) SetState(m map[string]any) {
	for _, b := range c.bundles {
		if s, ok := m[b.Key()]; ok {
			b.SetState(s)
		}
	}
}

// Reset restores every leaf to its initial state without notification.
func (c *Combined) Reset() {
	c.SetState(c.InitialState())
}

// OnChange subscribes l to every leaf. The returned function removes all of
// those subscriptions and is idempotent.
func (c *Combined) OnChange(l Listener) (unsubscribe func()) {
	unsubs := make([]func(), len(c.bundles))
	for i, b := range c.bundles {
		unsubs[i] = b.OnChange(l)
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// ApplyAction routes sig to the leaf whose key matches. A signal for a key
// that is not part of the root is ignored.
func (c *Combined) ApplyAction(sig Signal) error {
	i, ok := c.index[sig.BundleKey]
	if !ok {
		return nil
	}
	return c.bundles[i].ApplyAction(sig)
}

// Dispatch runs the named action on the leaf with the given key.
func (c *Combined) Dispatch(key, action string, args ...any) error {
	b, err := c.Bundle(key)
	if err != nil {
		return err
	}
	return b.Dispatch(action, args...)
}
