// Package history records the states a bundle passes through and steps back
// through them.
package history

import (
	"sync"

	"github.com/tailored-agentic-units/bund/bundle"
)

// Tracker keeps the state of a bundle after every action.
type Tracker struct {
	b     *bundle.Bundle
	limit int

	mu      sync.Mutex
	log     []any
	evicted bool
	unsub   func()
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLimit caps the number of retained entries. Older entries are dropped
// first, and once any are dropped Undo stops at the oldest retained entry.
// Zero means unlimited.
func WithLimit(n int) Option {
	return func(t *Tracker) { t.limit = n }
}

// Track subscribes to b and starts recording.
func Track(b *bundle.Bundle, opts ...Option) *Tracker {
	t := &Tracker{b: b}
	for _, opt := range opts {
		opt(t)
	}
	t.unsub = b.OnChange(func(_ bundle.Signal, src *bundle.Bundle) {
		t.record(src.State())
	})
	return t
}

func (t *Tracker) record(state any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.log = append(t.log, state)
	if t.limit > 0 && len(t.log) > t.limit {
		t.log = t.log[len(t.log)-t.limit:]
		t.evicted = true
	}
}

// Undo drops the current entry and restores the previous one, or the
// initial state when there is none and nothing was evicted. Restoring uses
// SetState, so subscribers are not notified. It reports whether there was
// anything to undo.
func (t *Tracker) Undo() bool {
	t.mu.Lock()
	if len(t.log) == 0 || (t.evicted && len(t.log) == 1) {
		t.mu.Unlock()
		return false
	}
	t.log = t.log[:len(t.log)-1]

	prev := t.b.InitialState()
	if n := len(t.log); n > 0 {
		prev = t.log[n-1]
	}
	t.mu.Unlock()

	t.b.SetState(prev)
	return true
}

// Len returns the number of recorded entries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.log)
}

// Entries returns a copy of the recorded states, oldest first.
func (t *Tracker) Entries() []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]any, len(t.log))
	copy(out, t.log)
	return out
}

// Clear forgets every entry without touching the bundle.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.log = nil
	t.evicted = false
	t.mu.Unlock()
}

// Stop unsubscribes from the bundle. Recorded entries remain available.
func (t *Tracker) Stop() {
	t.unsub()
}
