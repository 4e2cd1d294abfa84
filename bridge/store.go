package bridge

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// Sink receives bridge events.
type Sink interface {
	Dispatch(ctx context.Context, ev Event) error
}

// Store is an in-process reducer store. Its state is a map from slice name
// to the value its reducer produced, like a combination of reducers.
type Store struct {
	reducers map[string]Reducer

	mu    sync.RWMutex
	state map[string]any

	subsMu sync.Mutex
	subs   []*storeSub
}

type storeSub struct {
	fn     func(Event)
	active atomic.Bool
}

var _ Sink = (*Store)(nil)

// NewStore combines reducers and dispatches InitType so every slice holds
// its initial value.
func NewStore(reducers map[string]Reducer) *Store {
	s := &Store{
		reducers: maps.Clone(reducers),
		state:    make(map[string]any, len(reducers)),
	}
	s.reduce(Event{Type: InitType})
	return s
}

func (s *Store) reduce(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]any, len(s.reducers))
	for name, r := range s.reducers {
		next[name] = r(s.state[name], ev)
	}
	s.state = next
}

// Dispatch reduces ev into the state and then notifies subscribers.
func (s *Store) Dispatch(_ context.Context, ev Event) error {
	s.reduce(ev)

	s.subsMu.Lock()
	subs := slices.Clone(s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		if sub.active.Load() {
			sub.fn(ev)
		}
	}
	return nil
}

// State returns a copy of the combined state.
func (s *Store) State() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.state)
}

// Subscribe registers fn for every dispatched event. The returned function
// removes it and is idempotent.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	sub := &storeSub{fn: fn}
	sub.active.Store(true)

	s.subsMu.Lock()
	s.subs = append(s.subs, sub)
	s.subsMu.Unlock()

	return func() {
		if !sub.active.CompareAndSwap(true, false) {
			return
		}
		s.subsMu.Lock()
		s.subs = slices.DeleteFunc(s.subs, func(c *storeSub) bool { return c == sub })
		s.subsMu.Unlock()
	}
}
