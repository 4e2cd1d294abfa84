package bundle

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/bund/fn"
	"github.com/tailored-agentic-units/bund/observability"
)

// ActionFunc computes the next state of b from state and the action
// arguments. It must not mutate state in place. Returning an error leaves the
// bundle state unchanged.
type ActionFunc func(b *Bundle, state any, args ...any) (any, error)

// SelectorFunc projects state into a derived value. Selectors are pure; their
// result is memoized on the most recent (state, args...) call.
type SelectorFunc func(state any, args ...any) (any, error)

// Listener receives the action signal and the bundle that produced it.
type Listener func(sig Signal, b *Bundle)

// ActionCaller is the per-name callable generated for each action.
type ActionCaller func(args ...any) error

// SelectorCaller is the per-name callable generated for each selector.
type SelectorCaller func(args ...any) (any, error)

// Definition describes a bundle. Key is required; everything else is
// optional.
//
// ExportAPI enables Call, which resolves actions and selectors from a single
// namespace. An exported definition must not reuse a name between Actions and
// Selectors.
type Definition struct {
	Key          string
	InitialState any
	ExportAPI    bool
	Actions      map[string]ActionFunc
	Selectors    map[string]SelectorFunc
	Listeners    []Listener
}

// Option configures a Bundle after the definition is applied.
type Option func(*Bundle)

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(b *Bundle) {
		if o != nil {
			b.observer = o
		}
	}
}

type subscription struct {
	listener Listener
	active   atomic.Bool
}

// Bundle is a keyed state container. It owns a single state value that is
// replaced wholesale by actions, memoized selectors over that state, and an
// ordered list of subscribers notified after every successful action.
//
// State reads and writes are guarded, so a Bundle may be shared between
// goroutines. Handlers and listeners run without any lock held and may
// re-enter the bundle. Concurrent Dispatch calls are not serialized against
// each other; route them through a single goroutine (for example a
// scheduler.Loop) when ordering matters.
type Bundle struct {
	id        string
	key       string
	initial   any
	exportAPI bool
	observer  observability.Observer
	metrics   *Metrics

	actions         map[string]ActionFunc
	selectors       map[string]func(args ...any) (any, error)
	actionCallers   map[string]ActionCaller
	selectorCallers map[string]SelectorCaller

	mu    sync.RWMutex
	state any

	subsMu sync.Mutex
	subs   []*subscription
}

// New creates a Bundle from def. The current state starts as
// def.InitialState and def.Listeners are subscribed in order.
//
//	counter, err := bundle.New(bundle.Definition{
//	    Key:          "counter",
//	    InitialState: 0,
//	    Actions: map[string]bundle.ActionFunc{
//	        "inc": func(_ *bundle.Bundle, s any, _ ...any) (any, error) { return s.(int) + 1, nil },
//	    },
//	})
func New(def Definition, opts ...Option) (*Bundle, error) {
	if def.Key == "" {
		return nil, ErrEmptyKey
	}

	for name, f := range def.Actions {
		if f == nil {
			return nil, fmt.Errorf("%w: %s: action %q has no handler", ErrInvalidDefinition, def.Key, name)
		}
	}
	for name, f := range def.Selectors {
		if f == nil {
			return nil, fmt.Errorf("%w: %s: selector %q has no function", ErrInvalidDefinition, def.Key, name)
		}
		if _, clash := def.Actions[name]; clash && def.ExportAPI {
			return nil, fmt.Errorf("%w: %s: %s", ErrNameCollision, def.Key, name)
		}
	}

	b := &Bundle{
		id:              uuid.Must(uuid.NewV7()).String(),
		key:             def.Key,
		initial:         def.InitialState,
		state:           def.InitialState,
		exportAPI:       def.ExportAPI,
		observer:        observability.NoOpObserver{},
		metrics:         NewMetrics(),
		actions:         make(map[string]ActionFunc, len(def.Actions)),
		selectors:       make(map[string]func(args ...any) (any, error), len(def.Selectors)),
		actionCallers:   make(map[string]ActionCaller, len(def.Actions)),
		selectorCallers: make(map[string]SelectorCaller, len(def.Selectors)),
	}
	for _, opt := range opts {
		opt(b)
	}

	for name, f := range def.Actions {
		b.actions[name] = f
		b.actionCallers[name] = func(args ...any) error {
			return b.Dispatch(name, args...)
		}
	}

	for name, f := range def.Selectors {
		b.selectors[name] = b.memoizeSelector(f)
		b.selectorCallers[name] = func(args ...any) (any, error) {
			return b.Select(name, args...)
		}
	}

	b.emit(EventBundleCreate, observability.LevelVerbose, map[string]any{
		"actions":   len(b.actions),
		"selectors": len(b.selectors),
	})

	for _, l := range def.Listeners {
		if l != nil {
			b.OnChange(l)
		}
	}

	return b, nil
}

// MustNew is like New but panics on error. It simplifies package-level
// bundle declarations.
func MustNew(def Definition, opts ...Option) *Bundle {
	b, err := New(def, opts...)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Bundle) memoizeSelector(f SelectorFunc) func(args ...any) (any, error) {
	var missed bool
	memo := fn.MemoizeE(func(all ...any) (any, error) {
		missed = true
		return f(all[0], all[1:]...)
	})
	var mu sync.Mutex
	return func(args ...any) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		missed = false
		v, err := memo(args...)
		if err == nil {
			b.metrics.RecordSelect(!missed)
		}
		return v, err
	}
}

// ID returns the unique identifier of this bundle instance. Two bundles
// built from the same definition share a key but never an ID.
func (b *Bundle) ID() string {
	return b.id
}

// Key returns the bundle key.
func (b *Bundle) Key() string {
	return b.key
}

// State returns the current state. The value is shared; callers must not
// mutate it.
func (b *Bundle) State() any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// SetState replaces the current state without notifying subscribers.
// Callers that need notification must use an action.
func (b *Bundle) SetState(state any) {
	b.mu.Lock()
	b.state = state
	b.mu.Unlock()

	b.emit(EventSetState, observability.LevelVerbose, nil)
}

// InitialState returns the state captured at construction.
func (b *Bundle) InitialState() any {
	return b.initial
}

// Bundles returns b as a single-element slice, which makes a Bundle a Part of
// a Combined. A nil Bundle has no leaves.
func (b *Bundle) Bundles() []*Bundle {
	if b == nil {
		return nil
	}
	return []*Bundle{b}
}

// Metrics returns a snapshot of the bundle counters.
func (b *Bundle) Metrics() MetricsSnapshot {
	return b.metrics.Snapshot()
}

// Dispatch runs the named action: it computes the next state from the
// current one, stores it and notifies every subscriber with the action
// signal, in subscription order.
//
// A handler error is returned as a *HandlerError; the state is then left
// untouched and nobody is notified.
func (b *Bundle) Dispatch(name string, args ...any) error {
	handler, exists := b.actions[name]
	if !exists {
		return fmt.Errorf("%w: %s/%s", ErrUnknownAction, b.key, name)
	}

	next, err := handler(b, b.State(), args...)
	if err != nil {
		b.metrics.RecordAction(true)
		b.emit(EventActionFailed, observability.LevelWarning, map[string]any{
			"action": name,
			"error":  err.Error(),
		})
		return &HandlerError{Bundle: b.key, Kind: "action", Name: name, Err: err}
	}

	b.mu.Lock()
	b.state = next
	b.mu.Unlock()

	b.metrics.RecordAction(false)
	b.emit(EventAction, observability.LevelVerbose, map[string]any{
		"action": name,
		"args":   len(args),
	})

	b.notify(NewSignal(b.key, name, args...))
	return nil
}

func (b *Bundle) notify(sig Signal) {
	b.subsMu.Lock()
	subs := slices.Clone(b.subs)
	b.subsMu.Unlock()

	delivered := 0
	for _, s := range subs {
		if !s.active.Load() {
			continue
		}
		s.listener(sig, b)
		delivered++
	}
	b.metrics.RecordNotification(delivered)
}

// Select evaluates the named selector against the current state. The result
// is memoized on the last (state, args...) call, compared by identity.
func (b *Bundle) Select(name string, args ...any) (any, error) {
	sel, exists := b.selectors[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownSelector, b.key, name)
	}

	all := make([]any, 0, len(args)+1)
	all = append(all, b.State())
	all = append(all, args...)

	v, err := sel(all...)
	if err != nil {
		return nil, &HandlerError{Bundle: b.key, Kind: "selector", Name: name, Err: err}
	}
	return v, nil
}

// Action returns the generated callable for the named action.
func (b *Bundle) Action(name string) (ActionCaller, bool) {
	c, ok := b.actionCallers[name]
	return c, ok
}

// Selector returns the generated callable for the named selector.
func (b *Bundle) Selector(name string) (SelectorCaller, bool) {
	c, ok := b.selectorCallers[name]
	return c, ok
}

// Actions returns a copy of the action callables keyed by name.
func (b *Bundle) Actions() map[string]ActionCaller {
	out := make(map[string]ActionCaller, len(b.actionCallers))
	for k, v := range b.actionCallers {
		out[k] = v
	}
	return out
}

// Selectors returns a copy of the selector callables keyed by name.
func (b *Bundle) Selectors() map[string]SelectorCaller {
	out := make(map[string]SelectorCaller, len(b.selectorCallers))
	for k, v := range b.selectorCallers {
		out[k] = v
	}
	return out
}

// HasAction reports whether an action with the given name is registered.
func (b *Bundle) HasAction(name string) bool {
	_, ok := b.actions[name]
	return ok
}

// ActionNames lists the registered actions in sorted order.
func (b *Bundle) ActionNames() []string {
	return sortedKeys(b.actions)
}

// SelectorNames lists the registered selectors in sorted order.
func (b *Bundle) SelectorNames() []string {
	return sortedKeys(b.selectors)
}

// Exported reports whether Call is enabled.
func (b *Bundle) Exported() bool {
	return b.exportAPI
}

// Call resolves name against the exported API. Actions are dispatched and
// the new state is returned; selectors return their value.
func (b *Bundle) Call(name string, args ...any) (any, error) {
	if !b.exportAPI {
		return nil, fmt.Errorf("%w: %s", ErrNotExported, b.key)
	}
	if _, ok := b.actions[name]; ok {
		if err := b.Dispatch(name, args...); err != nil {
			return nil, err
		}
		return b.State(), nil
	}
	if _, ok := b.selectors[name]; ok {
		return b.Select(name, args...)
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrUnknownAction, b.key, name)
}

// OnChange subscribes l to action signals. The returned function removes
// exactly this subscription; calling it again is a no-op. Subscribing or
// unsubscribing from inside a listener is allowed: a pass in progress keeps
// its snapshot of the list, except that removed listeners are skipped.
func (b *Bundle) OnChange(l Listener) (unsubscribe func()) {
	s := &subscription{listener: l}
	s.active.Store(true)

	b.subsMu.Lock()
	b.subs = append(b.subs, s)
	b.subsMu.Unlock()

	b.metrics.RecordSubscriber(1)
	b.emit(EventSubscribe, observability.LevelVerbose, nil)

	return func() {
		if !s.active.CompareAndSwap(true, false) {
			return
		}

		b.subsMu.Lock()
		b.subs = slices.DeleteFunc(b.subs, func(c *subscription) bool { return c == s })
		b.subsMu.Unlock()

		b.metrics.RecordSubscriber(-1)
		b.emit(EventUnsubscribe, observability.LevelVerbose, nil)
	}
}

// ApplyAction replays a signal captured elsewhere, for example from a
// Combined subscriber or a persisted log. The signal key must match the
// bundle key.
func (b *Bundle) ApplyAction(sig Signal) error {
	if sig.BundleKey != b.key {
		return fmt.Errorf("%w: signal key %q, bundle key %q", ErrKeyMismatch, sig.BundleKey, b.key)
	}

	b.emit(EventApplyAction, observability.LevelVerbose, map[string]any{"action": sig.Action})
	return b.Dispatch(sig.Action, sig.Args...)
}

func (b *Bundle) emit(t observability.EventType, level observability.Level, data map[string]any) {
	if data == nil {
		data = make(map[string]any, 2)
	}
	data["bundle"] = b.key
	data["bundle_id"] = b.id

	observability.Emit(context.Background(), b.observer, observability.Event{
		Type:   t,
		Level:  level,
		Source: "bundle",
		Data:   data,
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
