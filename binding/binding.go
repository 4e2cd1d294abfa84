// Package binding adapts a bundle or combined root to a view layer: it
// computes props from state, re-renders only when they change and tears the
// subscription down exactly once.
package binding

import (
	"maps"
	"sync"
	"sync/atomic"

	"github.com/tailored-agentic-units/bund/bundle"
	"github.com/tailored-agentic-units/bund/fn"
	"github.com/tailored-agentic-units/bund/scheduler"
)

// Props are the values handed to a render function.
type Props map[string]any

// Root is a bundle or a combined root.
type Root interface {
	bundle.Part
	OnChange(l bundle.Listener) (unsubscribe func())
}

// SelectFunc derives props from the root's state. state is the bundle state
// for a Bundle and a map of bundle states for a Combined; own are the
// props passed in Options.Props.
type SelectFunc func(state any, root Root, own Props) Props

// Options configures Connect. With SelectAll set, Select defaults to the
// whole state and SelectOnce to every action and selector.
type Options struct {
	Props      Props
	Select     SelectFunc
	SelectOnce SelectFunc
	SelectAll  bool

	// Throttle wraps the render trigger, for example to coalesce renders
	// with ScheduleOn. The identity is used when nil.
	Throttle func(render func()) func()
}

// Binding is a live connection between a root and a render function.
type Binding struct {
	root   Root
	opts   Options
	render func(Props)

	static   Props
	schedule func()

	mu   sync.Mutex
	last Props

	renders   atomic.Int64
	closeOnce sync.Once
	unsub     func()
}

// Connect computes the static props, renders once and subscribes to root.
// Call Close when the view goes away.
func Connect(root Root, opts Options, render func(Props)) *Binding {
	if opts.SelectAll {
		if opts.Select == nil {
			opts.Select = SelectState
		}
		if opts.SelectOnce == nil {
			opts.SelectOnce = SelectAPI
		}
	}

	b := &Binding{root: root, opts: opts, render: render}
	if opts.SelectOnce != nil {
		b.static = opts.SelectOnce(StateOf(root), root, opts.Props)
	}

	b.schedule = b.Render
	if opts.Throttle != nil {
		b.schedule = opts.Throttle(b.Render)
	}

	b.Render()
	b.unsub = root.OnChange(b.handleChange)
	return b
}

func (b *Binding) dynamic() Props {
	if b.opts.Select == nil {
		return nil
	}
	return b.opts.Select(StateOf(b.root), b.root, b.opts.Props)
}

func (b *Binding) handleChange(bundle.Signal, *bundle.Bundle) {
	next := b.dynamic()

	b.mu.Lock()
	changed := !EqualProps(b.last, next)
	if changed {
		b.last = next
	}
	b.mu.Unlock()

	if changed {
		b.schedule()
	}
}

// Render merges own, static and freshly selected props, in that order of
// precedence from lowest to highest, and calls the render function.
func (b *Binding) Render() {
	dyn := b.dynamic()

	b.mu.Lock()
	b.last = dyn
	b.mu.Unlock()

	props := make(Props, len(b.opts.Props)+len(b.static)+len(dyn))
	maps.Copy(props, b.opts.Props)
	maps.Copy(props, b.static)
	maps.Copy(props, dyn)

	b.renders.Add(1)
	b.render(props)
}

// Renders returns how many times the render function ran.
func (b *Binding) Renders() int64 {
	return b.renders.Load()
}

// Close unsubscribes from the root. Only the first call has an effect.
func (b *Binding) Close() {
	b.closeOnce.Do(b.unsub)
}

// StateOf returns the bundle state of a Bundle, the state map of a
// Combined, and a map of leaf states for any other root.
func StateOf(root Root) any {
	switch r := root.(type) {
	case *bundle.Bundle:
		return r.State()
	case *bundle.Combined:
		return r.State()
	}

	out := make(map[string]any)
	for _, b := range root.Bundles() {
		out[b.Key()] = b.State()
	}
	return out
}

// SelectState exposes the whole state under "state".
func SelectState(state any, _ Root, _ Props) Props {
	return Props{"state": state}
}

// SelectAPI exposes every action and selector caller by name. For a
// combined root the callers are grouped per bundle key.
func SelectAPI(_ any, root Root, _ Props) Props {
	if b, ok := root.(*bundle.Bundle); ok {
		return apiProps(b)
	}

	out := make(Props)
	for _, b := range root.Bundles() {
		out[b.Key()] = apiProps(b)
	}
	return out
}

func apiProps(b *bundle.Bundle) Props {
	out := make(Props)
	for name, s := range b.Selectors() {
		out[name] = s
	}
	for name, a := range b.Actions() {
		out[name] = a
	}
	return out
}

// EqualProps reports whether a and b hold identical values under the same
// keys.
func EqualProps(a, b Props) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !fn.Identical(va, vb) {
			return false
		}
	}
	return true
}

// ScheduleOn returns a Throttle that coalesces render requests into one
// render on the next tick of loop.
func ScheduleOn(loop *scheduler.Loop) func(render func()) func() {
	return func(render func()) func() {
		var pending atomic.Bool
		return func() {
			if pending.Swap(true) {
				return
			}
			loop.Schedule(func() {
				pending.Store(false)
				render()
			})
		}
	}
}
