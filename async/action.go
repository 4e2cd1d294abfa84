package async

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/xid"
	"github.com/tailored-agentic-units/bund/bundle"
	"github.com/tailored-agentic-units/bund/observability"
	"github.com/tailored-agentic-units/bund/scheduler"
)

// FetchFunc performs the asynchronous work. It runs on its own goroutine
// with the loop context and the dispatch arguments.
type FetchFunc func(ctx context.Context, args ...any) (any, error)

// Config describes an async action. Hook fields name actions on the bundle
// the action is dispatched on; an empty name or a name the bundle does not
// register is skipped.
type Config struct {
	Mechanism Mechanism
	Loop      *scheduler.Loop
	Fetch     FetchFunc

	Before  string
	Success string
	Error   string
	After   string

	// OnHookError receives errors returned by hook dispatch. After always
	// fires regardless.
	OnHookError func(hook string, err error)

	Observer observability.Observer
}

// Action is one async action instance. It owns the in-flight slot shared by
// every dispatch of its handler; the slot and the retry slot are only read
// and written on the loop goroutine.
type Action struct {
	cfg Config

	current bool
	retry   *retry

	started int
	settled int
	skipped int
}

type retry struct {
	b    *bundle.Bundle
	args []any
}

// NewAction validates cfg and returns an idle Action.
func NewAction(cfg Config) (*Action, error) {
	if cfg.Loop == nil {
		return nil, ErrNoLoop
	}
	if cfg.Fetch == nil {
		return nil, ErrNoFetch
	}

	m, err := ParseMechanism(string(cfg.Mechanism))
	if err != nil {
		return nil, err
	}
	cfg.Mechanism = m

	if cfg.Observer == nil {
		cfg.Observer = observability.NoOpObserver{}
	}

	return &Action{cfg: cfg}, nil
}

// New returns the bundle handler of a new Action. It panics when cfg is
// invalid, which keeps it usable inside bundle.Definition literals.
func New(cfg Config) bundle.ActionFunc {
	a, err := NewAction(cfg)
	if err != nil {
		panic(err)
	}
	return a.Handler()
}

// Handler returns the bundle action. It schedules the operation for the
// next loop tick and returns state unchanged.
func (a *Action) Handler() bundle.ActionFunc {
	return func(b *bundle.Bundle, state any, args ...any) (any, error) {
		captured := slices.Clone(args)
		a.emit(EventDispatch, b, "", nil)
		a.cfg.Loop.Schedule(func() {
			a.dispatch(b, captured)
		})
		return state, nil
	}
}

// Mechanism returns the policy in effect.
func (a *Action) Mechanism() Mechanism {
	return a.cfg.Mechanism
}

// Stats is a snapshot of an Action's counters. Read it from the loop
// goroutine or after the loop is idle.
type Stats struct {
	InFlight bool
	Parked   bool
	Started  int
	Settled  int
	Skipped  int
}

// Stats returns the action counters.
func (a *Action) Stats() Stats {
	return Stats{
		InFlight: a.current,
		Parked:   a.retry != nil,
		Started:  a.started,
		Settled:  a.settled,
		Skipped:  a.skipped,
	}
}

func (a *Action) dispatch(b *bundle.Bundle, args []any) {
	switch a.cfg.Mechanism.decide(a.current) {
	case skip:
		a.skipped++
		a.emit(EventSkip, b, "", nil)
		return
	case park:
		a.retry = &retry{b: b, args: args}
		a.emit(EventPark, b, "", nil)
		return
	}

	a.current = true
	a.started++
	op := xid.New().String()
	a.emit(EventStart, b, op, nil)

	a.hook(b, "before", a.cfg.Before)

	a.cfg.Loop.Await(
		func(ctx context.Context) (any, error) {
			return a.cfg.Fetch(ctx, args...)
		},
		func(result any, err error) {
			a.settle(b, op, result, err)
		},
	)
}

func (a *Action) settle(b *bundle.Bundle, op string, result any, err error) {
	if err != nil {
		a.hook(b, "error", a.cfg.Error, err)
	} else {
		a.hook(b, "success", a.cfg.Success, result)
	}
	a.hook(b, "after", a.cfg.After)

	a.settled++
	if a.cfg.Mechanism.clears() {
		a.current = false
	}

	var data map[string]any
	if err != nil {
		data = map[string]any{"error": err.Error()}
	}
	a.emit(EventSettle, b, op, data)

	if a.retry != nil {
		r := a.retry
		a.retry = nil
		a.cfg.Loop.Schedule(func() {
			a.dispatch(r.b, r.args)
		})
	}
}

func (a *Action) hook(b *bundle.Bundle, hook, name string, args ...any) {
	if name == "" || !b.HasAction(name) {
		return
	}
	if err := b.Dispatch(name, args...); err != nil {
		err = fmt.Errorf("async %s hook %s: %w", hook, name, err)
		a.emit(EventHookError, b, "", map[string]any{
			"hook":   hook,
			"action": name,
			"error":  err.Error(),
		})
		if a.cfg.OnHookError != nil {
			a.cfg.OnHookError(hook, err)
		}
	}
}

func (a *Action) emit(t observability.EventType, b *bundle.Bundle, op string, data map[string]any) {
	if data == nil {
		data = make(map[string]any, 3)
	}
	data["bundle"] = b.Key()
	data["mechanism"] = string(a.cfg.Mechanism)
	if op != "" {
		data["operation"] = op
	}

	level := observability.LevelVerbose
	if t == EventHookError {
		level = observability.LevelWarning
	}

	observability.Emit(context.Background(), a.cfg.Observer, observability.Event{
		Type:   t,
		Level:  level,
		Source: "async",
		Data:   data,
	})
}
