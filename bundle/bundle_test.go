package bundle_test

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/bund/bundle"
	"github.com/tailored-agentic-units/bund/observability"
)

func inc(_ *bundle.Bundle, s any, _ ...any) (any, error) { return s.(int) + 1, nil }
func dec(_ *bundle.Bundle, s any, _ ...any) (any, error) { return s.(int) - 1, nil }

func add(_ *bundle.Bundle, s any, args ...any) (any, error) {
	n := s.(int)
	for _, a := range args {
		n += a.(int)
	}
	return n, nil
}

func counterDef(key string) bundle.Definition {
	return bundle.Definition{
		Key:          key,
		InitialState: 0,
		ExportAPI:    true,
		Actions: map[string]bundle.ActionFunc{
			"inc": inc,
			"dec": dec,
			"add": add,
		},
	}
}

func TestNew_InitialState(t *testing.T) {
	b, err := bundle.New(counterDef("count"))
	require.NoError(t, err)

	assert.Equal(t, "count", b.Key())
	assert.Equal(t, 0, b.State())
	assert.Equal(t, b.InitialState(), b.State())
	assert.NotEmpty(t, b.ID())
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		def  bundle.Definition
		want error
	}{
		{
			name: "empty key",
			def:  bundle.Definition{},
			want: bundle.ErrEmptyKey,
		},
		{
			name: "nil action",
			def: bundle.Definition{
				Key:     "k",
				Actions: map[string]bundle.ActionFunc{"x": nil},
			},
			want: bundle.ErrInvalidDefinition,
		},
		{
			name: "nil selector",
			def: bundle.Definition{
				Key:       "k",
				Selectors: map[string]bundle.SelectorFunc{"x": nil},
			},
			want: bundle.ErrInvalidDefinition,
		},
		{
			name: "exported name collision",
			def: bundle.Definition{
				Key:       "k",
				ExportAPI: true,
				Actions:   map[string]bundle.ActionFunc{"x": inc},
				Selectors: map[string]bundle.SelectorFunc{
					"x": func(s any, _ ...any) (any, error) { return s, nil },
				},
			},
			want: bundle.ErrNameCollision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bundle.New(tt.def)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNew_UnexportedCollisionAllowed(t *testing.T) {
	b, err := bundle.New(bundle.Definition{
		Key:       "k",
		Actions:   map[string]bundle.ActionFunc{"x": inc},
		Selectors: map[string]bundle.SelectorFunc{"x": func(s any, _ ...any) (any, error) { return s, nil }},
	})
	require.NoError(t, err)
	assert.False(t, b.Exported())
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() { bundle.MustNew(bundle.Definition{}) })
}

func TestDispatch(t *testing.T) {
	b := bundle.MustNew(counterDef("count"))

	require.NoError(t, b.Dispatch("inc"))
	assert.Equal(t, 1, b.State())

	b.SetState(2)
	assert.Equal(t, 2, b.State())

	require.NoError(t, b.Dispatch("dec"))
	assert.Equal(t, 1, b.State())

	require.NoError(t, b.Dispatch("add", 2, 3))
	assert.Equal(t, 6, b.State())

	assert.Equal(t, 0, b.InitialState())
}

func TestDispatch_UnknownAction(t *testing.T) {
	b := bundle.MustNew(counterDef("count"))
	err := b.Dispatch("missing")
	assert.ErrorIs(t, err, bundle.ErrUnknownAction)
	assert.Contains(t, err.Error(), "count/missing")
}

func TestDispatch_HandlerError(t *testing.T) {
	boom := errors.New("boom")
	b := bundle.MustNew(bundle.Definition{
		Key:          "k",
		InitialState: 5,
		Actions: map[string]bundle.ActionFunc{
			"fail": func(_ *bundle.Bundle, _ any, _ ...any) (any, error) { return nil, boom },
		},
	})

	notified := 0
	b.OnChange(func(bundle.Signal, *bundle.Bundle) { notified++ })

	err := b.Dispatch("fail")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var herr *bundle.HandlerError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "k", herr.Bundle)
	assert.Equal(t, "fail", herr.Name)
	assert.Equal(t, "action", herr.Kind)

	assert.Equal(t, 5, b.State())
	assert.Zero(t, notified)
	assert.Equal(t, int64(1), b.Metrics().Failures)
}

func TestActionCallers(t *testing.T) {
	b := bundle.MustNew(counterDef("count"))

	incFn, ok := b.Action("inc")
	require.True(t, ok)
	require.NoError(t, incFn())
	require.NoError(t, incFn())
	assert.Equal(t, 2, b.State())

	_, ok = b.Action("missing")
	assert.False(t, ok)

	actions := b.Actions()
	assert.Len(t, actions, 3)
	require.NoError(t, actions["dec"]())
	assert.Equal(t, 1, b.State())

	assert.Equal(t, []string{"add", "dec", "inc"}, b.ActionNames())
	assert.True(t, b.HasAction("add"))
}

func TestSetState_Idempotent(t *testing.T) {
	b := bundle.MustNew(counterDef("count"))
	require.NoError(t, b.Dispatch("add", 7))

	before := b.State()
	b.SetState(b.State())
	assert.Equal(t, before, b.State())
}

func TestSetState_DoesNotNotify(t *testing.T) {
	b := bundle.MustNew(counterDef("count"))
	notified := 0
	b.OnChange(func(bundle.Signal, *bundle.Bundle) { notified++ })

	b.SetState(42)
	assert.Zero(t, notified)
}

func TestSelect_Memoized(t *testing.T) {
	calls := 0
	b := bundle.MustNew(bundle.Definition{
		Key:          "count",
		InitialState: 0,
		ExportAPI:    true,
		Actions:      map[string]bundle.ActionFunc{"inc": inc},
		Selectors: map[string]bundle.SelectorFunc{
			"neg": func(s any, _ ...any) (any, error) { return -s.(int), nil },
			"mem": func(s any, _ ...any) (any, error) {
				calls++
				return calls, nil
			},
		},
	})

	require.NoError(t, b.Dispatch("inc"))
	require.NoError(t, b.Dispatch("inc"))

	neg, err := b.Select("neg")
	require.NoError(t, err)
	assert.Equal(t, -2, neg)

	v, err := b.Select("mem")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = b.Select("mem")
	require.NoError(t, err)
	assert.Equal(t, 1, v, "unchanged state must not recompute")

	require.NoError(t, b.Dispatch("inc"))

	v, err = b.Select("mem")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	m := b.Metrics()
	assert.Equal(t, int64(1), m.SelectorHits)
	assert.Equal(t, int64(3), m.SelectorMisses)
}

func TestSelect_Args(t *testing.T) {
	calls := 0
	b := bundle.MustNew(bundle.Definition{
		Key:          "list",
		InitialState: []string{"a", "b", "c"},
		Selectors: map[string]bundle.SelectorFunc{
			"at": func(s any, args ...any) (any, error) {
				calls++
				i := args[0].(int)
				items := s.([]string)
				if i >= len(items) {
					return nil, fmt.Errorf("index %d out of range", i)
				}
				return items[i], nil
			},
		},
	})

	v, err := b.Select("at", 1)
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = b.Select("at", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = b.Select("at", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	_, err = b.Select("at", 9)
	var herr *bundle.HandlerError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "selector", herr.Kind)

	_, err = b.Select("missing")
	assert.ErrorIs(t, err, bundle.ErrUnknownSelector)

	sel, ok := b.Selector("at")
	require.True(t, ok)
	v, err = sel(0)
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	assert.Len(t, b.Selectors(), 1)
	assert.Equal(t, []string{"at"}, b.SelectorNames())
}

func TestCall(t *testing.T) {
	def := counterDef("count")
	def.Selectors = map[string]bundle.SelectorFunc{
		"double": func(s any, _ ...any) (any, error) { return s.(int) * 2, nil },
	}
	b := bundle.MustNew(def)

	v, err := b.Call("inc")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = b.Call("double")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = b.Call("nope")
	assert.ErrorIs(t, err, bundle.ErrUnknownAction)

	def.Key = "hidden"
	def.ExportAPI = false
	hidden := bundle.MustNew(def)
	_, err = hidden.Call("inc")
	assert.ErrorIs(t, err, bundle.ErrNotExported)
}

func TestOnChange_Signal(t *testing.T) {
	b := bundle.MustNew(counterDef("count"))

	var got []bundle.Signal
	var from *bundle.Bundle
	b.OnChange(func(sig bundle.Signal, src *bundle.Bundle) {
		got = append(got, sig)
		from = src
	})

	require.NoError(t, b.Dispatch("add", 4))
	require.NoError(t, b.Dispatch("inc"))

	require.Len(t, got, 2)
	assert.Equal(t, bundle.Signal{BundleKey: "count", Action: "add", Args: []any{4}}, got[0])
	assert.Equal(t, "count/inc", got[1].String())
	assert.Same(t, b, from)
}

func TestOnChange_Order(t *testing.T) {
	b := bundle.MustNew(counterDef("count"))

	var order []int
	for i := range 3 {
		b.OnChange(func(bundle.Signal, *bundle.Bundle) { order = append(order, i) })
	}

	require.NoError(t, b.Dispatch("inc"))
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestOnChange_Unsubscribe(t *testing.T) {
	b := bundle.MustNew(counterDef("count"))

	calls := 0
	unsub := b.OnChange(func(bundle.Signal, *bundle.Bundle) { calls++ })

	require.NoError(t, b.Dispatch("inc"))
	assert.Equal(t, 1, calls)

	unsub()
	unsub()

	require.NoError(t, b.Dispatch("inc"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(0), b.Metrics().Subscribers)
}

func TestOnChange_UnsubscribeDuringNotification(t *testing.T) {
	b := bundle.MustNew(counterDef("count"))

	var order []string
	var unsubSecond func()

	b.OnChange(func(bundle.Signal, *bundle.Bundle) {
		order = append(order, "first")
		unsubSecond()
	})
	unsubSecond = b.OnChange(func(bundle.Signal, *bundle.Bundle) {
		order = append(order, "second")
	})
	b.OnChange(func(bundle.Signal, *bundle.Bundle) {
		order = append(order, "third")
	})

	require.NoError(t, b.Dispatch("inc"))
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestOnChange_SubscribeDuringNotification(t *testing.T) {
	b := bundle.MustNew(counterDef("count"))

	late := 0
	subscribed := false
	b.OnChange(func(bundle.Signal, *bundle.Bundle) {
		if !subscribed {
			subscribed = true
			b.OnChange(func(bundle.Signal, *bundle.Bundle) { late++ })
		}
	})

	require.NoError(t, b.Dispatch("inc"))
	assert.Zero(t, late, "listener added mid-pass joins the next pass")

	require.NoError(t, b.Dispatch("inc"))
	assert.Equal(t, 1, late)
}

func TestOnChange_Reentrant(t *testing.T) {
	b := bundle.MustNew(counterDef("count"))

	b.OnChange(func(sig bundle.Signal, src *bundle.Bundle) {
		if sig.Action == "inc" && src.State().(int) < 3 {
			require.NoError(t, src.Dispatch("inc"))
		}
	})

	require.NoError(t, b.Dispatch("inc"))
	assert.Equal(t, 3, b.State())
}

func TestDefinitionListeners(t *testing.T) {
	var seen []string
	def := counterDef("count")
	def.Listeners = []bundle.Listener{
		func(sig bundle.Signal, _ *bundle.Bundle) { seen = append(seen, "a:"+sig.Action) },
		func(sig bundle.Signal, _ *bundle.Bundle) { seen = append(seen, "b:"+sig.Action) },
	}
	b := bundle.MustNew(def)

	require.NoError(t, b.Dispatch("inc"))
	assert.Equal(t, []string{"a:inc", "b:inc"}, seen)
}

func TestApplyAction(t *testing.T) {
	b := bundle.MustNew(counterDef("count"))

	require.NoError(t, b.ApplyAction(bundle.NewSignal("count", "add", 5)))
	assert.Equal(t, 5, b.State())

	err := b.ApplyAction(bundle.NewSignal("other", "inc"))
	assert.ErrorIs(t, err, bundle.ErrKeyMismatch)
	assert.Equal(t, 5, b.State())

	err = b.ApplyAction(bundle.NewSignal("count", "nope"))
	assert.ErrorIs(t, err, bundle.ErrUnknownAction)
	assert.Equal(t, 5, b.State())
}

func TestApplyAction_Replay(t *testing.T) {
	src := bundle.MustNew(counterDef("count"))
	dst := bundle.MustNew(counterDef("count"))

	src.OnChange(func(sig bundle.Signal, _ *bundle.Bundle) {
		require.NoError(t, dst.ApplyAction(sig))
	})

	require.NoError(t, src.Dispatch("inc"))
	require.NoError(t, src.Dispatch("add", 10))
	assert.Equal(t, src.State(), dst.State())
	assert.NotEqual(t, src.ID(), dst.ID())
}

func TestSignalTuple(t *testing.T) {
	sig := bundle.NewSignal("count", "add", 1, 2)
	tuple := sig.Tuple()
	assert.Equal(t, []any{"count", "add", 1, 2}, tuple)

	back, err := bundle.SignalFromTuple(tuple)
	require.NoError(t, err)
	assert.Equal(t, sig, back)

	_, err = bundle.SignalFromTuple([]any{"count"})
	assert.ErrorIs(t, err, bundle.ErrMalformedSignal)

	_, err = bundle.SignalFromTuple([]any{1, "inc"})
	assert.ErrorIs(t, err, bundle.ErrMalformedSignal)
}

func TestNewSignal_CopiesArgs(t *testing.T) {
	args := []any{1, 2}
	sig := bundle.NewSignal("k", "a", args...)
	args[0] = 99
	assert.Equal(t, 1, sig.Args[0])
}

func TestObserverEvents(t *testing.T) {
	rec := observability.NewRecorder()
	b := bundle.MustNew(counterDef("count"), bundle.WithObserver(rec))

	unsub := b.OnChange(func(bundle.Signal, *bundle.Bundle) {})
	require.NoError(t, b.Dispatch("inc"))
	b.SetState(0)
	unsub()

	types := rec.Types()
	assert.True(t, slices.Contains(types, bundle.EventBundleCreate))
	assert.True(t, slices.Contains(types, bundle.EventAction))
	assert.True(t, slices.Contains(types, bundle.EventSetState))
	assert.True(t, slices.Contains(types, bundle.EventSubscribe))
	assert.True(t, slices.Contains(types, bundle.EventUnsubscribe))

	for _, e := range rec.Events() {
		assert.Equal(t, "count", e.Data["bundle"])
		assert.Equal(t, "bundle", e.Source)
	}
}

func TestMetrics(t *testing.T) {
	b := bundle.MustNew(counterDef("count"))
	b.OnChange(func(bundle.Signal, *bundle.Bundle) {})
	b.OnChange(func(bundle.Signal, *bundle.Bundle) {})

	require.NoError(t, b.Dispatch("inc"))
	require.NoError(t, b.Dispatch("inc"))

	m := b.Metrics()
	assert.Equal(t, int64(2), m.Actions)
	assert.Equal(t, int64(4), m.Notifications)
	assert.Equal(t, int64(2), m.Subscribers)
}
