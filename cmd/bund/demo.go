package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/tailored-agentic-units/bund/async"
	"github.com/tailored-agentic-units/bund/bundle"
	"github.com/tailored-agentic-units/bund/observability"
	"github.com/tailored-agentic-units/bund/scheduler"
)

// Todo is one entry of the todos bundle.
type Todo struct {
	ID    int    `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Done  bool   `json:"done" yaml:"done"`
}

// TodoList is the todos bundle state.
type TodoList struct {
	Next  int    `json:"next" yaml:"next"`
	Items []Todo `json:"items" yaml:"items"`
}

// Remote is the state of the remote bundle, which loads a value through an
// async action.
type Remote struct {
	Loading bool   `json:"loading" yaml:"loading"`
	Value   int    `json:"value" yaml:"value"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Loads   int    `json:"loads" yaml:"loads"`
}

var errNotANumber = errors.New("argument is not a number")

func intArg(args []any, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	switch v := args[i].(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errNotANumber, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %T", errNotANumber, v)
	}
}

func stringArg(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i+1)
	}
	return fmt.Sprint(args[i]), nil
}

func newCounter(obs observability.Observer) *bundle.Bundle {
	return bundle.MustNew(bundle.Definition{
		Key:          "counter",
		InitialState: 0,
		ExportAPI:    true,
		Actions: map[string]bundle.ActionFunc{
			"inc": func(_ *bundle.Bundle, s any, _ ...any) (any, error) { return s.(int) + 1, nil },
			"dec": func(_ *bundle.Bundle, s any, _ ...any) (any, error) { return s.(int) - 1, nil },
			"add": func(_ *bundle.Bundle, s any, args ...any) (any, error) {
				n, err := intArg(args, 0)
				if err != nil {
					return nil, err
				}
				return s.(int) + n, nil
			},
			"set": func(_ *bundle.Bundle, _ any, args ...any) (any, error) {
				return intArg(args, 0)
			},
		},
		Selectors: map[string]bundle.SelectorFunc{
			"double": func(s any, _ ...any) (any, error) { return s.(int) * 2, nil },
			"even":   func(s any, _ ...any) (any, error) { return s.(int)%2 == 0, nil },
		},
	}, bundle.WithObserver(obs))
}

func newTodos(obs observability.Observer) *bundle.Bundle {
	update := func(s any, id int, f func(Todo) (Todo, bool)) TodoList {
		st := s.(TodoList)
		items := make([]Todo, 0, len(st.Items))
		for _, t := range st.Items {
			if t.ID == id {
				var keep bool
				if t, keep = f(t); !keep {
					continue
				}
			}
			items = append(items, t)
		}
		return TodoList{Next: st.Next, Items: items}
	}

	return bundle.MustNew(bundle.Definition{
		Key:          "todos",
		InitialState: TodoList{Next: 1},
		ExportAPI:    true,
		Actions: map[string]bundle.ActionFunc{
			"add": func(_ *bundle.Bundle, s any, args ...any) (any, error) {
				title, err := stringArg(args, 0)
				if err != nil {
					return nil, err
				}
				st := s.(TodoList)
				return TodoList{
					Next:  st.Next + 1,
					Items: append(slices.Clone(st.Items), Todo{ID: st.Next, Title: title}),
				}, nil
			},
			"toggle": func(_ *bundle.Bundle, s any, args ...any) (any, error) {
				id, err := intArg(args, 0)
				if err != nil {
					return nil, err
				}
				return update(s, id, func(t Todo) (Todo, bool) { t.Done = !t.Done; return t, true }), nil
			},
			"remove": func(_ *bundle.Bundle, s any, args ...any) (any, error) {
				id, err := intArg(args, 0)
				if err != nil {
					return nil, err
				}
				return update(s, id, func(t Todo) (Todo, bool) { return t, false }), nil
			},
			"clear": func(_ *bundle.Bundle, s any, _ ...any) (any, error) {
				return TodoList{Next: s.(TodoList).Next}, nil
			},
		},
		Selectors: map[string]bundle.SelectorFunc{
			"remaining": func(s any, _ ...any) (any, error) {
				n := 0
				for _, t := range s.(TodoList).Items {
					if !t.Done {
						n++
					}
				}
				return n, nil
			},
		},
	}, bundle.WithObserver(obs))
}

// fetchRemote simulates a remote call. It answers with its first argument,
// or 42, after a short delay, and fails for "fail".
func fetchRemote(ctx context.Context, args ...any) (any, error) {
	select {
	case <-time.After(20 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if len(args) == 0 {
		return 42, nil
	}
	if s, ok := args[0].(string); ok && s == "fail" {
		return nil, errors.New("remote refused the request")
	}
	return intArg(args, 0)
}

func newRemote(loop *scheduler.Loop, mechanism async.Mechanism, obs observability.Observer) *bundle.Bundle {
	return bundle.MustNew(bundle.Definition{
		Key:          "remote",
		InitialState: Remote{},
		Actions: map[string]bundle.ActionFunc{
			"begin": func(_ *bundle.Bundle, s any, _ ...any) (any, error) {
				r := s.(Remote)
				r.Loading = true
				r.Error = ""
				return r, nil
			},
			"receive": func(_ *bundle.Bundle, s any, args ...any) (any, error) {
				n, err := intArg(args, 0)
				if err != nil {
					return nil, err
				}
				r := s.(Remote)
				r.Value = n
				r.Loads++
				return r, nil
			},
			"fail": func(_ *bundle.Bundle, s any, args ...any) (any, error) {
				msg, err := stringArg(args, 0)
				if err != nil {
					return nil, err
				}
				r := s.(Remote)
				r.Error = msg
				return r, nil
			},
			"end": func(_ *bundle.Bundle, s any, _ ...any) (any, error) {
				r := s.(Remote)
				r.Loading = false
				return r, nil
			},
			"fetch": async.New(async.Config{
				Mechanism: mechanism,
				Loop:      loop,
				Fetch:     fetchRemote,
				Before:    "begin",
				Success:   "receive",
				Error:     "fail",
				After:     "end",
				Observer:  obs,
			}),
		},
	}, bundle.WithObserver(obs))
}

// newDemoRoot builds the demo bundles on loop.
func newDemoRoot(loop *scheduler.Loop, mechanism async.Mechanism, obs observability.Observer) *bundle.Combined {
	return bundle.MustCombine(
		newCounter(obs),
		newTodos(obs),
		newRemote(loop, mechanism, obs),
	)
}
