package bridge

import (
	"strings"

	"github.com/tailored-agentic-units/bund/bundle"
)

// Reducer computes the next store state for one slice from the previous
// slice state and an event.
type Reducer func(state any, ev Event) any

// NewReducer returns a reducer mirroring b: events typed "bund/<key>/..."
// replace the slice with their payload, any other event keeps it. A nil
// state starts from b's initial state.
func NewReducer(b *bundle.Bundle) Reducer {
	prefix := Prefix + b.Key() + "/"
	initial := b.InitialState()

	return func(state any, ev Event) any {
		if state == nil {
			state = initial
		}
		if strings.HasPrefix(ev.Type, prefix) {
			return ev.Payload
		}
		return state
	}
}

// Reducers returns one reducer per leaf of root keyed by bundle key, ready
// for NewStore.
func Reducers(root bundle.Part) map[string]Reducer {
	leaves := root.Bundles()
	out := make(map[string]Reducer, len(leaves))
	for _, b := range leaves {
		out[b.Key()] = NewReducer(b)
	}
	return out
}
