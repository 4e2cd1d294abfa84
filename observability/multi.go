package observability

import "context"

// MultiObserver fans out events to several observers in order. Nested
// MultiObservers are flattened and NoOpObservers dropped at construction.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver over the non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	m := &MultiObserver{observers: make([]Observer, 0, len(observers))}
	for _, obs := range observers {
		switch o := obs.(type) {
		case nil, NoOpObserver, *NoOpObserver:
		case *MultiObserver:
			m.observers = append(m.observers, o.observers...)
		default:
			m.observers = append(m.observers, obs)
		}
	}
	return m
}

// Combine returns the cheapest observer equivalent to fanning out to
// observers: NoOpObserver for none, the observer itself for one.
func Combine(observers ...Observer) Observer {
	m := NewMultiObserver(observers...)
	switch len(m.observers) {
	case 0:
		return NoOpObserver{}
	case 1:
		return m.observers[0]
	default:
		return m
	}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}

// Len reports how many observers receive events.
func (m *MultiObserver) Len() int {
	return len(m.observers)
}
