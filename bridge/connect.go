package bridge

import (
	"context"

	"github.com/tailored-agentic-units/bund/bundle"
	"github.com/tailored-agentic-units/bund/observability"
)

const (
	EventPublish       observability.EventType = "bridge.publish"
	EventPublishFailed observability.EventType = "bridge.publish.failed"
)

// Option configures Connect.
type Option func(*options)

type options struct {
	ctx      context.Context
	observer observability.Observer
	onError  func(Event, error)
}

// WithContext sets the context passed to Sink.Dispatch.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithObserver sets the observer receiving publish events.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithErrorHandler receives sink errors. Publishing continues with the next
// signal either way.
func WithErrorHandler(fn func(Event, error)) Option {
	return func(o *options) { o.onError = fn }
}

// Connect republishes every action signal of every leaf of root to sink.
// The returned function disconnects and is idempotent.
func Connect(root bundle.Part, sink Sink, opts ...Option) (disconnect func()) {
	o := options{
		ctx:      context.Background(),
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	publish := func(sig bundle.Signal, b *bundle.Bundle) {
		ev := Event{Type: EventType(sig.BundleKey, sig.Action), Payload: b.State()}

		if err := sink.Dispatch(o.ctx, ev); err != nil {
			observability.Emit(o.ctx, o.observer, observability.Event{
				Type:   EventPublishFailed,
				Level:  observability.LevelWarning,
				Source: "bridge",
				Data:   map[string]any{"type": ev.Type, "error": err.Error()},
			})
			if o.onError != nil {
				o.onError(ev, err)
			}
			return
		}

		observability.Emit(o.ctx, o.observer, observability.Event{
			Type:   EventPublish,
			Level:  observability.LevelVerbose,
			Source: "bridge",
			Data:   map[string]any{"type": ev.Type},
		})
	}

	leaves := root.Bundles()
	unsubs := make([]func(), len(leaves))
	for i, b := range leaves {
		unsubs[i] = b.OnChange(publish)
	}

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
