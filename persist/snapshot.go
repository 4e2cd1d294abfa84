package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/bund/bundle"
	"github.com/tailored-agentic-units/bund/observability"
)

// Option configures a Snapshotter.
type Option func(*Snapshotter)

// WithPrefix prepends prefix to every bundle key in the store.
func WithPrefix(prefix string) Option {
	return func(s *Snapshotter) { s.prefix = prefix }
}

// WithObserver sets the observer receiving persist events.
func WithObserver(o observability.Observer) Option {
	return func(s *Snapshotter) {
		if o != nil {
			s.observer = o
		}
	}
}

// Snapshotter saves and restores the leaf bundles of a root.
type Snapshotter struct {
	store    Store
	codec    Codec
	prefix   string
	observer observability.Observer
}

// NewSnapshotter pairs a store with a codec.
func NewSnapshotter(store Store, codec Codec, opts ...Option) *Snapshotter {
	s := &Snapshotter{
		store:    store,
		codec:    codec,
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store.
func (s *Snapshotter) Store() Store {
	return s.store
}

// Codec returns the codec in use.
func (s *Snapshotter) Codec() Codec {
	return s.codec
}

func (s *Snapshotter) key(b *bundle.Bundle) string {
	return s.prefix + b.Key()
}

// Save writes the current state of every leaf of root in one store call.
func (s *Snapshotter) Save(ctx context.Context, root bundle.Part) error {
	leaves := root.Bundles()
	entries := make([]Entry, 0, len(leaves))

	for _, b := range leaves {
		data, err := s.codec.Encode(b.State())
		if err != nil {
			return fmt.Errorf("%w: encode %s: %v", ErrSaveFailed, b.Key(), err)
		}
		entries = append(entries, Entry{Key: s.key(b), Value: data})
	}

	if err := s.store.Save(ctx, entries...); err != nil {
		return err
	}

	observability.Emit(ctx, s.observer, observability.Event{
		Type:   EventSave,
		Level:  observability.LevelInfo,
		Source: "persist.Save",
		Data:   map[string]any{"bundles": len(entries), "codec": s.codec.Name()},
	})
	return nil
}

// Restore loads and decodes the snapshot of every leaf of root and applies
// it with SetState. Leaves without a stored snapshot keep their state. No
// leaf is changed unless every stored snapshot loads and decodes. It returns
// the keys that were restored.
func (s *Snapshotter) Restore(ctx context.Context, root bundle.Part) ([]string, error) {
	type decoded struct {
		b     *bundle.Bundle
		state any
	}
	var pending []decoded

	for _, b := range root.Bundles() {
		entries, err := s.store.Load(ctx, s.key(b))
		if errors.Is(err, ErrKeyNotFound) {
			observability.Emit(ctx, s.observer, observability.Event{
				Type:   EventSkip,
				Level:  observability.LevelVerbose,
				Source: "persist.Restore",
				Data:   map[string]any{"bundle": b.Key()},
			})
			continue
		}
		if err != nil {
			return nil, err
		}

		state, err := s.codec.Decode(entries[0].Value, b.InitialState())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, b.Key(), err)
		}
		pending = append(pending, decoded{b: b, state: state})
	}

	restored := make([]string, 0, len(pending))
	for _, d := range pending {
		d.b.SetState(d.state)
		restored = append(restored, d.b.Key())
	}

	observability.Emit(ctx, s.observer, observability.Event{
		Type:   EventRestore,
		Level:  observability.LevelInfo,
		Source: "persist.Restore",
		Data:   map[string]any{"bundles": len(restored), "codec": s.codec.Name()},
	})
	return restored, nil
}

// Clear deletes the snapshots of every leaf of root.
func (s *Snapshotter) Clear(ctx context.Context, root bundle.Part) error {
	leaves := root.Bundles()
	keys := make([]string, len(leaves))
	for i, b := range leaves {
		keys[i] = s.key(b)
	}
	return s.store.Delete(ctx, keys...)
}

// Save is NewSnapshotter(store, codec).Save(ctx, root).
func Save(ctx context.Context, store Store, codec Codec, root bundle.Part) error {
	return NewSnapshotter(store, codec).Save(ctx, root)
}

// Restore is NewSnapshotter(store, codec).Restore(ctx, root).
func Restore(ctx context.Context, store Store, codec Codec, root bundle.Part) ([]string, error) {
	return NewSnapshotter(store, codec).Restore(ctx, root)
}
