package persist

import "context"

// Entry is one stored snapshot: the bundle key (with any store prefix
// applied) and the encoded state.
type Entry struct {
	Key   string
	Value []byte
}

// Store reads and writes encoded snapshots. Implementations perform I/O on
// each call and must be safe for concurrent use.
type Store interface {
	// List returns every stored key.
	List(ctx context.Context) ([]string, error)
	// Load returns the entries for keys, in order. A missing key fails with
	// ErrKeyNotFound.
	Load(ctx context.Context, keys ...string) ([]Entry, error)
	// Save creates or overwrites entries.
	Save(ctx context.Context, entries ...Entry) error
	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
