// Package persist moves plain state snapshots of bundles in and out of
// storage.
//
// A Snapshotter encodes each leaf bundle's state with a Codec and writes one
// Entry per bundle key to a Store. Restoring decodes every entry into the
// concrete type of the bundle's initial state and feeds it back through
// SetState, so subscribers are not notified and typed states survive the
// round trip.
//
// Stores are stateless translators to a backend: MemoryStore, FileStore,
// SQLiteStore and RedisStore all implement the same four-method interface.
package persist
