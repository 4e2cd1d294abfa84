// Package bridge connects bundles to reducer/dispatch style stores.
//
// Every action signal of a connected bundle is republished as an Event whose
// Type is "bund/<key>/<action>" and whose Payload is the bundle's new state.
// Reducers built with NewReducer adopt that payload for their bundle's
// events and ignore everything else, so a Store combining them mirrors the
// bundles it is connected to.
package bridge
