// Package bundle implements keyed application-state containers.
//
// A Bundle owns one state value that is replaced wholesale by named actions,
// exposes memoized selectors over that state, and notifies subscribers with
// an action Signal after every successful action. Combine flattens bundles
// (and other combined roots) into a single Combined root whose state is a
// map from bundle key to that bundle's state.
//
// Handlers and listeners run on the dispatching goroutine with no lock held.
// Asynchronous work belongs in the async package, which schedules its
// continuations on a scheduler.Loop.
package bundle
