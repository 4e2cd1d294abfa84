// Package async builds bundle actions that run a fetch-like operation off the
// dispatching call and report its outcome through hook actions on the owning
// bundle.
//
// Every accepted operation follows the same cycle, with all hook dispatch on
// the scheduler loop goroutine:
//
//	Before() -> fetch(ctx, args...) -> Success(result) | Error(err) -> After()
//
// The Mechanism decides what happens when the action is dispatched again
// while an operation is in flight. A fetch that never returns keeps the
// action in flight forever, which permanently blocks the First and
// Sequential mechanisms. There is no cancellation or timeout.
package async
