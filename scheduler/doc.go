// Package scheduler provides a single-threaded cooperative loop.
//
// A Loop runs tasks one tick at a time. Tasks scheduled while a tick is
// running are deferred to the next tick, so a task never runs inline with the
// code that scheduled it. Blocking work is handed to Await: the operation runs
// on its own goroutine and its settle callback is queued back onto the loop,
// which keeps every continuation on the loop goroutine.
//
//	loop := scheduler.New()
//	loop.Schedule(func() { fmt.Println("next tick") })
//	loop.Await(fetch, func(v any, err error) { fmt.Println(v, err) })
//	_ = loop.RunUntilIdle(ctx)
//
// The loop enforces no timeout or cancellation on awaited operations; an
// operation that never returns keeps the loop from becoming idle.
package scheduler
