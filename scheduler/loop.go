package scheduler

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/bund/observability"
)

// Option configures a Loop.
type Option func(*Loop)

// WithObserver sets the observer receiving loop events.
func WithObserver(o observability.Observer) Option {
	return func(l *Loop) { l.observer = o }
}

// WithContext sets the context handed to awaited operations.
// Defaults to context.Background().
func WithContext(ctx context.Context) Option {
	return func(l *Loop) { l.ctx = ctx }
}

// Loop is a cooperative task loop. Schedule and Await are safe to call from
// any goroutine; tasks and settle callbacks only run inside RunOnce, Run or
// RunUntilIdle, one tick at a time.
type Loop struct {
	id       string
	ctx      context.Context
	observer observability.Observer

	runMu sync.Mutex

	mu      sync.Mutex
	queue   []func()
	pending int
	ticks   uint64
	wake    chan struct{}
}

// New creates an idle Loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		id:       uuid.Must(uuid.NewV7()).String(),
		ctx:      context.Background(),
		observer: observability.NoOpObserver{},
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ID returns the unique loop identifier.
func (l *Loop) ID() string {
	return l.id
}

// Schedule queues task for the next tick.
func (l *Loop) Schedule(task func()) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	l.signal()
}

// Await runs op on a new goroutine and queues settle with its outcome once
// op returns. The loop counts the operation as pending until then.
func (l *Loop) Await(op func(ctx context.Context) (any, error), settle func(result any, err error)) {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	observability.Emit(l.ctx, l.observer, observability.Event{
		Type:   EventAwaitStart,
		Level:  observability.LevelVerbose,
		Source: "scheduler.Await",
		Data:   map[string]any{"loop_id": l.id},
	})

	go func() {
		result, err := op(l.ctx)

		l.mu.Lock()
		l.pending--
		l.queue = append(l.queue, func() {
			observability.Emit(l.ctx, l.observer, observability.Event{
				Type:   EventAwaitSettle,
				Level:  observability.LevelVerbose,
				Source: "scheduler.Await",
				Data:   map[string]any{"loop_id": l.id, "failed": err != nil},
			})
			settle(result, err)
		})
		l.mu.Unlock()
		l.signal()
	}()
}

// RunOnce runs a single tick: every task queued before the tick starts, in
// queue order. It returns the number of tasks run. RunOnce must not be
// called from inside a task.
func (l *Loop) RunOnce() int {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	l.mu.Lock()
	tasks := l.queue
	l.queue = nil
	if len(tasks) > 0 {
		l.ticks++
	}
	tick := l.ticks
	l.mu.Unlock()

	if len(tasks) == 0 {
		return 0
	}

	observability.Emit(l.ctx, l.observer, observability.Event{
		Type:   EventTick,
		Level:  observability.LevelVerbose,
		Source: "scheduler.RunOnce",
		Data:   map[string]any{"loop_id": l.id, "tick": tick, "tasks": len(tasks)},
	})

	for _, task := range tasks {
		task()
	}
	return len(tasks)
}

// RunUntilIdle runs ticks until no task is queued and no awaited operation
// is pending, or ctx is done.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	return l.run(ctx, true)
}

// Run runs ticks until ctx is done, sleeping while there is nothing to do.
// It always returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	return l.run(ctx, false)
}

func (l *Loop) run(ctx context.Context, stopWhenIdle bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.RunOnce() > 0 {
			continue
		}

		if stopWhenIdle && l.idle() {
			return nil
		}

		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Loop) idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) == 0 && l.pending == 0
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Ticks returns the number of ticks that ran at least one task.
func (l *Loop) Ticks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Pending returns the number of awaited operations that have not returned.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}
