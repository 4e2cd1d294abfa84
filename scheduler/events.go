package scheduler

import "github.com/tailored-agentic-units/bund/observability"

const (
	EventTick        observability.EventType = "scheduler.tick"
	EventAwaitStart  observability.EventType = "scheduler.await.start"
	EventAwaitSettle observability.EventType = "scheduler.await.settle"
)
