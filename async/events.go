package async

import "github.com/tailored-agentic-units/bund/observability"

const (
	EventDispatch  observability.EventType = "async.dispatch"
	EventSkip      observability.EventType = "async.skip"
	EventPark      observability.EventType = "async.park"
	EventStart     observability.EventType = "async.start"
	EventSettle    observability.EventType = "async.settle"
	EventHookError observability.EventType = "async.hook.error"
)
