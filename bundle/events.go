package bundle

import "github.com/tailored-agentic-units/bund/observability"

const (
	// Bundle lifecycle
	EventBundleCreate observability.EventType = "bundle.create"
	EventSetState     observability.EventType = "bundle.set_state"

	// Dispatch
	EventAction       observability.EventType = "bundle.action"
	EventActionFailed observability.EventType = "bundle.action.failed"
	EventApplyAction  observability.EventType = "bundle.apply"

	// Subscriptions
	EventSubscribe   observability.EventType = "bundle.subscribe"
	EventUnsubscribe observability.EventType = "bundle.unsubscribe"
)
