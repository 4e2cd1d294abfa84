package persist

import "github.com/tailored-agentic-units/bund/observability"

const (
	EventSave    observability.EventType = "persist.save"
	EventRestore observability.EventType = "persist.restore"
	EventSkip    observability.EventType = "persist.skip"
)
