package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Prefix starts the type of every event published for a bundle action.
const Prefix = "bund/"

// InitType is dispatched by NewStore so that reducers produce their initial
// state.
const InitType = "@@bund/INIT"

// Event is a store action: a type string and a payload.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// EventType returns "bund/<key>/<action>".
func EventType(key, action string) string {
	return Prefix + key + "/" + action
}

// ParseEventType splits a bundle event type into its key and action.
func ParseEventType(t string) (key, action string, ok bool) {
	rest, found := strings.CutPrefix(t, Prefix)
	if !found {
		return "", "", false
	}
	return strings.Cut(rest, "/")
}

// Encode returns the JSON form of e used on the wire by RedisSink.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses the JSON form produced by Encode.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode bridge event: %w", err)
	}
	return e, nil
}
