package async

import (
	"fmt"
	"strings"
)

// Mechanism selects how repeated dispatches of one async action interact.
type Mechanism string

const (
	// MechanismEvery starts a new operation on every dispatch.
	MechanismEvery Mechanism = "every"
	// MechanismOnce starts a single operation for the lifetime of the action.
	MechanismOnce Mechanism = "once"
	// MechanismFirst ignores dispatches while an operation is in flight.
	MechanismFirst Mechanism = "first"
	// MechanismSequential parks the latest dispatch made while an operation
	// is in flight and retries it on the tick after that operation settles.
	MechanismSequential Mechanism = "sequential"
)

// ParseMechanism maps a case-insensitive name to a Mechanism. An empty name
// yields MechanismEvery.
func ParseMechanism(s string) (Mechanism, error) {
	switch m := Mechanism(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MechanismEvery, nil
	case MechanismEvery, MechanismOnce, MechanismFirst, MechanismSequential:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMechanism, s)
	}
}

// decision is what a mechanism does with a dispatch.
type decision int

const (
	start decision = iota
	skip
	park
)

// decide is the pure policy: given whether an operation is currently in
// flight, start, skip or park the dispatch.
func (m Mechanism) decide(current bool) decision {
	switch m {
	case MechanismOnce, MechanismFirst:
		if current {
			return skip
		}
	case MechanismSequential:
		if current {
			return park
		}
	}
	return start
}

// clears reports whether current returns to idle after an operation settles.
func (m Mechanism) clears() bool {
	return m != MechanismOnce
}

func (d decision) String() string {
	switch d {
	case start:
		return "start"
	case skip:
		return "skip"
	case park:
		return "park"
	default:
		return "unknown"
	}
}
