package bundle

import (
	"fmt"
	"slices"
)

// Signal is the action signal broadcast to subscribers after every
// successful action: the owning bundle's key, the action name and the
// arguments the action was called with.
type Signal struct {
	BundleKey string `json:"bundle"`
	Action    string `json:"action"`
	Args      []any  `json:"args,omitempty"`
}

// NewSignal builds a Signal, copying args.
func NewSignal(key, action string, args ...any) Signal {
	return Signal{BundleKey: key, Action: action, Args: slices.Clone(args)}
}

// Tuple returns the signal in its flat form: key, action, args...
func (s Signal) Tuple() []any {
	t := make([]any, 0, len(s.Args)+2)
	t = append(t, s.BundleKey, s.Action)
	return append(t, s.Args...)
}

// String returns "key/action".
func (s Signal) String() string {
	return s.BundleKey + "/" + s.Action
}

// SignalFromTuple parses the flat form produced by Tuple. The first two
// elements must be strings.
func SignalFromTuple(t []any) (Signal, error) {
	if len(t) < 2 {
		return Signal{}, fmt.Errorf("%w: need at least 2 elements, got %d", ErrMalformedSignal, len(t))
	}
	key, ok := t[0].(string)
	if !ok {
		return Signal{}, fmt.Errorf("%w: bundle key is %T", ErrMalformedSignal, t[0])
	}
	action, ok := t[1].(string)
	if !ok {
		return Signal{}, fmt.Errorf("%w: action name is %T", ErrMalformedSignal, t[1])
	}
	return NewSignal(key, action, t[2:]...), nil
}
