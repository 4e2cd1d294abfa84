package bundle

import (
	"errors"
	"fmt"
)

// Sentinel errors for bundle and combined operations.
var (
	ErrEmptyKey          = errors.New("bundle key is empty")
	ErrInvalidDefinition = errors.New("invalid bundle definition")
	ErrNameCollision     = errors.New("action and selector share a name")
	ErrKeyMismatch       = errors.New("signal key does not match bundle key")
	ErrUnknownAction     = errors.New("unknown action")
	ErrUnknownSelector   = errors.New("unknown selector")
	ErrNotExported       = errors.New("bundle api is not exported")
	ErrDuplicateKey      = errors.New("duplicate bundle key")
	ErrBundleNotFound    = errors.New("bundle not found")
	ErrMalformedSignal   = errors.New("malformed action signal")
)

// HandlerError reports an action or selector function that returned an
// error. State is unchanged and subscribers are not notified when an action
// handler fails.
type HandlerError struct {
	Bundle string
	Kind   string // "action" or "selector"
	Name   string
	Err    error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("bundle %s: %s %s failed: %v", e.Bundle, e.Kind, e.Name, e.Err)
}

// Unwrap enables error unwrapping for errors.Is and errors.As.
func (e *HandlerError) Unwrap() error {
	return e.Err
}
