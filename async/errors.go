package async

import "errors"

var (
	ErrUnknownMechanism = errors.New("unknown async mechanism")
	ErrNoLoop           = errors.New("async action requires a scheduler loop")
	ErrNoFetch          = errors.New("async action requires a fetch function")
)
