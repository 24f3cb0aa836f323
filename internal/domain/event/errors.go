package event

import "errors"

var (
	// ErrInvalidInput indicates a nil or malformed event.
	ErrInvalidInput = errors.New("invalid event input")
	// ErrUnknownType indicates an event type the codec does not handle.
	ErrUnknownType = errors.New("unknown event type")
)
