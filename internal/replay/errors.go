package replay

import "errors"

var (
	// ErrInvalidSpeed is returned when a negative speed multiplier is given
	ErrInvalidSpeed = errors.New("invalid speed multiplier")

	// ErrUnknownKind is recorded for events that are neither moves nor clicks
	ErrUnknownKind = errors.New("unknown event kind")
)
