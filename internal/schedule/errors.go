package schedule

import "errors"

var (
	// ErrInvalidEntry is returned when schedule text cannot be parsed
	ErrInvalidEntry = errors.New("invalid schedule entry")

	// ErrDuplicate is returned when an equivalent entry is already scheduled
	ErrDuplicate = errors.New("schedule entry already exists")

	// ErrUnknownEntry is returned when removing an entry that is not scheduled
	ErrUnknownEntry = errors.New("schedule entry not found")
)
