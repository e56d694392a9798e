package store

import "errors"

var (
	// ErrNotFound is returned when no recording exists at the given path
	ErrNotFound = errors.New("recording not found")

	// ErrParse is returned when a recording file cannot be decoded
	ErrParse = errors.New("recording is corrupt")
)
