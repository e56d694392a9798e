package controller

import "errors"

var (
	// ErrBusy is returned when a request conflicts with the current mode
	ErrBusy = errors.New("busy")

	// ErrIdle is returned when stopping something that is not running
	ErrIdle = errors.New("nothing to stop")
)
