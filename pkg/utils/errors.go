package utils

import "errors"

var (
	// ErrInvalidArgument is returned for values rejected before any I/O:
	// unsupported avatar sizes, malformed ids, unknown destination kinds.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMissingAttribute is returned when an event lacks a field the
	// operation needs, e.g. a user id.
	ErrMissingAttribute = errors.New("missing attribute")
)
