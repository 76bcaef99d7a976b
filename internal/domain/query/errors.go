package query

import "errors"

// Sentinel kinds for query errors.
var (
	ErrUnknownMode   = errors.New("unknown mode")
	ErrUnknownPolicy = errors.New("unknown coercion policy")
	ErrNotAnObject   = errors.New("fields must be a JSON object")
)
