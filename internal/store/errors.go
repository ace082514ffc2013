package store

import "errors"

// Sentinel errors for the boundary layer to map onto status codes. Callers
// match with errors.Is; wrapped messages carry the offending key.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrForbidden  = errors.New("not a conversation member")
	ErrValidation = errors.New("invalid request")
)
