package models

import "errors"

// Error kinds shared by the store and service layers. Callers match them
// with errors.Is; the API layer maps them to response codes.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrAccessDenied    = errors.New("access denied")
	ErrInvalidArgument = errors.New("invalid argument")
)
