package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these with context; the HTTP layer maps them to statuses.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrUnavailable  = errors.New("store unavailable")
)
