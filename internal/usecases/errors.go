package usecases

import "errors"

// Error taxonomy surfaced to the HTTP and socket boundaries. A tenant
// mismatch is reported as ErrNotFound on purpose: it must be
// indistinguishable from true absence so tenant existence never leaks.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
)
