package session

import "errors"

var (
	// ErrInvalidInput indicates an empty token.
	ErrInvalidInput = errors.New("invalid session input")
	// ErrNotAuthenticated indicates an operation that needs a signed-in session.
	ErrNotAuthenticated = errors.New("not authenticated")
)
