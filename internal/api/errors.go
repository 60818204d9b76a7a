package api

import (
	"errors"
	"fmt"

	"github.com/rpggio/chemviz/internal/transport"
)

var (
	// ErrMissingCredentials indicates an empty identifier or password.
	ErrMissingCredentials = fmt.Errorf("%w: please fill in all fields", transport.ErrInvalidInput)
	// ErrPasswordMismatch indicates signup passwords that differ.
	ErrPasswordMismatch = fmt.Errorf("%w: passwords do not match", transport.ErrInvalidInput)
	// ErrInvalidDatasetID indicates a non-positive dataset id.
	ErrInvalidDatasetID = fmt.Errorf("%w: dataset id must be positive", transport.ErrInvalidInput)
	// ErrInvalidLimit indicates a negative row limit.
	ErrInvalidLimit = fmt.Errorf("%w: limit must not be negative", transport.ErrInvalidInput)
	// ErrNoToken indicates a successful auth response that carried no token.
	ErrNoToken = errors.New("auth response carried no token")
	// ErrInvalidCredentials marks a 401 from login or signup. It is set alongside
	// transport.ErrUnauthorized and means the credentials were rejected, not that
	// a session ended.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
