// Package common defines shared constants and sentinel errors used across
// authkeeper layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Login errors. Unknown email and wrong password both map here.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Guard errors. Every token problem is reported to callers as
	// ErrUnauthenticated; the finer reasons stay in the logs.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrMissingToken    = errors.New("missing token")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenRevoked    = errors.New("token revoked")
	ErrUnknownSubject  = errors.New("unknown subject")

	// Infrastructure errors.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
	ErrLedgerUnavailable    = errors.New("revocation ledger unavailable")
)
