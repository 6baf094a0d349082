package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorVersionConflict = errors.New("version conflict")

	// Crypto errors.
	ErrorBadPublicKey = errors.New("bad public key")
	ErrorBadSignature = errors.New("bad signature")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
