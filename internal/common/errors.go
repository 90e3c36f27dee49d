// Package common defines shared constants and sentinel errors used across
// the marketd services and transport layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Registry and pool errors.
	ErrConflict = errors.New("already exists")

	// Validation errors (malformed ids, empty-registry renewal attempts).
	ErrUnprocessable = errors.New("unprocessable")

	// External marketplace unreachable or returned an unexpected failure.
	ErrMarketplaceUnavailable = errors.New("marketplace unavailable")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
