// Package common defines shared constants and sentinel errors used across
// the layers of the evidence service. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Validation errors (bad or missing caller input).
	ErrorValidation = errors.New("validation error")

	// Upload lifecycle errors.
	ErrorNotAttached       = errors.New("evidence has no attached file")
	ErrorInvalidCredential = errors.New("file key does not match issued credential")
	ErrorConflict          = errors.New("conflicting evidence metadata")

	// Storage gateway errors (transport failures, surfaced without retry).
	ErrorUpstream = errors.New("storage gateway error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
)
