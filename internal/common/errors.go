// Package common defines shared constants and sentinel errors used across
// the Vaultword server layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Envelope errors.
	ErrFormat = errors.New("malformed envelope")
	// ErrAuthentication deliberately carries a single indistinct message:
	// a wrong key and a corrupted ciphertext must be indistinguishable
	// to the caller.
	ErrAuthentication = errors.New("cannot process")

	// Authorization errors. ErrForbidden covers both a missing recipient
	// key record and a proof mismatch with the identical signal.
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Collaborator errors.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrUpstream        = errors.New("upstream error")

	// ErrMisconfiguration marks a missing required secret or setting.
	// Fatal for the whole process, never a per-request condition.
	ErrMisconfiguration = errors.New("misconfiguration")

	// Generic internal flow control.
	ErrInternal = errors.New("internal error")
)
