// Package auth implements the security subsystem: access token
// issuance and validation, refresh token lifecycle with rotation,
// and role-based permission resolution. All failure modes are typed
// sentinel errors so the HTTP layer can map them to statuses without
// using errors as control flow.
package auth

import "errors"

// Access token validation failures. All map to HTTP 401 at the boundary.
var (
	// ErrTokenMalformed is returned when a token cannot be parsed at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenInvalidSignature is returned when the signature does not verify.
	ErrTokenInvalidSignature = errors.New("token signature invalid")
	// ErrTokenExpired is returned when the token is past its expiry
	// beyond the configured clock-skew leeway.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenClaimMismatch is returned when issuer or audience do not
	// match the configured values.
	ErrTokenClaimMismatch = errors.New("token issuer or audience mismatch")
)

// Refresh token failures. All map to HTTP 401 at the boundary.
var (
	// ErrRefreshMalformed is returned when the presented token is not
	// in "<id>.<secret>" form.
	ErrRefreshMalformed = errors.New("refresh token malformed")
	// ErrRefreshNotFound is returned when no record exists for the
	// presented token id.
	ErrRefreshNotFound = errors.New("refresh token not found")
	// ErrRefreshSecretMismatch is returned when the presented secret
	// does not verify against the stored hash.
	ErrRefreshSecretMismatch = errors.New("refresh token secret mismatch")
	// ErrRefreshExpired is returned when the record is past its expiry.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrRefreshRevoked is returned when the record was revoked, e.g.
	// consumed by a previous rotation or invalidated by logout.
	ErrRefreshRevoked = errors.New("refresh token revoked")
)

// ErrNotFound is returned by stores when no record matches. The
// subsystem treats it as authorization data being absent (fail
// closed), never as an infrastructure failure.
var ErrNotFound = errors.New("not found")

// ErrStoreUnavailable wraps transport-level store failures so
// operators can distinguish "bad credentials" from "dependency
// down". Maps to HTTP 503 at the boundary.
var ErrStoreUnavailable = errors.New("store unavailable")
