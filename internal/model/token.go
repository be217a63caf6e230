package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table. Each
// refresh token belongs to a user and carries metadata for expiry
// and revocation. The plaintext secret is never stored; only its
// bcrypt hash. Records are soft-revoked and retained for audit and
// replay detection, never deleted proactively.
//
// Fields:
//  ID         – primary key identifier (uuid).
//  UserID     – owner of the token.
//  TokenID    – externally visible id (first half of the wire token).
//  SecretHash – bcrypt hash of the token secret.
//  CreatedAt  – timestamp of creation.
//  ExpiresAt  – expiration timestamp of the token.
//  RevokedAt  – when the token was revoked (nil if still active).
type RefreshToken struct {
	ID         string     // refresh_tokens.id
	UserID     string     // refresh_tokens.user_id
	TokenID    string     // refresh_tokens.token_id
	SecretHash string     // refresh_tokens.secret_hash
	CreatedAt  time.Time  // refresh_tokens.created_at
	ExpiresAt  time.Time  // refresh_tokens.expires_at
	RevokedAt  *time.Time // refresh_tokens.revoked_at (nullable)
}

// Active reports whether the record can still mint a successor at
// the given instant: not revoked and not past its expiry.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
