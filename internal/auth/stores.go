package auth

import (
	"context"
	"time"

	"github.com/sportbase/backend/internal/model"
)

// The subsystem never owns persistence; it consumes the narrow store
// contracts below. Implementations return ErrNotFound when no record
// matches and any other error for transport failures, which the
// callers wrap as ErrStoreUnavailable.

// UserStore reads user records for credential verification and
// permission resolution.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// RoleStore reads role records referenced by a user's role-id list.
type RoleStore interface {
	FindByID(ctx context.Context, id string) (*model.Role, error)
}

// PermissionStore reads permission records referenced by a role.
type PermissionStore interface {
	FindByID(ctx context.Context, id string) (*model.Permission, error)
}

// RefreshTokenStore persists refresh token records keyed by their
// externally visible token id. Revocation is a soft flag; records
// are retained so replays of rotated tokens can be detected and
// rejected with ErrRefreshRevoked rather than ErrRefreshNotFound.
type RefreshTokenStore interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	// FindByTokenID returns the record regardless of its revoked or
	// expired state; the coordinator decides how to reject it.
	FindByTokenID(ctx context.Context, tokenID string) (*model.RefreshToken, error)
	// Revoke marks one record revoked at the given instant. Revoking
	// an already-revoked record is a no-op.
	Revoke(ctx context.Context, id string, at time.Time) error
	// RevokeAllForUser revokes every active record owned by the user
	// in one bulk operation.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) error
}
