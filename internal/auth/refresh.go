package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sportbase/backend/internal/model"
	"github.com/sportbase/backend/internal/utils"
)

const refreshSecretBytes = 32 // 256 bits of entropy for the token secret

// TokenPair is the result of login and refresh: a short-lived signed
// access token plus an opaque single-use refresh token.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string // wire format "<tokenID>.<base64(secret)>"
	RefreshExpiresAt time.Time
}

// RefreshConfig tunes the refresh token lifecycle.
type RefreshConfig struct {
	RefreshTTL time.Duration // refresh token lifetime, default 7 days
	BcryptCost int           // cost for hashing token secrets
}

// RefreshCoordinator orchestrates issuance, validation and one-time
// rotation of refresh tokens. Each record moves Active→Revoked
// (explicit, terminal) or Active→Expired (time-driven, terminal);
// no record re-enters Active.
type RefreshCoordinator struct {
	tokens RefreshTokenStore
	users  UserStore
	issuer *TokenIssuer
	cfg    RefreshConfig
	now    func() time.Time
}

// NewRefreshCoordinator wires the coordinator with its collaborators.
func NewRefreshCoordinator(tokens RefreshTokenStore, users UserStore, issuer *TokenIssuer, cfg RefreshConfig) *RefreshCoordinator {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &RefreshCoordinator{tokens: tokens, users: users, issuer: issuer, cfg: cfg, now: time.Now}
}

// WithClock replaces the coordinator's clock for deterministic tests.
func (c *RefreshCoordinator) WithClock(now func() time.Time) *RefreshCoordinator {
	c.now = now
	return c
}

// Issue mints a fresh access/refresh pair for the user. The refresh
// secret is generated from crypto/rand and persisted only as a
// bcrypt hash; the plaintext leaves the process exactly once, inside
// the returned wire token.
func (c *RefreshCoordinator) Issue(ctx context.Context, u *model.User) (*TokenPair, error) {
	access, accessExp, err := c.issuer.Issue(u)
	if err != nil {
		return nil, err
	}

	secret := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	secretB64 := base64.StdEncoding.EncodeToString(secret)

	hash, err := utils.HashPassword(secretB64, c.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()
	rec := &model.RefreshToken{
		ID:         uuid.NewString(),
		UserID:     u.ID,
		TokenID:    uuid.NewString(),
		SecretHash: hash,
		CreatedAt:  now,
		ExpiresAt:  now.Add(c.cfg.RefreshTTL),
	}
	if err := c.tokens.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     rec.TokenID + "." + secretB64,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

// Refresh validates the presented token and rotates it: the current
// record is revoked, then a fresh pair is minted and persisted. The
// revoke and the insert are two sequential store operations with no
// transaction around them; a crash in between leaves the old token
// revoked with no successor, forcing re-authentication rather than
// leaving a reusable credential behind.
//
// Rejections, in evaluation order: ErrRefreshMalformed,
// ErrRefreshNotFound, ErrRefreshSecretMismatch, ErrRefreshExpired,
// ErrRefreshRevoked. A replay of an already-rotated token always
// lands on ErrRefreshRevoked.
func (c *RefreshCoordinator) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	rec, err := c.verify(ctx, presented)
	if err != nil {
		return nil, err
	}
	now := c.now().UTC()
	if now.After(rec.ExpiresAt) {
		return nil, ErrRefreshExpired
	}
	if rec.RevokedAt != nil {
		return nil, ErrRefreshRevoked
	}

	u, err := c.users.FindByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Owner vanished; fail closed without revealing which part broke.
			return nil, ErrRefreshNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := c.tokens.Revoke(ctx, rec.ID, now); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return c.Issue(ctx, u)
}

// Logout revokes exactly the referenced record. The secret is
// verified first so an attacker cannot revoke sessions knowing only
// the public token id. Revoking an already-revoked record is a no-op.
func (c *RefreshCoordinator) Logout(ctx context.Context, presented string) error {
	rec, err := c.verify(ctx, presented)
	if err != nil {
		return err
	}
	if err := c.tokens.Revoke(ctx, rec.ID, c.now().UTC()); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// LogoutAll revokes every active refresh token owned by the user in
// one bulk operation, e.g. after a password change or suspected
// compromise. Access tokens already in the wild stay valid until
// natural expiry; there is no access-token blacklist.
func (c *RefreshCoordinator) LogoutAll(ctx context.Context, userID string) error {
	if err := c.tokens.RevokeAllForUser(ctx, userID, c.now().UTC()); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// verify parses the wire token, loads the record and checks the
// secret against the stored hash. Expiry and revocation are left to
// the caller so Logout can still revoke an expired record.
func (c *RefreshCoordinator) verify(ctx context.Context, presented string) (*model.RefreshToken, error) {
	tokenID, secret, ok := strings.Cut(presented, ".")
	if !ok || tokenID == "" || secret == "" {
		return nil, ErrRefreshMalformed
	}
	rec, err := c.tokens.FindByTokenID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrRefreshNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !utils.VerifyPassword(rec.SecretHash, secret) {
		return nil, ErrRefreshSecretMismatch
	}
	return rec, nil
}
