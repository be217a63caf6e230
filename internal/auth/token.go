package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sportbase/backend/internal/model"
)

// TokenConfig holds the settings for signing and validating access
// tokens. Secret must be at least 32 bytes; HS512 with a short key
// defeats the point of the construction.
type TokenConfig struct {
	Secret    []byte
	Issuer    string
	Audience  string
	AccessTTL time.Duration // access token lifetime, default 15m
	Leeway    time.Duration // clock-skew tolerance for validation, default 5m
}

// Principal is the authenticated identity carried by a validated
// access token. It is what handlers and middleware see; the raw JWT
// never travels past the validation boundary.
type Principal struct {
	UserID    string
	Email     string
	Name      string
	TokenID   string // jti claim; no revocation list is checked against it
	Roles     []string
	Sports    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// accessClaims is the JWT payload. Roles and sports ride along as
// authorization hints; the permission resolver remains the source of
// truth for fine-grained checks.
type accessClaims struct {
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles,omitempty"`
	Sports []string `json:"sports,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates HS512 access tokens. Both
// operations are pure computation over the configured secret and
// clock, so they are safe on every request without added latency.
type TokenIssuer struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenIssuer validates the configuration and applies defaults.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.Leeway < 0 {
		return nil, errors.New("negative leeway")
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = 5 * time.Minute
	}
	return &TokenIssuer{cfg: cfg, now: time.Now}, nil
}

// WithClock replaces the issuer's clock. Tests use it to move time
// across the expiry boundary deterministically.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	i.now = now
	return i
}

// Issue signs a new access token for the user. The token carries the
// subject id, email, name, a fresh jti, the role and sport id lists,
// and expires AccessTTL from now.
func (i *TokenIssuer) Issue(u *model.User) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.cfg.AccessTTL)
	claims := accessClaims{
		Email:  u.Email,
		Name:   u.Name,
		Roles:  u.RoleIDs,
		Sports: u.SportIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Validate verifies signature, issuer, audience and expiry (with
// leeway) and returns the principal. Failures are the token
// sentinels from errors.go; no storage or network I/O happens here.
func (i *TokenIssuer) Validate(raw string) (*Principal, error) {
	claims := &accessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return i.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithAudience(i.cfg.Audience),
		jwt.WithLeeway(i.cfg.Leeway),
		jwt.WithTimeFunc(func() time.Time { return i.now().UTC() }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if !tok.Valid {
		return nil, ErrTokenMalformed
	}
	p := &Principal{
		UserID:  claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		TokenID: claims.ID,
		Roles:   claims.Roles,
		Sports:  claims.Sports,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// ExtractSubjectID parses the sub claim without verifying the
// signature. It exists for contexts where the caller was already
// authenticated through a separate channel (e.g. picking the
// rate-limit key for a request that will be validated right after)
// and must never be the sole authorization check. Returns "" when
// the token cannot be read.
func (i *TokenIssuer) ExtractSubjectID(raw string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrTokenClaimMismatch
	default:
		return ErrTokenMalformed
	}
}
