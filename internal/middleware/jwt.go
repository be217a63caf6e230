package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sportbase/backend/internal/auth"
)

// principalKey is the context key under which JWTAuth stores the
// validated principal for handlers and downstream middleware.
const principalKey = "principal"

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the resulting principal into the request
// context. Validation is pure computation (signature, issuer,
// audience, expiry), so this runs on every protected request without
// touching a store. All failures collapse into a 401 with a
// user-safe message; the concrete failure kind is not leaked.
func JWTAuth(issuer *auth.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			p, err := issuer.Validate(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(principalKey, p)
			c.Set("user_id", p.UserID)
			return next(c)
		}
	}
}

// CurrentPrincipal returns the principal stored by JWTAuth, or nil
// when the request did not pass through it.
func CurrentPrincipal(c echo.Context) *auth.Principal {
	p, _ := c.Get(principalKey).(*auth.Principal)
	return p
}

// bearerToken extracts the raw token from the Authorization header.
func bearerToken(c echo.Context) (string, bool) {
	h := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return raw, raw != ""
}
