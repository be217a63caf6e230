package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sportbase/backend/internal/auth"
)

// RequirePermission returns a middleware that enforces that the
// authenticated user holds the named permission. It must run after
// JWTAuth. Denial and missing authorization data alike produce a
// 403; only a store transport failure is surfaced differently, as a
// 503, so operators can tell "denied" apart from "dependency down".
func RequirePermission(checker *auth.PermissionChecker, permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := CurrentPrincipal(c)
			if p == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			ok, err := checker.HasPermission(c.Request().Context(), p.UserID, permission)
			if err != nil {
				if errors.Is(err, auth.ErrStoreUnavailable) {
					return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authorization failed"})
			}
			if !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
