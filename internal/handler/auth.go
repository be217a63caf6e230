package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sportbase/backend/internal/auth"
	"github.com/sportbase/backend/internal/middleware"
	"github.com/sportbase/backend/internal/queue"
	audit "github.com/sportbase/backend/internal/service"
	"github.com/sportbase/backend/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints. It is the
// boundary layer: typed failures from the security subsystem are
// mapped to HTTP statuses here, with user-safe messages that never
// reveal whether an account exists.
type AuthHandler struct {
	Users       auth.UserStore
	Coordinator *auth.RefreshCoordinator
	Checker     *auth.PermissionChecker
	Audit       bool // publish security events to the broker
}

func NewAuthHandler(users auth.UserStore, coord *auth.RefreshCoordinator, checker *auth.PermissionChecker) *AuthHandler {
	return &AuthHandler{Users: users, Coordinator: coord, Checker: checker, Audit: true}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func pairResp(u userPart, pair *auth.TokenPair) authResp {
	return authResp{
		User:    u,
		Access:  tokenPart{Token: pair.AccessToken, Expires: pair.AccessExpiresAt},
		Refresh: tokenPart{Token: pair.RefreshToken, Expires: pair.RefreshExpiresAt},
	}
}

// Login verifies credentials and returns a fresh token pair. Unknown
// email, wrong password and inactive account all produce the same
// 401 so the response does not leak which accounts exist.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			h.publish(c, queue.EventLoginFailed, "", req.Email, "")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		h.publish(c, queue.EventLoginFailed, u.ID, u.Email, "")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	pair, err := h.Coordinator.Issue(ctx, u)
	if err != nil {
		return h.tokenFailure(c, err)
	}

	h.publish(c, queue.EventLoginSucceeded, u.ID, u.Email, "")
	return c.JSON(http.StatusOK, pairResp(userPart{ID: u.ID, Email: u.Email, Name: u.Name}, pair))
}

// Refresh rotates the presented refresh token: the old record is
// revoked and a new access/refresh pair is returned. Replaying a
// rotated token always fails.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Coordinator.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return h.tokenFailure(c, err)
	}

	h.publish(c, queue.EventTokenRefreshed, "", "", "")
	return c.JSON(http.StatusOK, echo.Map{
		"access":  tokenPart{Token: pair.AccessToken, Expires: pair.AccessExpiresAt},
		"refresh": tokenPart{Token: pair.RefreshToken, Expires: pair.RefreshExpiresAt},
	})
}

// Logout revokes exactly the presented refresh token. The access
// token, if any, stays valid until natural expiry.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Coordinator.Logout(ctx, strings.TrimSpace(req.RefreshToken)); err != nil {
		return h.tokenFailure(c, err)
	}

	h.publish(c, queue.EventLogout, "", "", "")
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every active refresh token of the authenticated
// user, terminating all sessions across devices. The route runs
// behind JWTAuth, so the subject here comes from a fully validated
// token.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	p := middleware.CurrentPrincipal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Coordinator.LogoutAll(ctx, p.UserID); err != nil {
		return h.tokenFailure(c, err)
	}

	h.publish(c, queue.EventLogoutAll, p.UserID, p.Email, "")
	return c.NoContent(http.StatusNoContent)
}

// PermManageUsers guards the administrative user-session routes.
const PermManageUsers = "administrar_usuarios"

// AdminLogoutUser force-revokes every refresh token of the targeted
// user, e.g. on account compromise or offboarding. The route runs
// behind RequirePermission(PermManageUsers); revoking an unknown
// user id is a harmless no-op, so no existence check is done.
func (h *AuthHandler) AdminLogoutUser(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Coordinator.LogoutAll(ctx, id); err != nil {
		return h.tokenFailure(c, err)
	}

	h.publish(c, queue.EventLogoutAll, id, "", "")
	return c.NoContent(http.StatusNoContent)
}

// Me echoes the authenticated principal.
func (h *AuthHandler) Me(c echo.Context) error {
	p := middleware.CurrentPrincipal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": p.UserID,
		"email":   p.Email,
		"name":    p.Name,
		"roles":   p.Roles,
		"sports":  p.Sports,
	})
}

// MyPermission answers whether the authenticated user holds the
// named permission. Handy for UIs that want to hide actions the
// user cannot perform; the server still enforces permissions on the
// guarded routes themselves.
func (h *AuthHandler) MyPermission(c echo.Context) error {
	p := middleware.CurrentPrincipal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	}
	name := c.Param("name")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	granted, err := h.Checker.HasPermission(ctx, p.UserID, name)
	if err != nil {
		if errors.Is(err, auth.ErrStoreUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authorization failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"permission": name, "granted": granted})
}

// tokenFailure maps subsystem errors onto HTTP statuses: transport
// failures are 503 so operators can tell them apart from bad
// credentials; every token failure collapses into a 401 with a
// generic message.
func (h *AuthHandler) tokenFailure(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
	case errors.Is(err, auth.ErrRefreshMalformed),
		errors.Is(err, auth.ErrRefreshNotFound),
		errors.Is(err, auth.ErrRefreshSecretMismatch),
		errors.Is(err, auth.ErrRefreshExpired),
		errors.Is(err, auth.ErrRefreshRevoked):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token operation failed"})
	}
}

// publish emits a security event without blocking or failing the
// request; the broker being down is an operational concern, not an
// authentication failure.
func (h *AuthHandler) publish(c echo.Context, eventType, userID, email, tokenID string) {
	if !h.Audit {
		return
	}
	ev := queue.SecurityEvent{
		Type:       eventType,
		UserID:     userID,
		Email:      email,
		IP:         c.RealIP(),
		TokenID:    tokenID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() { _ = audit.PublishSecurityEvent(context.Background(), ev) }()
}
