package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/sportbase/backend/internal/auth"
	"github.com/sportbase/backend/internal/handler"
	"github.com/sportbase/backend/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance. Currently it exposes only a health
// check, used by load balancers and monitoring to verify the service
// is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes and their
// middleware. Unauthenticated token operations live under /v1/auth;
// endpoints that need a validated access token run behind JWTAuth.
// The request pipeline for every route is rate limiter (installed
// globally in main), then token validation, then permission checks,
// in that fixed order.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, issuer *auth.TokenIssuer, checker *auth.PermissionChecker) {
	// Token exchange endpoints: no session required, the presented
	// credential (password or refresh token) is the whole proof.
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	// logout-all invalidates every session of the caller, so unlike
	// plain logout it demands a fully validated access token.
	g.POST("/logout-all", a.LogoutAll, middleware.JWTAuth(issuer))

	// Authenticated surface.
	protected := e.Group("/v1")
	protected.Use(middleware.JWTAuth(issuer))
	protected.GET("/me", a.Me)
	protected.GET("/me/permissions/:name", a.MyPermission)

	// Administrative surface: the same JWT gate plus a permission
	// guard resolved against the role stores on every request.
	admin := protected.Group("/admin", middleware.RequirePermission(checker, handler.PermManageUsers))
	admin.POST("/users/:id/logout", a.AdminLogoutUser)
}
