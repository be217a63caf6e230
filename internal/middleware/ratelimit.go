package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sportbase/backend/internal/auth"
	"github.com/sportbase/backend/internal/config"
	"github.com/sportbase/backend/internal/ratelimit"
)

// NewFixedWindow returns the rate-limiting middleware. Every request
// is checked against up to three independent fixed-window scopes, in
// order, stopping at the first denial:
//
//  1. source IP            "ip:<ip>"
//  2. endpoint path + IP   "endpoint:<path>:<ip>" (tighter budgets on
//     sensitive endpoints such as login)
//  3. authenticated user   "user:<id>", only when a bearer token is
//     present; the id comes from an unverified claim read and is an
//     identity hint for bucketing only; JWTAuth still validates the
//     token afterwards.
//
// Counter store failures admit the request: losing rate limiting is
// preferable to rejecting all traffic when the store is down.
//
// On admitted requests the X-RateLimit-Limit/Remaining headers
// advertise the scope with the fewest remaining requests, so clients
// pace themselves against the budget they will actually exhaust
// first.
func NewFixedWindow(cfg config.RateLimitConfig, limiter *ratelimit.Limiter, issuer *auth.TokenIssuer) echo.MiddlewareFunc {
	if !cfg.Enabled || limiter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			path := c.Request().URL.Path

			d, err := limiter.Acquire(ctx, "ip:"+ip, cfg.IPLimit, cfg.Window)
			if err != nil {
				if cfg.Debug {
					c.Logger().Warnf("[ratelimit] store error for ip scope: %v", err)
				}
				return next(c)
			}
			if !d.Allowed {
				return rateLimitExceeded(c, d, "Too many requests from this IP")
			}
			tightest := d

			d, err = limiter.Acquire(ctx, "endpoint:"+path+":"+ip, cfg.LimitForEndpoint(path), cfg.Window)
			if err != nil {
				if cfg.Debug {
					c.Logger().Warnf("[ratelimit] store error for endpoint scope: %v", err)
				}
				return next(c)
			}
			if !d.Allowed {
				return rateLimitExceeded(c, d, "Too many requests to this endpoint")
			}
			if d.Remaining < tightest.Remaining {
				tightest = d
			}

			if raw, ok := bearerToken(c); ok {
				if uid := issuer.ExtractSubjectID(raw); uid != "" {
					d, err = limiter.Acquire(ctx, "user:"+uid, cfg.UserLimit, cfg.Window)
					if err != nil {
						if cfg.Debug {
							c.Logger().Warnf("[ratelimit] store error for user scope: %v", err)
						}
						return next(c)
					}
					if !d.Allowed {
						return rateLimitExceeded(c, d, "Too many requests for this user")
					}
					if d.Remaining < tightest.Remaining {
						tightest = d
					}
				}
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(tightest.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(tightest.Remaining, 10))
			return next(c)
		}
	}
}

// rateLimitExceeded writes the 429 response with the standard
// rate-limit headers and JSON body.
func rateLimitExceeded(c echo.Context, d ratelimit.Decision, message string) error {
	retryAfter := int(time.Until(d.Reset).Seconds() + 0.999)
	if retryAfter < 0 {
		retryAfter = 0
	}
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	h.Set("Retry-After", strconv.Itoa(retryAfter))
	return c.JSON(http.StatusTooManyRequests, echo.Map{
		"error":       "rate_limit_exceeded",
		"message":     message,
		"retry_after": retryAfter,
	})
}
