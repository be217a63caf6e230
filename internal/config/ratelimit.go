package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig tunes the fixed-window limiter and the three
// scopes the security pipeline applies to every request: per source
// IP, per endpoint path plus IP, and per authenticated user id.
// Sensitive endpoints get tighter budgets through EndpointLimits.
type RateLimitConfig struct {
	Enabled        bool
	Store          string // "memory" (default) or "redis"
	Prefix         string
	Window         time.Duration
	IPLimit        int
	UserLimit      int
	EndpointLimit  int            // default for endpoints not listed below
	EndpointLimits map[string]int // per-path overrides
	Debug          bool
}

// LoadRateLimitConfig reads environment variables to build a
// RateLimitConfig. Defaults mirror the production budgets: 100/min
// per IP, 200/min per user, 50/min per endpoint with login at 5/min,
// refresh at 10/min and logout at 20/min.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:       envBool("RATE_LIMIT_ENABLED", true),
		Store:         envStr("RATE_LIMIT_STORE", "memory"),
		Prefix:        envStr("RATE_LIMIT_PREFIX", "rl"),
		Window:        envDur("RATE_LIMIT_WINDOW", time.Minute),
		IPLimit:       envInt("RATE_LIMIT_IP", 100),
		UserLimit:     envInt("RATE_LIMIT_USER", 200),
		EndpointLimit: envInt("RATE_LIMIT_ENDPOINT", 50),
		EndpointLimits: map[string]int{
			"/v1/auth/login":   envInt("RATE_LIMIT_LOGIN", 5),
			"/v1/auth/refresh": envInt("RATE_LIMIT_REFRESH", 10),
			"/v1/auth/logout":  envInt("RATE_LIMIT_LOGOUT", 20),
		},
		Debug: envBool("RATE_LIMIT_DEBUG", false),
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.IPLimit < 1 {
		cfg.IPLimit = 1
	}
	if cfg.UserLimit < 1 {
		cfg.UserLimit = 1
	}
	if cfg.EndpointLimit < 1 {
		cfg.EndpointLimit = 1
	}
	return cfg
}

// LimitForEndpoint returns the budget for an endpoint path, falling
// back to the general endpoint limit.
func (c RateLimitConfig) LimitForEndpoint(path string) int {
	if n, ok := c.EndpointLimits[path]; ok {
		return n
	}
	return c.EndpointLimit
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
