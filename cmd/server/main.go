package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/sportbase/backend/internal/auth"
	"github.com/sportbase/backend/internal/config"
	"github.com/sportbase/backend/internal/database"
	"github.com/sportbase/backend/internal/handler"
	"github.com/sportbase/backend/internal/middleware"
	"github.com/sportbase/backend/internal/queue"
	"github.com/sportbase/backend/internal/ratelimit"
	"github.com/sportbase/backend/internal/repository"
	"github.com/sportbase/backend/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	perms := repository.NewPermissionRepo(db)
	tokens := repository.NewTokenRepo(db)

	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		AccessTTL: time.Duration(cfg.AccessTTLMin) * time.Minute,
		Leeway:    time.Duration(cfg.ClockSkewMin) * time.Minute,
	})
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}
	coordinator := auth.NewRefreshCoordinator(tokens, users, issuer, auth.RefreshConfig{
		RefreshTTL: time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
		BcryptCost: cfg.BcryptCost,
	})
	checker := auth.NewPermissionChecker(users, roles, perms)

	rlCfg := config.LoadRateLimitConfig()
	limiter := newLimiter(rlCfg)

	e := echo.New()
	e.Use(middleware.NewFixedWindow(rlCfg, limiter, issuer))
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(users, coordinator, checker), issuer, checker)

	// Background consumer turning security events into the audit log.
	go func() {
		if err := queue.StartSecurityConsumer(); err != nil {
			log.Printf("security consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// newLimiter selects the counter store: Redis when configured and
// reachable so replicas share one budget, otherwise the in-process
// store with a periodic sweep to bound memory across many keys.
func newLimiter(cfg config.RateLimitConfig) *ratelimit.Limiter {
	if cfg.Store == "redis" {
		if rdb := config.NewRedisClient(); rdb != nil {
			return ratelimit.NewLimiter(ratelimit.NewRedisStore(rdb, cfg.Prefix))
		}
		log.Printf("ratelimit: redis unreachable, falling back to memory store")
	}
	store := ratelimit.NewMemoryStore()
	go func() {
		for range time.Tick(cfg.Window) {
			store.Sweep(cfg.Window)
		}
	}()
	return ratelimit.NewLimiter(store)
}
