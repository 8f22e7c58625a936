package main

import (
	"context"
	"log"
	"strconv"

	"github.com/bookvault/backend/internal/acl"
	"github.com/bookvault/backend/internal/config"
	"github.com/bookvault/backend/internal/db"
	"github.com/bookvault/backend/internal/handler"
	"github.com/bookvault/backend/internal/metrics"
	"github.com/bookvault/backend/internal/revocation"
	"github.com/bookvault/backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	repo, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("postgres init failed: %v", err)
	}
	defer repo.Close()

	if err := repo.EnsureAuthSchema(ctx); err != nil {
		log.Fatalf("schema init failed: %v", err)
	}

	revoked, err := newRevocationStore(cfg.Redis, repo)
	if err != nil {
		log.Fatalf("revocation store init failed: %v", err)
	}

	authSvc, err := service.NewAuthService(repo, revoked, cfg.Auth, cfg.App.Env)
	if err != nil {
		log.Fatalf("auth service init failed: %v", err)
	}

	policy, err := acl.LoadDir(cfg.ACL.RolesDir)
	if err != nil {
		log.Fatalf("acl init failed: %v", err)
	}
	log.Printf("acl roles loaded: %v", policy.Roles())

	metrics.Init()

	setup := func(ctx context.Context) error {
		if err := repo.EnsureAuthSchema(ctx); err != nil {
			return err
		}
		return authSvc.EnsureAdmin(ctx, cfg.Auth.AdminLogin, cfg.Auth.AdminPassword)
	}
	authHandler := handler.NewAuthHandler(authSvc, setup)

	router := gin.Default()

	router.GET("/", handler.Root)
	router.GET("/ping", handler.Ping)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/setup", authHandler.Setup)

	router.POST("/login", authHandler.Login)
	router.POST("/login/validate", authHandler.Validate)

	// Any authenticated user may revoke their own current token; logout
	// deliberately skips the privilege check.
	router.POST("/logout", handler.RequireAuth(authSvc), authHandler.Logout)

	// Protected surface: the resource routers (books, authors, stores,
	// users) are provided by the admin CRUD modules and mount onto this
	// group, inheriting the full auth pipeline.
	protected := router.Group("/", handler.RequireAuth(authSvc), handler.RequirePrivilege(policy))
	protected.GET("/session", authHandler.Session)

	if err := router.Run(":" + cfg.App.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// newRevocationStore picks the denylist backend: redis when REDIS_ADDR is
// set, otherwise the revoked_tokens table in postgres. Both provide the
// atomic conditional insert the validator depends on.
func newRevocationStore(cfg config.RedisConfig, repo *db.Postgres) (revocation.Store, error) {
	if cfg.Addr == "" {
		return revocation.NewPostgresStore(repo.Pool), nil
	}

	redisDB, err := strconv.Atoi(cfg.DB)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       redisDB,
	})
	return revocation.NewRedisStore(client), nil
}
