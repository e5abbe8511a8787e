package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/coachkit/trainer-platform/internal/auth"
	"github.com/coachkit/trainer-platform/internal/config"
	"github.com/coachkit/trainer-platform/internal/database"
	"github.com/coachkit/trainer-platform/internal/handler"
	"github.com/coachkit/trainer-platform/internal/middleware"
	"github.com/coachkit/trainer-platform/internal/queue"
	"github.com/coachkit/trainer-platform/internal/repository"
	"github.com/coachkit/trainer-platform/internal/router"
	"github.com/coachkit/trainer-platform/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(context.Background(), database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	users := repository.NewUserRepo(db)
	tenants := repository.NewTenantRepo(db)
	tokens := repository.NewTokenRepo(db)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL)
	events := queue.NewPublisherFromEnv()
	svc := service.NewAuthService(users, tenants, tokens, issuer, events,
		cfg.RefreshTTLDays, cfg.BcryptCost)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e,
		handler.NewAuthHandler(svc),
		middleware.RequireAuth(issuer, users, tenants),
		middleware.RateLimit(config.LoadRateLimitConfig(), rdb),
	)

	// Hourly sweep of expired/revoked refresh tokens.
	go func() {
		t := time.NewTicker(time.Hour)
		defer t.Stop()
		for range t.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := tokens.SweepExpired(ctx); err != nil {
				log.Printf("auth-sweeper: %v", err)
			} else if n > 0 {
				log.Printf("auth-sweeper: removed %d rows", n)
			}
			cancel()
		}
	}()

	// Session audit consumer; reconnects on its own.
	go func() {
		if err := queue.StartSessionConsumer(); err != nil {
			log.Printf("session-consumer: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
