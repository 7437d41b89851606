package main

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fueltrack/api/internal/config"
	"github.com/fueltrack/api/internal/logging"
	"github.com/fueltrack/api/internal/repository/postgres"
	"github.com/fueltrack/api/internal/service"
	transporthttp "github.com/fueltrack/api/internal/transport/http"
	"github.com/fueltrack/api/internal/transport/mail"
	"github.com/fueltrack/api/internal/util"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			log.Printf("logstash writer disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, writer))
		}
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := postgres.Migrate(migrateCtx, db); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	userRepo := postgres.NewUserRepo(db)
	tokenRepo := postgres.NewTokenRepo(db)
	sessionRepo := postgres.NewSessionRepo(db)

	accessJWT := util.NewJWTManager(cfg.AccessTokenSecret, cfg.AccessTokenTTL)
	refreshJWT := util.NewJWTManager(cfg.RefreshTokenSecret, cfg.RefreshTokenTTL)

	var limiter service.RateLimiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = service.NewRedisRateLimiter(client, cfg.ResetRateWindow, cfg.ResetRateMax)
	} else {
		limiter = service.NewMemoryRateLimiter(cfg.ResetRateWindow, cfg.ResetRateMax)
	}

	mailer := mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)

	authService := service.NewAuthService(
		userRepo, tokenRepo, sessionRepo,
		mailer, accessJWT, refreshJWT,
		limiter, cfg.AppPublicURL, cfg.TokenTTL,
	)
	userService := service.NewUserService(userRepo)

	e := transporthttp.NewRouter(cfg.AllowOrigins)
	transporthttp.RegisterAuthRoutes(e, authService)
	transporthttp.RegisterUserRoutes(e, userService, authService)
	transporthttp.RegisterSwagger(e)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
