package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	TokenTTL           time.Duration
	AppPublicURL       string
	AllowOrigins       []string
	LogstashTCPAddr    string
	RedisAddr          string
	ResetRateMax       int
	ResetRateWindow    time.Duration
	SMTPHost           string
	SMTPPort           string
	SMTPUsername       string
	SMTPPassword       string
	SMTPFrom           string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	resetMax := 3
	if v, err := strconv.Atoi(getenv("RESET_RATE_MAX", "3")); err == nil && v > 0 {
		resetMax = v
	}

	return Config{
		Port:               getenv("PORT", "8080"),
		DatabaseURL:        must("DATABASE_URL"),
		AccessTokenSecret:  must("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: must("REFRESH_TOKEN_SECRET"),
		AccessTokenTTL:     seconds("ACCESS_TOKEN_TTL", 900),
		RefreshTokenTTL:    seconds("REFRESH_TOKEN_TTL", 2592000),
		TokenTTL:           duration("TOKEN_TTL", 30*time.Minute),
		AppPublicURL:       strings.TrimRight(getenv("APP_PUBLIC_URL", "http://localhost:8080"), "/"),
		AllowOrigins:       splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr:    getenv("LOGSTASH_TCP_ADDR", ""),
		RedisAddr:          getenv("REDIS_ADDR", ""),
		ResetRateMax:       resetMax,
		ResetRateWindow:    duration("RESET_RATE_WINDOW", 10*time.Minute),
		SMTPHost:           getenv("SMTP_HOST", ""),
		SMTPPort:           getenv("SMTP_PORT", "587"),
		SMTPUsername:       getenv("SMTP_USERNAME", ""),
		SMTPPassword:       getenv("SMTP_PASSWORD", ""),
		SMTPFrom:           getenv("SMTP_FROM", ""),
	}
}

func seconds(key string, fallback int64) time.Duration {
	v, err := strconv.ParseInt(getenv(key, ""), 10, 64)
	if err != nil || v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

func duration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getenv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
