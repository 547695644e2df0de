package config

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// The Gemini placeholder that ships in .env.example. A key equal to this is
// treated the same as no key at all.
const geminiKeyPlaceholder = "your_gemini_api_key_here"

type Config struct {
	Env  string
	Port int

	DBURL string

	// Signing secret for session tokens. Required; Load fails without it.
	JWTSecret      string
	SessionTTLDays int

	// Gemini credential. Optional; empty means the AI gateway runs degraded.
	GeminiAPIKey string

	CORSOrigins []string

	// Optional redis address for the AI response cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTLPEndpoint string
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")

func Load() (Config, error) {
	// Best effort; env vars win over the file.
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")

	if secret == "" {
		return Config{}, ErrMissingJWTSecret
	}

	gemini := os.Getenv("GEMINI_API_KEY")

	if gemini == geminiKeyPlaceholder {
		gemini = ""
	}

	return Config{
		Env:            getEnv("APP_ENV", "dev"),
		Port:           getEnvInt("PORT", 4001),
		DBURL:          buildDBURL(),
		JWTSecret:      secret,
		SessionTTLDays: getEnvInt("SESSION_TTL_DAYS", 7),
		GeminiAPIKey:   gemini,
		CORSOrigins:    splitOrigins(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "secondbrain")
	pass := getEnv("DB_PASSWORD", "secondbrain")
	name := getEnv("DB_NAME", "secondbrain")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func (c Config) SessionTTL() time.Duration {
	days := c.SessionTTLDays
	if days <= 0 {
		days = 7
	}

	return time.Duration(days) * 24 * time.Hour
}

func (c Config) AIConfigured() bool {
	return c.GeminiAPIKey != ""
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)

		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}
