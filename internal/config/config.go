package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env                  string
	DatabaseURL          string
	RequireTLS           bool
	AllowedOrigin        string
	DefaultTimeZone      *time.Location
	JWTSecret            string
	SessionTTL           time.Duration
	IdempotencyTableName string
	KMSKeyID             string
	CheckAccessRPS       float64
	CheckAccessBurst     int
	LogLevel             string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first without overriding variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := strings.ToLower(getEnv("APP_ENV", getEnv("NODE_ENV", "development")))

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	tzName := getEnv("DEFAULT_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_TIMEZONE %q: %v", tzName, err)
	}

	ttl, err := getEnvInt("SESSION_TTL_MINUTES", 720)
	if err != nil {
		return nil, err
	}
	burst, err := getEnvInt("CHECK_ACCESS_BURST", 5)
	if err != nil {
		return nil, err
	}
	rps, err := getEnvFloat("CHECK_ACCESS_RPS", 1)
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:                  env,
		DatabaseURL:          dbURL,
		RequireTLS:           !isLocalEnv(env),
		AllowedOrigin:        getEnv("ALLOWED_ORIGIN", "*"),
		DefaultTimeZone:      loc,
		JWTSecret:            os.Getenv("JWT_SECRET"),
		SessionTTL:           time.Duration(ttl) * time.Minute,
		IdempotencyTableName: os.Getenv("IDEMPOTENCY_TABLE_NAME"),
		KMSKeyID:             os.Getenv("KMS_KEY_ID"),
		CheckAccessRPS:       rps,
		CheckAccessBurst:     burst,
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}, nil
}

func isLocalEnv(env string) bool {
	switch env {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return i, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}
