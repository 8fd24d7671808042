package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const devSecret = "storefront-dev-secret-change-me-please-32b"

type Config struct {
	Port         string
	DBDSN        string
	LogFile      string
	LogLevel     string
	TemplatesDir string

	JWTSecret     string
	JWTIssuer     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	EventsTopic   string
	SeedDemoData  bool
	CookieSecure  bool
	LoginAttempts int
	RateLimit     int
	CORSOrigins   string
}

// Load reads the environment, after merging an optional .env file.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Info().Msg("[config] loaded .env")
	}

	cfg := Config{
		Port:          env("PORT", "8080"),
		DBDSN:         env("DB_DSN", "storefront.db"), // sqlite file in project root
		LogFile:       env("LOG_FILE", "./storefront.log"),
		LogLevel:      env("LOG_LEVEL", "info"),
		TemplatesDir:  env("TEMPLATES_DIR", "./web/templates"),
		JWTSecret:     env("JWT_SECRET", devSecret),
		JWTIssuer:     env("JWT_ISSUER", "storefront"),
		AccessTTL:     envDuration("JWT_ACCESS_TTL", time.Hour),
		RefreshTTL:    envDuration("JWT_REFRESH_TTL", 24*time.Hour),
		EventsTopic:   os.Getenv("EVENTS_TOPIC_ARN"),
		SeedDemoData:  envBool("SEED_DEMO", true),
		CookieSecure:  envBool("COOKIE_SECURE", false),
		LoginAttempts: envInt("LOGIN_MAX_ATTEMPTS", 5),
		RateLimit:     envInt("RATE_LIMIT_PER_MIN", 120),
		CORSOrigins:   env("CORS_ORIGINS", "*"),
	}
	if cfg.JWTSecret == devSecret {
		log.Warn().Msg("[config] JWT_SECRET not set, using development secret")
	}

	log.Info().
		Str("port", cfg.Port).
		Str("db_dsn", cfg.DBDSN).
		Str("log_file", cfg.LogFile).
		Str("jwt_issuer", cfg.JWTIssuer).
		Dur("access_ttl", cfg.AccessTTL).
		Bool("events_sns", cfg.EventsTopic != "").
		Msg("[config]")
	return cfg
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envBool(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
