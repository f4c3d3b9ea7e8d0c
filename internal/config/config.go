package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var defaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:3000",
}

type Config struct {
	Port     int
	Env      string
	GinMode  string
	LogLevel string

	SecretKey     string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration

	DBDriver    string
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	AllowedOrigins []string
	MaxWSSessions  int

	TLSCertFile string
	TLSKeyFile  string
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

// LoadConfig reads a .env file if present, then the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	return LoadConfigFromEnv(osEnv{})
}

func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:              3000,
		Env:               "production",
		GinMode:           "release",
		LogLevel:          "info",
		AccessExpiry:      30 * time.Minute,
		RefreshExpiry:     7 * 24 * time.Hour,
		DBDriver:          "memory",
		CacheTTL:          time.Hour,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		AllowedOrigins:    defaultAllowedOrigins,
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	cfg.SecretKey = env.Getenv("SECRET_KEY")
	if cfg.SecretKey == "" {
		return Config{}, fmt.Errorf("SECRET_KEY is required")
	}

	if raw := env.Getenv("ENV"); raw != "" {
		cfg.Env = raw
	}
	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}
	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")

	var err error
	if cfg.AccessExpiry, err = durationVar(env, "ACCESS_TOKEN_EXPIRE_MINUTES", time.Minute, cfg.AccessExpiry); err != nil {
		return Config{}, err
	}
	if cfg.RefreshExpiry, err = durationVar(env, "REFRESH_TOKEN_EXPIRE_DAYS", 24*time.Hour, cfg.RefreshExpiry); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = durationVar(env, "CACHE_TTL_SECONDS", time.Second, cfg.CacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitWindow, err = durationVar(env, "RATE_LIMIT_WINDOW_SECONDS", time.Second, cfg.RateLimitWindow); err != nil {
		return Config{}, err
	}

	if raw := env.Getenv("RATE_LIMIT_REQUESTS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_REQUESTS")
		}
		cfg.RateLimitRequests = n
	}

	if raw := env.Getenv("WS_MAX_SESSIONS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid WS_MAX_SESSIONS")
		}
		cfg.MaxWSSessions = n
	}

	if raw := env.Getenv("DB_DRIVER"); raw != "" {
		cfg.DBDriver = strings.ToLower(raw)
	}
	switch cfg.DBDriver {
	case "memory":
	case "sqlite", "sqlite3", "mysql", "postgres", "postgresql", "pgx":
		cfg.DatabaseURL = env.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required for DB_DRIVER=%s", cfg.DBDriver)
		}
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q", cfg.DBDriver)
	}

	cfg.RedisURL = env.Getenv("REDIS_URL")

	if raw := env.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		cfg.AllowedOrigins = nil
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	return cfg, nil
}

func durationVar(env Env, key string, unit time.Duration, def time.Duration) (time.Duration, error) {
	raw := env.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return time.Duration(n) * unit, nil
}
