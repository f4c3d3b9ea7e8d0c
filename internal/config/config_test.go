package config

import (
	"reflect"
	"testing"
	"time"
)

type mapEnv map[string]string

func (m mapEnv) Getenv(key string) string { return m[key] }

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{"SECRET_KEY": "x"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("expected default gin mode release, got %q", cfg.GinMode)
	}
	if cfg.AccessExpiry != 30*time.Minute || cfg.RefreshExpiry != 7*24*time.Hour {
		t.Fatalf("unexpected token expiry %v / %v", cfg.AccessExpiry, cfg.RefreshExpiry)
	}
	if cfg.CacheTTL != time.Hour {
		t.Fatalf("expected 1h cache ttl, got %v", cfg.CacheTTL)
	}
	if cfg.RateLimitRequests != 100 || cfg.RateLimitWindow != time.Minute {
		t.Fatalf("unexpected rate limit %d/%v", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if cfg.DBDriver != "memory" || cfg.RedisURL != "" {
		t.Fatalf("expected in-memory backends by default")
	}
	if len(cfg.AllowedOrigins) != 3 {
		t.Fatalf("expected default origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.IsDevelopment() {
		t.Fatalf("expected production by default")
	}
}

func TestLoadConfigFromEnv_MissingSecret(t *testing.T) {
	_, err := LoadConfigFromEnv(mapEnv{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{
		"SECRET_KEY":                  "x",
		"PORT":                        "1234",
		"ENV":                         "development",
		"ACCESS_TOKEN_EXPIRE_MINUTES": "5",
		"REFRESH_TOKEN_EXPIRE_DAYS":   "2",
		"CACHE_TTL_SECONDS":           "60",
		"RATE_LIMIT_REQUESTS":         "10",
		"RATE_LIMIT_WINDOW_SECONDS":   "30",
		"WS_MAX_SESSIONS":             "50",
		"DB_DRIVER":                   "SQLite3",
		"DATABASE_URL":                "file:chat.db",
		"REDIS_URL":                   "redis://localhost:6379/0",
		"CORS_ALLOWED_ORIGINS":        "https://a.example, https://b.example,",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 1234 || !cfg.IsDevelopment() {
		t.Fatalf("unexpected port/env %d %q", cfg.Port, cfg.Env)
	}
	if cfg.AccessExpiry != 5*time.Minute || cfg.RefreshExpiry != 48*time.Hour {
		t.Fatalf("unexpected expiry %v / %v", cfg.AccessExpiry, cfg.RefreshExpiry)
	}
	if cfg.CacheTTL != time.Minute || cfg.RateLimitRequests != 10 || cfg.RateLimitWindow != 30*time.Second {
		t.Fatalf("unexpected cache/limit settings %+v", cfg)
	}
	if cfg.MaxWSSessions != 50 {
		t.Fatalf("expected 50 sessions, got %d", cfg.MaxWSSessions)
	}
	if cfg.DBDriver != "sqlite3" || cfg.DatabaseURL != "file:chat.db" {
		t.Fatalf("unexpected db settings %q %q", cfg.DBDriver, cfg.DatabaseURL)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	cases := []mapEnv{
		{"SECRET_KEY": "x", "PORT": "99999"},
		{"SECRET_KEY": "x", "ACCESS_TOKEN_EXPIRE_MINUTES": "0"},
		{"SECRET_KEY": "x", "RATE_LIMIT_REQUESTS": "many"},
		{"SECRET_KEY": "x", "WS_MAX_SESSIONS": "-1"},
		{"SECRET_KEY": "x", "DB_DRIVER": "oracle"},
		{"SECRET_KEY": "x", "DB_DRIVER": "postgres"},
	}
	for _, env := range cases {
		if _, err := LoadConfigFromEnv(env); err == nil {
			t.Fatalf("expected error for %v", env)
		}
	}
}
