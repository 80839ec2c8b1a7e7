package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "NODE_ENV", "PORT", "STORAGE_BACKEND", "DATABASE_URL", "CLICKHOUSE_HOST",
		"CLICKHOUSE_NATIVE_PORT", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW", "EMAIL_SERVICE", "EMAIL_HOST",
		"EMAIL_USER", "EMAIL_PASS", "EMAIL_PORT", "CONTACT_EMAIL", "FRONTEND_URL", "FE_ORIGIN",
		"TRUSTED_PROXIES", "ANALYTICS_WORKERS", "ANALYTICS_QUEUE_SIZE", "ANALYTICS_TASK_TIMEOUT",
		"SHUTDOWN_TIMEOUT", "REDIS_DB",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MemoryBackendDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_BACKEND", "memory")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.App.Env != EnvDevelopment {
		t.Fatalf("expected development env, got %q", c.App.Env)
	}
	if c.App.Port != 5000 {
		t.Fatalf("expected default port 5000, got %d", c.App.Port)
	}
	if c.RateLimit.Max != 1000 || c.RateLimit.Window != 15*time.Minute {
		t.Fatalf("unexpected rate limit defaults: %+v", c.RateLimit)
	}
	if c.App.FrontendURL != "http://localhost:3000" {
		t.Fatalf("unexpected frontend url %q", c.App.FrontendURL)
	}
	if c.Email.Enabled() {
		t.Fatalf("email should be disabled without credentials")
	}
}

func TestLoad_ProductionRateLimitDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/portfolio")
	t.Setenv("CLICKHOUSE_HOST", "localhost")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.RateLimit.Max != 100 {
		t.Fatalf("expected production limit 100, got %d", c.RateLimit.Max)
	}
	if !c.IsProduction() {
		t.Fatalf("expected IsProduction")
	}
}

func TestLoad_NodeEnvFallbackAndLists(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "test")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 10.0.0.2,")
	t.Setenv("FE_ORIGIN", "https://example.dev")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.App.Env != EnvTest {
		t.Fatalf("expected test env, got %q", c.App.Env)
	}
	if len(c.App.TrustedProxies) != 2 || c.App.TrustedProxies[1] != "10.0.0.2" {
		t.Fatalf("unexpected trusted proxies %v", c.App.TrustedProxies)
	}
	if c.App.FrontendURL != "https://example.dev" {
		t.Fatalf("expected FE_ORIGIN fallback, got %q", c.App.FrontendURL)
	}
}

func TestLoad_ReportsAllParseErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "abc")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"PORT", "RATE_LIMIT_WINDOW"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in error, got %v", want, err)
		}
	}
}

func TestValidate_SQLBackendRequiresDatabases(t *testing.T) {
	c := Config{
		App:       AppConfig{Env: EnvDevelopment, Port: 5000},
		Storage:   StorageSQL,
		RateLimit: RateLimitConfig{Max: 10, Window: time.Minute},
		Analytics: AnalyticsConfig{Workers: 1, QueueSize: 1, TaskTimeout: time.Second},
	}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") || !strings.Contains(err.Error(), "CLICKHOUSE_HOST") {
		t.Fatalf("expected both database errors, got %v", err)
	}
}

func TestValidate_MemoryBackendRejectedInProduction(t *testing.T) {
	c := Config{
		App:       AppConfig{Env: EnvProduction, Port: 5000},
		Storage:   StorageMemory,
		RateLimit: RateLimitConfig{Max: 10, Window: time.Minute},
		Analytics: AnalyticsConfig{Workers: 1, QueueSize: 1, TaskTimeout: time.Second},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for memory storage in production")
	}
}
