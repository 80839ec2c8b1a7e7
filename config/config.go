package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"

	StorageSQL    = "sql"
	StorageMemory = "memory"
)

// Config is everything the API process reads from the environment.
type Config struct {
	App        AppConfig
	Storage    string
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Email      EmailConfig
	Analytics  AnalyticsConfig
	ResumePath string
}

type AppConfig struct {
	Env             string
	Port            int
	Version         string
	LogLevel        string
	LogFormat       string
	FrontendURL     string
	TrustedProxies  []string
	ShutdownTimeout time.Duration
}

type PostgresConfig struct {
	URL string
}

type ClickHouseConfig struct {
	Host       string
	NativePort int
	Database   string
	Username   string
	Password   string
}

func (c ClickHouseConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.NativePort)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

type EmailConfig struct {
	Service  string
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// ContactAddress receives owner notifications.
	ContactAddress string
}

// Enabled reports whether outgoing mail can be sent at all.
func (c EmailConfig) Enabled() bool {
	return c.Username != "" && c.Password != "" && (c.Host != "" || c.Service != "")
}

type AnalyticsConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.ToLower(firstEnv("APP_ENV", "NODE_ENV"))
	if c.App.Env == "" {
		c.App.Env = EnvDevelopment
	}
	c.App.Port, parseErrs = intEnv(parseErrs, "PORT", 5000)
	c.App.Version = envOr("APP_VERSION", "1.0.0")
	c.App.LogLevel = envOr("LOG_LEVEL", "info")
	c.App.LogFormat = envOr("LOG_FORMAT", "")
	c.App.FrontendURL = firstEnv("FRONTEND_URL", "FE_ORIGIN")
	if c.App.FrontendURL == "" {
		c.App.FrontendURL = "http://localhost:3000"
	}
	c.App.TrustedProxies = splitList(os.Getenv("TRUSTED_PROXIES"))
	c.App.ShutdownTimeout, parseErrs = durationEnv(parseErrs, "SHUTDOWN_TIMEOUT", 10*time.Second)

	c.Storage = strings.ToLower(envOr("STORAGE_BACKEND", StorageSQL))

	c.Postgres.URL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	c.ClickHouse.Host = strings.TrimSpace(os.Getenv("CLICKHOUSE_HOST"))
	c.ClickHouse.NativePort, parseErrs = intEnv(parseErrs, "CLICKHOUSE_NATIVE_PORT", 9000)
	c.ClickHouse.Database = envOr("CLICKHOUSE_DB_NAME", "default")
	c.ClickHouse.Username = envOr("CLICKHOUSE_USERNAME", "default")
	c.ClickHouse.Password = os.Getenv("CLICKHOUSE_PASSWORD")

	c.Redis.Addr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.DB, parseErrs = intEnv(parseErrs, "REDIS_DB", 0)

	defaultMax := 1000
	if c.App.Env == EnvProduction {
		defaultMax = 100
	}
	c.RateLimit.Max, parseErrs = intEnv(parseErrs, "RATE_LIMIT_MAX", defaultMax)
	c.RateLimit.Window, parseErrs = durationEnv(parseErrs, "RATE_LIMIT_WINDOW", 15*time.Minute)

	c.Email.Service = strings.ToLower(strings.TrimSpace(os.Getenv("EMAIL_SERVICE")))
	c.Email.Host = strings.TrimSpace(os.Getenv("EMAIL_HOST"))
	c.Email.Port, parseErrs = intEnv(parseErrs, "EMAIL_PORT", 587)
	c.Email.Username = strings.TrimSpace(os.Getenv("EMAIL_USER"))
	c.Email.Password = os.Getenv("EMAIL_PASS")
	c.Email.From = envOr("EMAIL_FROM", c.Email.Username)
	c.Email.ContactAddress = envOr("CONTACT_EMAIL", c.Email.Username)

	c.Analytics.Workers, parseErrs = intEnv(parseErrs, "ANALYTICS_WORKERS", 1)
	c.Analytics.QueueSize, parseErrs = intEnv(parseErrs, "ANALYTICS_QUEUE_SIZE", 1024)
	c.Analytics.TaskTimeout, parseErrs = durationEnv(parseErrs, "ANALYTICS_TASK_TIMEOUT", 5*time.Second)

	c.ResumePath = strings.TrimSpace(os.Getenv("RESUME_PATH"))

	if err := errors.Join(parseErrs...); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error

	switch c.App.Env {
	case EnvProduction, EnvDevelopment, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be one of production, development, test, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a valid port, got %d", c.App.Port))
	}

	switch c.Storage {
	case StorageSQL:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_BACKEND=sql"))
		}
		if c.ClickHouse.Host == "" {
			errs = append(errs, errors.New("CLICKHOUSE_HOST is required when STORAGE_BACKEND=sql"))
		}
		if c.ClickHouse.NativePort <= 0 || c.ClickHouse.NativePort > 65535 {
			errs = append(errs, fmt.Errorf("CLICKHOUSE_NATIVE_PORT must be a valid port, got %d", c.ClickHouse.NativePort))
		}
	case StorageMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("STORAGE_BACKEND=memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be sql or memory, got %q", c.Storage))
	}

	if c.RateLimit.Max <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_MAX must be positive, got %d", c.RateLimit.Max))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}

	if c.Email.Enabled() {
		if c.Email.Port <= 0 || c.Email.Port > 65535 {
			errs = append(errs, fmt.Errorf("EMAIL_PORT must be a valid port, got %d", c.Email.Port))
		}
		if c.Email.ContactAddress == "" {
			errs = append(errs, errors.New("CONTACT_EMAIL is required when email is configured"))
		}
	}

	if c.Analytics.Workers <= 0 {
		errs = append(errs, fmt.Errorf("ANALYTICS_WORKERS must be positive, got %d", c.Analytics.Workers))
	}
	if c.Analytics.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("ANALYTICS_QUEUE_SIZE must be positive, got %d", c.Analytics.QueueSize))
	}
	if c.Analytics.TaskTimeout <= 0 {
		errs = append(errs, errors.New("ANALYTICS_TASK_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

func (c Config) IsProduction() bool { return c.App.Env == EnvProduction }

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func intEnv(errs []error, key string, def int) (int, []error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, errs
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, append(errs, fmt.Errorf("%s must be an integer, got %q", key, raw))
	}
	return n, errs
}

func durationEnv(errs []error, key string, def time.Duration) (time.Duration, []error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, errs
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, append(errs, fmt.Errorf("%s must be a duration like 15m, got %q", key, raw))
	}
	return d, errs
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
