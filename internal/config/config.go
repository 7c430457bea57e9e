package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	DatabaseDriver string
	DatabaseURL    string
	RedisURL       string
	NATSURL        string
	EventsSubject  string
	StoreTimeout   time.Duration

	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CSRFSecret       string
	CSRFCookieSecure bool
	CORSAllowOrigins string

	RateLimitStore         string
	RateLimitSweepInterval time.Duration
	LoginGuardWindow       time.Duration
	LoginGuardMaxFailures  int
	ActivityQueueSize      int
	ActivityWorkers        int
	ActivityRetentionDays  int
	AnalyticsCacheTTL      time.Duration
	SeedAdminEmail         string
	SeedAdminPassword      string

	Log LogConfig
}

// LogConfig controls the root zerolog logger.
type LogConfig struct {
	Level         string
	Console       bool
	Pretty        bool
	FilePath      string
	FileMaxSizeMB int
	FileMaxAge    int
	FileBackups   int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production defaults.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("events.subject", "gema.activity")
	v.SetDefault("store.timeout", "3s")
	v.SetDefault("jwt.issuer", "gema-api")
	v.SetDefault("jwt.access_ttl", "1h")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("csrf.cookie_secure", true)
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("ratelimit.store", "memory")
	v.SetDefault("ratelimit.sweep_interval", "1m")
	v.SetDefault("login_guard.window", "15m")
	v.SetDefault("login_guard.max_failures", 5)
	v.SetDefault("activity.queue_size", 1024)
	v.SetDefault("activity.workers", 2)
	v.SetDefault("activity.retention_days", 90)
	v.SetDefault("analytics.cache_ttl", "1m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file_max_size_mb", 50)
	v.SetDefault("log.file_max_age", 28)
	v.SetDefault("log.file_backups", 5)

	durations := map[string]*time.Duration{}
	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		DatabaseDriver:        strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:           v.GetString("database.url"),
		RedisURL:              v.GetString("redis.url"),
		NATSURL:               v.GetString("nats.url"),
		EventsSubject:         v.GetString("events.subject"),
		JWTSecret:             v.GetString("jwt.secret"),
		JWTIssuer:             v.GetString("jwt.issuer"),
		CSRFSecret:            v.GetString("csrf.secret"),
		CSRFCookieSecure:      v.GetBool("csrf.cookie_secure"),
		CORSAllowOrigins:      v.GetString("cors.allow_origins"),
		RateLimitStore:        strings.ToLower(v.GetString("ratelimit.store")),
		LoginGuardMaxFailures: v.GetInt("login_guard.max_failures"),
		ActivityQueueSize:     v.GetInt("activity.queue_size"),
		ActivityWorkers:       v.GetInt("activity.workers"),
		ActivityRetentionDays: v.GetInt("activity.retention_days"),
		SeedAdminEmail:        v.GetString("seed.admin_email"),
		SeedAdminPassword:     v.GetString("seed.admin_password"),
		Log: LogConfig{
			Level:         v.GetString("log.level"),
			Console:       v.GetBool("log.console"),
			Pretty:        v.GetBool("log.pretty"),
			FilePath:      v.GetString("log.file_path"),
			FileMaxSizeMB: v.GetInt("log.file_max_size_mb"),
			FileMaxAge:    v.GetInt("log.file_max_age"),
			FileBackups:   v.GetInt("log.file_backups"),
		},
	}

	durations["store.timeout"] = &cfg.StoreTimeout
	durations["jwt.access_ttl"] = &cfg.AccessTokenTTL
	durations["jwt.refresh_ttl"] = &cfg.RefreshTokenTTL
	durations["ratelimit.sweep_interval"] = &cfg.RateLimitSweepInterval
	durations["login_guard.window"] = &cfg.LoginGuardWindow
	durations["analytics.cache_ttl"] = &cfg.AnalyticsCacheTTL

	for key, target := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("invalid %s: must be positive", key)
		}
		*target = parsed
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.CSRFSecret == "" {
		return Config{}, fmt.Errorf("csrf secret must be provided")
	}

	if cfg.AccessTokenTTL >= cfg.RefreshTokenTTL {
		return Config{}, fmt.Errorf("access token ttl must be shorter than refresh token ttl")
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	switch cfg.RateLimitStore {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("unsupported rate limit store %q", cfg.RateLimitStore)
	}

	if cfg.LoginGuardMaxFailures <= 0 {
		cfg.LoginGuardMaxFailures = 5
	}

	if cfg.ActivityQueueSize <= 0 {
		cfg.ActivityQueueSize = 1024
	}

	if cfg.ActivityWorkers <= 0 {
		cfg.ActivityWorkers = 1
	}

	return cfg, nil
}
