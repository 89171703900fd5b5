package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"travellog/pkg/logger"
	"travellog/pkg/utils"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreBadger = "badger"
)

func (c *Config) GetBaseUrl() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}

// Load reads defaults, an optional config.yaml from configPaths (default "."),
// and the environment, then validates the result.
func Load(configPaths ...string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(configPaths) == 0 {
		configPaths = []string{"."}
	}
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("TRAVELLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("database.url", "TRAVELLOG_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("auth.access_code", "TRAVELLOG_AUTH_ACCESS_CODE", "ACCESS_CODE")
	_ = v.BindEnv("auth.access_code_hash", "TRAVELLOG_AUTH_ACCESS_CODE_HASH", "ACCESS_CODE_HASH")
	_ = v.BindEnv("auth.session_store", "TRAVELLOG_AUTH_SESSION_STORE", "SESSION_STORE")
	_ = v.BindEnv("server.port", "TRAVELLOG_SERVER_PORT", "APP_PORT", "PORT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.LogDebug("Config file not found. Using environment variables and defaults.")
		} else {
			logger.LogWarn("Config file found but unreadable: %v", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	cfg.BaseURL = cfg.GetBaseUrl()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "Travellog")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.start_message", true)

	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")

	// Database
	v.SetDefault("database.max_open_conns", 10)

	// Auth
	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("auth.session_store", SessionStoreMemory)
	v.SetDefault("auth.session_path", "./data/sessions")
	v.SetDefault("auth.cookie_name", "session_id")
	v.SetDefault("auth.login_rate_limit", 10)

	// Image Codec
	v.SetDefault("image.max_upload_size", "15MB")
	v.SetDefault("image.max_edge", 800)
	v.SetDefault("image.quality", 85)
	v.SetDefault("image.thumbnail_size", 100)
	v.SetDefault("image.thumbnail_quality", 70)
	v.SetDefault("image.max_pixels", 80_000_000)

	// Caching
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_capacity", 64) // MB
	v.SetDefault("cache.ttl", "30m")

	// Security & Limits
	v.SetDefault("security.cors_origins", []string{})
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests", 20)
	v.SetDefault("security.rate_limit.window", "1s")
	v.SetDefault("security.rate_limit.burst", 50)

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate refuses to start the server with a missing secret, a missing
// database, or unparsable durations and sizes.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("database url is required: set DATABASE_URL")
	}

	if c.Auth.AccessCode == "" && c.Auth.AccessCodeHash == "" {
		return errors.New("access code is required: set ACCESS_CODE or ACCESS_CODE_HASH")
	}
	if c.Auth.AccessCodeHash != "" {
		if _, err := bcrypt.Cost([]byte(c.Auth.AccessCodeHash)); err != nil {
			return fmt.Errorf("invalid auth.access_code_hash: %w", err)
		}
	}

	switch c.Auth.SessionStore {
	case SessionStoreMemory:
	case SessionStoreBadger:
		if c.Auth.SessionPath == "" {
			return errors.New("auth.session_path is required for the badger session store")
		}
	default:
		return fmt.Errorf("unknown auth.session_store %q (want %q or %q)", c.Auth.SessionStore, SessionStoreMemory, SessionStoreBadger)
	}

	durations := map[string]string{
		"auth.session_ttl":           c.Auth.SessionTTL,
		"cache.ttl":                  c.Cache.TTL,
		"security.rate_limit.window": c.Security.RateLimit.Window,
		"server.read_timeout":        c.Server.ReadTimeout,
		"server.write_timeout":       c.Server.WriteTimeout,
		"server.idle_timeout":        c.Server.IdleTimeout,
	}
	for key, raw := range durations {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s format '%s': %v", key, raw, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}

	if _, err := utils.ParseSize(c.Image.MaxUploadSize); err != nil {
		return fmt.Errorf("invalid image.max_upload_size: %w", err)
	}

	if c.Image.MaxEdge <= 0 || c.Image.ThumbnailSize <= 0 {
		return errors.New("image.max_edge and image.thumbnail_size must be positive")
	}
	if !validQuality(c.Image.Quality) || !validQuality(c.Image.ThumbnailQuality) {
		return errors.New("image qualities must be between 1 and 100")
	}

	if c.Auth.AccessCode != "" && len(c.Auth.AccessCode) < 6 && c.Server.Env == "production" {
		logger.LogWarn("Security Alert: the access code is shorter than 6 characters.")
	}

	return nil
}

func validQuality(q int) bool {
	return q >= 1 && q <= 100
}

// SessionTTL returns the parsed session lifetime. Call after Validate.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Auth.SessionTTL)
	return d
}

// MaxUploadBytes returns the parsed upload ceiling. Call after Validate.
func (c *Config) MaxUploadBytes() int64 {
	return utils.SizeToBytes(c.Image.MaxUploadSize, 15<<20)
}

func (c *Config) CacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.TTL)
	return d
}

func (c *Config) RateLimitWindow() time.Duration {
	d, _ := time.ParseDuration(c.Security.RateLimit.Window)
	return d
}

// Timeouts returns read, write and idle server timeouts.
func (c *Config) Timeouts() (read, write, idle time.Duration) {
	read, _ = time.ParseDuration(c.Server.ReadTimeout)
	write, _ = time.ParseDuration(c.Server.WriteTimeout)
	idle, _ = time.ParseDuration(c.Server.IdleTimeout)
	return read, write, idle
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
