package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Issuer    string // Issuer claim for tokens (default: userd)
	JWTSecret string // Required: HMAC signing secret, at least 32 bytes

	DatabaseFile  string        // Path to SQLite database file (default: ./userd.db)
	PepperFile    string        // Path to the password hashing pepper file (default: ./pepper)
	AccessTTL     time.Duration // Access token lifetime (default: 15m)
	RefreshTTL    time.Duration // Refresh token lifetime (default: 7 days)
	SweepInterval time.Duration // Expired token sweep interval (default: 24h)
	Env           string        // Environment (dev, staging, prod) (default: dev)
	LogLevel      string        // Log level (debug, info, warn, error) (default: info)
	LogFormat     string        // Log format (json, text) (default: json)
	Port          int           // HTTP server port (default: 8080)
	ShutdownGrace time.Duration // Graceful shutdown timeout (default: 10s)
}

// fileConfig mirrors Config for the optional TOML file. Durations are
// strings there ("15m", "168h") and parsed after decoding.
type fileConfig struct {
	Issuer        string `toml:"issuer"`
	JWTSecret     string `toml:"jwt_secret"`
	DatabaseFile  string `toml:"database_file"`
	PepperFile    string `toml:"pepper_file"`
	AccessTTL     string `toml:"access_ttl"`
	RefreshTTL    string `toml:"refresh_ttl"`
	SweepInterval string `toml:"sweep_interval"`
	Env           string `toml:"env"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	Port          int    `toml:"port"`
	ShutdownGrace string `toml:"shutdown_grace"`
}

// LoadConfig reads the optional TOML file named by USERD_CONFIG, then lets
// environment variables override individual settings.
func LoadConfig() (Config, error) {
	cfg := Config{
		Issuer:        "userd",
		DatabaseFile:  "userd.db",
		PepperFile:    "pepper",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		SweepInterval: 24 * time.Hour,
		Env:           "dev",
		LogLevel:      "info",
		LogFormat:     "json",
		Port:          8080,
		ShutdownGrace: 10 * time.Second,
	}

	if path := os.Getenv("USERD_CONFIG"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.Issuer = getEnvOrDefault("USERD_ISSUER", cfg.Issuer)
	cfg.JWTSecret = getEnvOrDefault("USERD_JWT_SECRET", cfg.JWTSecret)
	cfg.DatabaseFile = getEnvOrDefault("USERD_DATABASE_FILE", cfg.DatabaseFile)
	cfg.PepperFile = getEnvOrDefault("USERD_PEPPER_FILE", cfg.PepperFile)
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)
	cfg.AccessTTL = getEnvDurationOrDefault("USERD_ACCESS_TTL", cfg.AccessTTL)
	cfg.RefreshTTL = getEnvDurationOrDefault("USERD_REFRESH_TTL", cfg.RefreshTTL)
	cfg.SweepInterval = getEnvDurationOrDefault("USERD_SWEEP_INTERVAL", cfg.SweepInterval)
	cfg.ShutdownGrace = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGrace)

	if len(cfg.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("USERD_JWT_SECRET must be at least 32 bytes, got %d", len(cfg.JWTSecret))
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Issuer != "" {
		cfg.Issuer = fc.Issuer
	}
	if fc.JWTSecret != "" {
		cfg.JWTSecret = fc.JWTSecret
	}
	if fc.DatabaseFile != "" {
		cfg.DatabaseFile = fc.DatabaseFile
	}
	if fc.PepperFile != "" {
		cfg.PepperFile = fc.PepperFile
	}
	if fc.Env != "" {
		cfg.Env = fc.Env
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}
	if fc.Port != 0 {
		cfg.Port = fc.Port
	}

	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{fc.AccessTTL, &cfg.AccessTTL},
		{fc.RefreshTTL, &cfg.RefreshTTL},
		{fc.SweepInterval, &cfg.SweepInterval},
		{fc.ShutdownGrace, &cfg.ShutdownGrace},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q in config file %s: %w", d.raw, path, err)
		}
		*d.dst = parsed
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
