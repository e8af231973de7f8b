// Package config loads runtime settings from the environment.
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
	Env         string
	HTTPAddr    string
	APIBasePath string
	Domain      string

	Redis     RedisConfig
	JWT       JWTConfig
	Directory DirectoryConfig
	Bus       BusConfig

	DatabaseURL      string
	ConnectTimeout   time.Duration
	PublishMutations bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type JWTConfig struct {
	Algorithm string
	Header    string
	Secret    string
}

type DirectoryConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

type BusConfig struct {
	// Driver is "redis" or "nats".
	Driver  string
	NatsURL string
}

// Load reads the settings and validates them for the server.
func Load() (Config, error) {
	cfg, err := Read()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read loads a .env file when present and then the process environment,
// without validation. Tools that never verify tokens use it directly.
func Read() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Env:         getEnv("ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":3005"),
		APIBasePath: getEnv("API_BASE_PATH", "/api"),
		Domain:      getEnv("DOMAIN_HANDLE", "myplatform"),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "chatsock"),
		},
		JWT: JWTConfig{
			Algorithm: getEnv("JWT_ALGORITHM", "HS256"),
			Header:    getEnv("JWT_HEADER", "X-Auth-Token"),
			Secret:    getEnv("JWT_SECRET", ""),
		},
		Directory: DirectoryConfig{
			BaseURL:   strings.TrimRight(getEnv("API_URL", "http://localhost:3000"), "/"),
			UserAgent: getEnv("API_USER_AGENT", DirectoryUserAgent),
			Timeout:   DirectoryTimeout,
		},
		Bus: BusConfig{
			Driver:  getEnv("BUS_DRIVER", "redis"),
			NatsURL: getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		},
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ConnectTimeout:   getEnvDuration("CONNECT_TIMEOUT", ConnectTimeout),
		PublishMutations: getEnvBool("PUBLISH_MUTATIONS", false),
	}
	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Bus.Driver {
	case "redis", "nats":
	default:
		return fmt.Errorf("unknown BUS_DRIVER %q", c.Bus.Driver)
	}
	if !strings.HasPrefix(c.APIBasePath, "/") {
		return fmt.Errorf("API_BASE_PATH must start with /")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ArchiveEnabled reports whether messages are mirrored to Postgres.
func (c Config) ArchiveEnabled() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("15s") or bare milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
