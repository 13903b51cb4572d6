package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultDBPath          = "./dev.db"
	defaultPort            = "8080"
	defaultEnv             = "dev"
	defaultRedisPrefix     = "dairycalc:"
	defaultHistoryLimit    = 500
	defaultTimestampLayout = "1/2/2006, 3:04:05 PM"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env             string
	Port            string
	DBPath          string
	StoreBackend    string
	RedisURL        string
	RedisPrefix     string
	HistoryLimit    int
	TimestampLayout string
}

// IsDev reports whether the application runs in a development environment.
func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

// Load reads ./.env, if present, and then the process environment.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom reads envFile, if present, and then the process environment.
// Variables already set in the environment win over the file.
func LoadFrom(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := Config{
		Env:             getenvWithDefault("APP_ENV", defaultEnv),
		Port:            getenvWithDefault("PORT", defaultPort),
		DBPath:          getenvWithDefault("DB_PATH", defaultDBPath),
		StoreBackend:    strings.ToLower(getenvWithDefault("STORE_BACKEND", BackendSQLite)),
		RedisURL:        os.Getenv("REDIS_URL"),
		RedisPrefix:     getenvWithDefault("REDIS_PREFIX", defaultRedisPrefix),
		TimestampLayout: getenvWithDefault("TIMESTAMP_LAYOUT", defaultTimestampLayout),
		HistoryLimit:    defaultHistoryLimit,
	}

	if raw := os.Getenv("HISTORY_LIMIT"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return Config{}, fmt.Errorf("HISTORY_LIMIT must be a non-negative integer, got %q", raw)
		}
		cfg.HistoryLimit = limit
	}

	switch cfg.StoreBackend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return Config{}, errors.New("REDIS_URL is required when STORE_BACKEND=redis")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

func getenvWithDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
