package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime configuration loaded from environment
// variables. A `.env` file in the working directory is honored when present.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	// DatabaseURL selects the Postgres credential store. When empty the
	// server runs on the in-memory store (dev mode).
	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32

	// MigrateOnStart runs the embedded goose migrations before serving.
	MigrateOnStart bool
}

// LoadConfig loads Config from the environment with defaults.
func LoadConfig() Config {
	// Optional; missing .env is not an error.
	_ = godotenv.Load()

	return Config{
		HTTPAddr: envString("SONAR_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: envString("SONAR_LOG_LEVEL", "info"),

		ReadHeaderTimeout: envDuration("SONAR_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       envDuration("SONAR_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      envDuration("SONAR_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       envDuration("SONAR_HTTP_IDLE_TIMEOUT", 60*time.Second),

		DatabaseURL: envString("DATABASE_URL", ""),
		DBSchema:    envString("SONAR_DB_SCHEMA", "sonar"),
		DBMaxConns:  envInt32("SONAR_DB_MAX_CONNS", 10),
		DBMinConns:  envInt32("SONAR_DB_MIN_CONNS", 0),

		MigrateOnStart: envBool("SONAR_DB_MIGRATE", true),
	}
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt32(key string, def int32) int32 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n < 0 {
		return def
	}
	return int32(n)
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
