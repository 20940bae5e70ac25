// Package config loads process configuration from the environment (and an
// optional .env file), following the teacher's getEnv/getEnvAsInt shape.
// Unlike the teacher, this service has no mandatory external dependency, so
// Load never hard-fails on a bare environment: every field has a usable
// default.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every env-driven setting the CLI and transport need.
type Config struct {
	Env       string
	LogLevel  string
	LogFormat string

	// WSBindAddr is the address the reference WebSocket transport listens
	// on, e.g. ":8765". WSPath is the HTTP path the upgrade is served on.
	WSBindAddr string
	WSPath     string

	// AuthPromptTimeout bounds how long a password prompt waits for a
	// reply before the caller sees "Password prompt timed out".
	AuthPromptTimeout time.Duration

	// ConnRatePerSec/ConnBurst limit the rate at which SSH connect attempts
	// are admitted across exec/start/write/install requests.
	ConnRatePerSec float64
	ConnBurst      int

	// ShutdownTimeout bounds how long `serve` waits for the HTTP server to
	// shut down after a shutdown signal. Upgraded WebSocket connections are
	// not waited for.
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, loading a .env file first
// if one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		WSBindAddr:        getEnv("WS_BIND_ADDR", ":8765"),
		WSPath:            getEnv("WS_PATH", "/ws"),
		AuthPromptTimeout: time.Duration(getEnvAsInt("AUTH_PROMPT_TIMEOUT_SECONDS", 300)) * time.Second,
		ConnRatePerSec:    getEnvAsFloat("CONN_RATE_PER_SEC", 50),
		ConnBurst:         getEnvAsInt("CONN_BURST", 50),
		ShutdownTimeout:   time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
