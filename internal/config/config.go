// Package config reads process configuration from the environment, with
// optional .env file support for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the engine needs at process start.
type Config struct {
	// DSN is the PostgreSQL connection string.
	DSN string
	// ServiceUsername and ServicePassword are the bridge service account
	// credentials used by the authenticator and authorizer.
	ServiceUsername string
	ServicePassword string

	MaxOpenConns int
	MaxIdleConns int
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DSN:             os.Getenv("DATAWARD_PG_DSN"),
		ServiceUsername: os.Getenv("DATAWARD_SERVICE_USER"),
		ServicePassword: os.Getenv("DATAWARD_SERVICE_PASSWORD"),
		MaxOpenConns:    intEnv("DATAWARD_PG_MAX_OPEN", 25),
		MaxIdleConns:    intEnv("DATAWARD_PG_MAX_IDLE", 10),
	}
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
