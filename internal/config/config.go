// Package config loads application configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Database fields are required only when the
// MySQL backend is selected.
type Config struct {
	Env          string        // application environment (e.g. "dev", "prod")
	Port         string        // HTTP port to listen on
	StoreBackend string        // "mysql" or "memory"
	DBUser       string        // database username
	DBPass       string        // database password (optional)
	DBHost       string        // database host address
	DBPort       string        // database port number
	DBName       string        // database name
	HoldWindow   time.Duration // how long a pending reservation keeps its hold
	SweepInt     time.Duration // how often the expiry sweeper ticks
}

// Load reads configuration values from the environment and returns a
// Config.  A .env file in the working directory is merged in first when
// present.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // absent .env is fine; real env always wins

	cfg := Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		StoreBackend: getenv("STORE_BACKEND", "mysql"),
		HoldWindow:   time.Duration(envInt("HOLD_WINDOW_MIN", 15)) * time.Minute,
		SweepInt:     time.Duration(envInt("SWEEP_INTERVAL_SEC", 60)) * time.Second,
	}
	if cfg.StoreBackend == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
