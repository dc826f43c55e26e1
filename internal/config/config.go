package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration, read from the environment with an
// optional .env file.
type Config struct {
	ServerPort int

	StoreBackend string // "memory" or "postgres"
	PostgresURL  string

	RedisAddr     string // empty disables the Redis publisher
	RedisPassword string
	RedisDB       int

	SchedulerInterval time.Duration
	EngineMaxRetries  int
}

// Load reads configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		ServerPort:        8080,
		StoreBackend:      getEnvOrDefault("STORE_BACKEND", "memory"),
		PostgresURL:       os.Getenv("POSTGRES_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		SchedulerInterval: time.Second,
		EngineMaxRetries:  5,
	}

	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", p, err)
		}
		cfg.ServerPort = port
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", db, err)
		}
		cfg.RedisDB = n
	}

	if iv := os.Getenv("SCHEDULER_INTERVAL"); iv != "" {
		d, err := time.ParseDuration(iv)
		if err != nil {
			return nil, fmt.Errorf("invalid SCHEDULER_INTERVAL %q: %w", iv, err)
		}
		cfg.SchedulerInterval = d
	}

	if r := os.Getenv("ENGINE_MAX_RETRIES"); r != "" {
		n, err := strconv.Atoi(r)
		if err != nil {
			return nil, fmt.Errorf("invalid ENGINE_MAX_RETRIES %q: %w", r, err)
		}
		cfg.EngineMaxRetries = n
	}

	if cfg.StoreBackend == "postgres" && cfg.PostgresURL == "" {
		return nil, fmt.Errorf("STORE_BACKEND=postgres requires POSTGRES_URL")
	}

	return cfg, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
