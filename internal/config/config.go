package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings shared by the API server
// and the pipeline binaries.
type Config struct {
	DatabaseURL  string
	Port         int
	BearerToken  string
	DefaultLimit int
	LogLevel     string
	LogFormat    string

	PowerBaseURL    string
	PowerWindowDays int
	PowerLagDays    int
	PowerTimeout    time.Duration
	IngestWorkers   int

	GridStepDeg      float64
	GeohashPrecision uint
	AltitudeM        float64
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:             8080,
		DefaultLimit:     200,
		LogLevel:         "info",
		LogFormat:        "text",
		PowerWindowDays:  7,
		PowerLagDays:     3,
		PowerTimeout:     30 * time.Second,
		IngestWorkers:    10,
		GridStepDeg:      0.001,
		GeohashPrecision: 7,
		AltitudeM:        143,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	if limitStr := os.Getenv("API_DEFAULT_LIMIT"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			cfg.DefaultLimit = limit
		} else {
			return cfg, fmt.Errorf("invalid API_DEFAULT_LIMIT: %s", limitStr)
		}
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}

	if base := os.Getenv("POWER_BASE_URL"); base != "" {
		cfg.PowerBaseURL = base
	}

	if daysStr := os.Getenv("POWER_WINDOW_DAYS"); daysStr != "" {
		if days, err := strconv.Atoi(daysStr); err == nil && days > 0 {
			cfg.PowerWindowDays = days
		} else {
			return cfg, fmt.Errorf("invalid POWER_WINDOW_DAYS: %s", daysStr)
		}
	}

	if lagStr := os.Getenv("POWER_LAG_DAYS"); lagStr != "" {
		if lag, err := strconv.Atoi(lagStr); err == nil && lag >= 0 {
			cfg.PowerLagDays = lag
		} else {
			return cfg, fmt.Errorf("invalid POWER_LAG_DAYS: %s", lagStr)
		}
	}

	if timeoutStr := os.Getenv("POWER_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil && timeout > 0 {
			cfg.PowerTimeout = timeout
		} else {
			return cfg, fmt.Errorf("invalid POWER_TIMEOUT: %s", timeoutStr)
		}
	}

	if workersStr := os.Getenv("INGEST_WORKERS"); workersStr != "" {
		if workers, err := strconv.Atoi(workersStr); err == nil && workers > 0 {
			cfg.IngestWorkers = workers
		} else {
			return cfg, fmt.Errorf("invalid INGEST_WORKERS: %s", workersStr)
		}
	}

	if stepStr := os.Getenv("GRID_STEP_DEG"); stepStr != "" {
		if step, err := strconv.ParseFloat(stepStr, 64); err == nil && step > 0 {
			cfg.GridStepDeg = step
		} else {
			return cfg, fmt.Errorf("invalid GRID_STEP_DEG: %s", stepStr)
		}
	}

	if precStr := os.Getenv("GEOHASH_PRECISION"); precStr != "" {
		if prec, err := strconv.Atoi(precStr); err == nil && prec > 0 && prec <= 12 {
			cfg.GeohashPrecision = uint(prec)
		} else {
			return cfg, fmt.Errorf("invalid GEOHASH_PRECISION: %s", precStr)
		}
	}

	if altStr := os.Getenv("ALTITUDE_M"); altStr != "" {
		if alt, err := strconv.ParseFloat(altStr, 64); err == nil {
			cfg.AltitudeM = alt
		} else {
			return cfg, fmt.Errorf("invalid ALTITUDE_M: %s", altStr)
		}
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
