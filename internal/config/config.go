// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
)

// Config holds all pageturn configuration. The core packages consume these
// as plain values; no file format is parsed here.
type Config struct {
	// Logging
	LogLevel  string
	LogFormat string

	// Metrics
	MetricsAddr string

	// Texture cache
	CacheBudgetBytes int64

	// Decode workers
	Workers            int
	InFlightMultiplier int

	// Prefetch window
	PreloadAhead      int
	PreloadBehind     int
	VelocityThreshold float64

	// Decode targets
	MaxTextureSide int

	// Result delivery
	ResultBuffer    int
	UploadBatchSize int
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	workers := envInt("PAGETURN_WORKERS", runtime.NumCPU())

	cfg := &Config{
		LogLevel:           envOr("LOG_LEVEL", "info"),
		LogFormat:          envOr("LOG_FORMAT", "console"),
		MetricsAddr:        envOr("METRICS_ADDR", ""),
		CacheBudgetBytes:   envInt64("PAGETURN_CACHE_BUDGET", 512*1024*1024),
		Workers:            workers,
		InFlightMultiplier: envInt("PAGETURN_INFLIGHT_MULTIPLIER", 2),
		PreloadAhead:       envInt("PAGETURN_PRELOAD_AHEAD", 12),
		PreloadBehind:      envInt("PAGETURN_PRELOAD_BEHIND", 6),
		VelocityThreshold:  envFloat("PAGETURN_VELOCITY_THRESHOLD", 4.0),
		MaxTextureSide:     envInt("PAGETURN_MAX_TEXTURE_SIDE", 8192),
		ResultBuffer:       envInt("PAGETURN_RESULT_BUFFER", 32),
		UploadBatchSize:    envInt("PAGETURN_UPLOAD_BATCH", 4),
	}

	if cfg.CacheBudgetBytes <= 0 {
		return nil, fmt.Errorf("PAGETURN_CACHE_BUDGET must be positive")
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("PAGETURN_WORKERS must be positive")
	}
	if cfg.InFlightMultiplier <= 0 {
		return nil, fmt.Errorf("PAGETURN_INFLIGHT_MULTIPLIER must be positive")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
