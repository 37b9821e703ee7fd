package solve

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/snow-ghost/asp/pkg/registry"
)

// Config holds configuration for the clingo invocation
type Config struct {
	Binary    string
	Models    int // 0 asks for every model
	Timeout   time.Duration
	ExtraArgs []string
	MaxRate   float64 // runs per second, 0 = unlimited
	CacheSize int     // parsed model lines kept per run

	IntsAsSymbols bool // keep numbers as symbols
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Binary:    getEnv("CLINGO_BIN", "clingo"),
		Models:    getEnvInt("CLINGO_MODELS", 0),
		Timeout:   getEnvDuration("CLINGO_TIMEOUT", "1m"),
		ExtraArgs: strings.Fields(getEnv("CLINGO_EXTRA_ARGS", "")),
		MaxRate:   getEnvFloat("CLINGO_MAX_RATE", 0),
		CacheSize: getEnvInt("CLINGO_CACHE_SIZE", 256),
	}
}

// Apply overlays the non-zero settings of a registry file
func (c *Config) Apply(s registry.SolverConfig) *Config {
	if s.Binary != "" {
		c.Binary = s.Binary
	}
	if s.Models > 0 {
		c.Models = s.Models
	}
	if s.Timeout > 0 {
		c.Timeout = s.Timeout
	}
	if len(s.Args) > 0 {
		c.ExtraArgs = append(append([]string{}, c.ExtraArgs...), s.Args...)
	}
	if s.MaxRate > 0 {
		c.MaxRate = s.MaxRate
	}
	if s.CacheSize > 0 {
		c.CacheSize = s.CacheSize
	}
	return c
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
