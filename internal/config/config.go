// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
	RequestTimeout time.Duration // Bound on a single actor request
}

// DatabaseConfig holds database configuration settings
type DatabaseConfig struct {
	Type string // "mongodb" or "memory"
	URI  string
	Name string
}

// AuthConfig holds token validation settings
type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
}

// RateLimitConfig bounds reputation writes per user
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ReputationConfig tunes the coordinator
type ReputationConfig struct {
	RankingCacheSize int
	WriteRetries     int
}

// Config holds the complete application configuration
type Config struct {
	Server         *ServerConfig
	Database       *DatabaseConfig
	Auth           *AuthConfig
	RateLimit      *RateLimitConfig
	Reputation     *ReputationConfig
	AllowedOrigins []string
	Debug          bool
}

// DefaultConfig provides default server settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8080,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
		RequestTimeout: 5 * time.Second,
	}
}

// DefaultDatabaseConfig provides default database settings
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Type: "mongodb",
		URI:  "mongodb://localhost:27017",
		Name: "fritter",
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Try to load .env file from multiple possible locations
	envLocations := []string{
		".env",          // Current directory
		"../../.env",    // Project root when running from cmd/engine
		"../../../.env", // Even higher directory
		filepath.Join(os.Getenv("GOPATH"), "src/fritter/.env"),
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		_ = godotenv.Load()
	}

	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*Config, error) {
	serverConfig := DefaultConfig()

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %v", portStr, err)
		}
		serverConfig.Port = port
	}

	serverConfig.Host = getEnvOrDefault("HOST", serverConfig.Host)

	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		serverConfig.MetricsEnabled = metricsEnabled == "true"
	}

	timeout, err := getDurationOrDefault("REQUEST_TIMEOUT", serverConfig.RequestTimeout)
	if err != nil {
		return nil, err
	}
	serverConfig.RequestTimeout = timeout

	dbConfig := DefaultDatabaseConfig()
	dbConfig.Type = strings.ToLower(getEnvOrDefault("DB_TYPE", dbConfig.Type))
	switch dbConfig.Type {
	case "mongodb":
		dbConfig.URI = getEnvOrDefault("MONGODB_URI", dbConfig.URI)
		dbConfig.Name = getEnvOrDefault("MONGODB_DATABASE", dbConfig.Name)
	case "memory":
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q (expected mongodb or memory)", dbConfig.Type)
	}

	authConfig := &AuthConfig{
		JWTSecret:       os.Getenv("JWT_SECRET"),
		TokenExpiration: 24 * time.Hour,
	}
	if authConfig.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if authConfig.TokenExpiration, err = getDurationOrDefault("TOKEN_EXPIRATION", authConfig.TokenExpiration); err != nil {
		return nil, err
	}

	rateConfig := &RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	if rps := os.Getenv("RATE_LIMIT_RPS"); rps != "" {
		if rateConfig.RequestsPerSecond, err = strconv.ParseFloat(rps, 64); err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q: %v", rps, err)
		}
	}
	if rateConfig.Burst, err = getIntOrDefault("RATE_LIMIT_BURST", rateConfig.Burst); err != nil {
		return nil, err
	}

	reputationConfig := &ReputationConfig{RankingCacheSize: 1024, WriteRetries: 5}
	if reputationConfig.RankingCacheSize, err = getIntOrDefault("RANKING_CACHE_SIZE", reputationConfig.RankingCacheSize); err != nil {
		return nil, err
	}
	if reputationConfig.WriteRetries, err = getIntOrDefault("WRITE_RETRIES", reputationConfig.WriteRetries); err != nil {
		return nil, err
	}

	config := &Config{
		Server:         serverConfig,
		Database:       dbConfig,
		Auth:           authConfig,
		RateLimit:      rateConfig,
		Reputation:     reputationConfig,
		AllowedOrigins: []string{"*"}, // Default to allow all origins
		Debug:          false,
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		config.Debug = true
	}

	return config, nil
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %v", key, value, err)
	}
	return n, nil
}

// Durations accept Go syntax ("1500ms", "2m") or a bare number of seconds.
func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %v", key, value, err)
	}
	return d, nil
}
