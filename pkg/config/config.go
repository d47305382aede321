package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Ingest        IngestConfig
	Classifier    ClassifierConfig
	Insights      InsightsConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// IngestConfig tunes the header scan and local persistence paths.
// The bounded header window matches the known spreadsheet template; it is a
// heuristic, which is why it is configuration and not a constant.
type IngestConfig struct {
	HeaderScanStart int // first row of the bounded header scan (0-based)
	HeaderScanEnd   int // last row of the bounded header scan, inclusive
	CachePath       string
	SearchIndexPath string
}

// ClassifierConfig configures the external classification endpoint and the
// retry/pacing policy around it.
type ClassifierConfig struct {
	Endpoint     string
	APIKey       string
	MaxAttempts  int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	RequestDelay time.Duration
}

type InsightsConfig struct {
	Endpoint           string
	PredictionEndpoint string
	APIKey             string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

// Load reads configuration from environment variables, with .env files
// loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "localhost"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "grana-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Ingest: IngestConfig{
			HeaderScanStart: getEnvAsInt("INGEST_HEADER_SCAN_START", 10),
			HeaderScanEnd:   getEnvAsInt("INGEST_HEADER_SCAN_END", 24),
			CachePath:       getEnv("CATEGORY_CACHE_PATH", "data/category-cache.json"),
			SearchIndexPath: getEnv("SEARCH_INDEX_PATH", ""),
		},
		Classifier: ClassifierConfig{
			Endpoint:     getEnv("CLASSIFIER_ENDPOINT", ""),
			APIKey:       getEnv("CLASSIFIER_API_KEY", ""),
			MaxAttempts:  getEnvAsInt("CLASSIFIER_MAX_ATTEMPTS", 3),
			BaseBackoff:  getEnvAsDuration("CLASSIFIER_BASE_BACKOFF", 2*time.Second),
			MaxBackoff:   getEnvAsDuration("CLASSIFIER_MAX_BACKOFF", 10*time.Second),
			RequestDelay: getEnvAsDuration("CLASSIFIER_REQUEST_DELAY", 2500*time.Millisecond),
		},
		Insights: InsightsConfig{
			Endpoint:           getEnv("INSIGHTS_ENDPOINT", ""),
			PredictionEndpoint: getEnv("PREDICTION_ENDPOINT", ""),
			APIKey:             getEnv("INSIGHTS_API_KEY", ""),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
	}

	if cfg.Classifier.Endpoint == "" {
		return nil, errors.New("CLASSIFIER_ENDPOINT is required")
	}

	if cfg.Ingest.HeaderScanEnd < cfg.Ingest.HeaderScanStart {
		return nil, errors.New("INGEST_HEADER_SCAN_END must be >= INGEST_HEADER_SCAN_START")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
