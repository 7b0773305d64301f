package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gocalib/domain/calibration"
	"gocalib/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Calibration CalibrationConfig
	Server      ServerConfig
	Admin       AdminConfig
	Storage     StorageConfig
	Experiment  ExperimentConfig
	Log         LogConfig
}

// CalibrationConfig holds defaults applied when a request leaves them out
type CalibrationConfig struct {
	Confidence float64
	PriorLabel string
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Port           string
	GinMode        string
	RateLimitRPS   float64
	RateLimitBurst int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// AdminConfig holds the health/metrics/pprof listener settings
type AdminConfig struct {
	Port    string
	Enabled bool
}

// StorageConfig selects where calibration runs are persisted.
// DatabaseURL wins over BoltPath when both are set.
type StorageConfig struct {
	DatabaseURL string
	BoltPath    string
}

// ExperimentConfig holds experiment driver settings
type ExperimentConfig struct {
	Seed        int64
	Concurrency int
	OutputDir   string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Calibration: *loadCalibrationConfig(),
		Server:      *loadServerConfig(),
		Admin:       *loadAdminConfig(),
		Storage:     *loadStorageConfig(),
		Experiment:  *loadExperimentConfig(),
		Log:         *loadLogConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// DefaultConfidence returns the configured confidence as a validated probability
func (c *Config) DefaultConfidence() calibration.Probability {
	p, err := calibration.NewProbability(c.Calibration.Confidence)
	if err != nil {
		return calibration.DefaultConfidence
	}
	return p
}

// UsesPostgres reports whether runs should be stored in PostgreSQL
func (c *Config) UsesPostgres() bool {
	return c.Storage.DatabaseURL != ""
}

func loadCalibrationConfig() *CalibrationConfig {
	return &CalibrationConfig{
		Confidence: getEnvFloatOrDefault("CALIBRATION_CONFIDENCE", calibration.DefaultConfidence.Float64()),
		PriorLabel: getEnvOrDefault("CALIBRATION_PRIOR", calibration.PriorJeffreys),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           getEnvOrDefault("PORT", "8080"),
		GinMode:        getEnvOrDefault("GIN_MODE", "release"),
		RateLimitRPS:   getEnvFloatOrDefault("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvIntOrDefault("RATE_LIMIT_BURST", 40),
		ReadTimeout:    getEnvDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getEnvDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
	}
}

func loadAdminConfig() *AdminConfig {
	return &AdminConfig{
		Port:    getEnvOrDefault("ADMIN_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("ADMIN_ENABLED", true),
	}
}

func loadStorageConfig() *StorageConfig {
	return &StorageConfig{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		BoltPath:    getEnvOrDefault("BOLT_PATH", "./data/calibrations.db"),
	}
}

func loadExperimentConfig() *ExperimentConfig {
	return &ExperimentConfig{
		Seed:        int64(getEnvIntOrDefault("EXPERIMENT_SEED", 42)),
		Concurrency: getEnvIntOrDefault("EXPERIMENT_CONCURRENCY", 4),
		OutputDir:   getEnvOrDefault("OUTPUT_DIR", "./experiments_results"),
	}
}

func loadLogConfig() *LogConfig {
	return &LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
	}
}

func validateConfig(config *Config) error {
	if _, err := calibration.NewProbability(config.Calibration.Confidence); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "CALIBRATION_CONFIDENCE"))
	}
	if _, err := calibration.LookupPrior(config.Calibration.PriorLabel); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "CALIBRATION_PRIOR"))
	}
	if strings.TrimSpace(config.Server.Port) == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Server.RateLimitRPS <= 0 || config.Server.RateLimitBurst <= 0 {
		return errors.ConfigInvalid("rate limit must be positive")
	}
	if config.Admin.Enabled && config.Admin.Port == config.Server.Port {
		return errors.ConfigInvalid("admin port must differ from server port")
	}
	if config.Storage.DatabaseURL == "" && config.Storage.BoltPath == "" {
		return errors.ConfigInvalid("either DATABASE_URL or BOLT_PATH is required")
	}
	if config.Experiment.Concurrency < 1 {
		return errors.ConfigInvalid("experiment concurrency must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
