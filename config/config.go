package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. LEAFGUARD_PLANTID_API_KEY
const EnvPrefix = "LEAFGUARD"

// ErrInvalidConfig is the kind of every configuration validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError names the offending key and why it was rejected
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	PlantID    PlantIDConfig    `mapstructure:"plantid"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// IsProduction reports whether the server runs in production mode
func (c ServerConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// PlantIDConfig holds identification provider configuration
type PlantIDConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// GeminiConfig holds text generation provider configuration
type GeminiConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Model           string        `mapstructure:"model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// EnrichmentConfig holds disease enrichment cache configuration
type EnrichmentConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds request gate configuration
type RateLimitConfig struct {
	Store       string        `mapstructure:"store"` // "redis", "memory" or "none"
	RedisURL    string        `mapstructure:"redis_url"`
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`
}

// StorageConfig holds blob storage configuration
type StorageConfig struct {
	Type              string        `mapstructure:"type"` // "none", "local" or "s3"
	LocalDir          string        `mapstructure:"local_dir"`
	PublicBaseURL     string        `mapstructure:"public_base_url"`
	S3Bucket          string        `mapstructure:"s3_bucket"`
	S3Region          string        `mapstructure:"s3_region"`
	S3Endpoint        string        `mapstructure:"s3_endpoint"`
	S3AccessKeyID     string        `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string        `mapstructure:"s3_secret_access_key"`
	PresignTTL        time.Duration `mapstructure:"presign_ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	return load("")
}

// LoadFile loads configuration from an explicit config file plus the environment
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(file string) (*Config, error) {
	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/leafguard/")
	}

	// Environment variable settings
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key gets a default so
// AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Provider defaults
	v.SetDefault("plantid.api_key", "")
	v.SetDefault("plantid.base_url", "https://api.plant.id/v2")
	v.SetDefault("plantid.timeout", "30s")
	v.SetDefault("plantid.requests_per_second", 1.0)
	v.SetDefault("plantid.burst", 5)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.max_output_tokens", 2000)
	v.SetDefault("gemini.timeout", "30s")

	// Enrichment cache defaults
	v.SetDefault("enrichment.enabled", true)
	v.SetDefault("enrichment.ttl", "1h")

	// Request gate defaults
	v.SetDefault("ratelimit.store", "memory")
	v.SetDefault("ratelimit.redis_url", "")
	v.SetDefault("ratelimit.window", "60s")
	v.SetDefault("ratelimit.max_requests", 10)

	// Storage defaults
	v.SetDefault("storage.type", "none")
	v.SetDefault("storage.local_dir", "./data")
	v.SetDefault("storage.public_base_url", "http://localhost:8080/files")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("storage.s3_access_key_id", "")
	v.SetDefault("storage.s3_secret_access_key", "")
	v.SetDefault("storage.presign_ttl", "1h")

	v.SetDefault("log.level", "info")
}

// Validate checks the configuration and returns the first *ValidationError found
func Validate(config *Config) error {
	if strings.TrimSpace(config.PlantID.APIKey) == "" {
		return &ValidationError{Field: "plantid.api_key", Reason: "required (set LEAFGUARD_PLANTID_API_KEY)"}
	}

	if config.Enrichment.Enabled && strings.TrimSpace(config.Gemini.APIKey) == "" {
		return &ValidationError{Field: "gemini.api_key", Reason: "required when enrichment is enabled (set LEAFGUARD_GEMINI_API_KEY)"}
	}

	if config.Server.MaxUploadBytes <= 0 {
		return &ValidationError{Field: "server.max_upload_bytes", Reason: "must be positive"}
	}

	switch config.RateLimit.Store {
	case "memory", "none":
	case "redis":
		if config.RateLimit.RedisURL == "" {
			return &ValidationError{Field: "ratelimit.redis_url", Reason: "required when store is 'redis'"}
		}
	default:
		return &ValidationError{Field: "ratelimit.store", Reason: fmt.Sprintf("must be 'redis', 'memory' or 'none', got: %s", config.RateLimit.Store)}
	}

	if config.RateLimit.Store != "none" {
		if config.RateLimit.Window <= 0 {
			return &ValidationError{Field: "ratelimit.window", Reason: "must be positive"}
		}
		if config.RateLimit.MaxRequests <= 0 {
			return &ValidationError{Field: "ratelimit.max_requests", Reason: "must be positive"}
		}
	}

	switch config.Storage.Type {
	case "none":
	case "local":
		if config.Storage.LocalDir == "" {
			return &ValidationError{Field: "storage.local_dir", Reason: "required when storage type is 'local'"}
		}
	case "s3":
		if config.Storage.S3Bucket == "" {
			return &ValidationError{Field: "storage.s3_bucket", Reason: "required when storage type is 's3'"}
		}
	default:
		return &ValidationError{Field: "storage.type", Reason: fmt.Sprintf("must be 'none', 'local' or 's3', got: %s", config.Storage.Type)}
	}

	switch strings.ToLower(config.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "log.level", Reason: fmt.Sprintf("must be debug, info, warn or error, got: %s", config.Log.Level)}
	}

	return nil
}
