// Package config provides application configuration. Values come from an
// optional YAML file, then environment variables, then defaults.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// ServerConfig interface for server-specific configuration.
type ServerConfig interface {
	GetServerPort() string
	GetReadTimeout() time.Duration
	GetWriteTimeout() time.Duration
	GetIdleTimeout() time.Duration
}

// SecurityConfig interface for security-related configuration.
type SecurityConfig interface {
	GetJWTSecret() string
	GetJWTExpiration() time.Duration
}

// StorageConfig groups the backing stores of the sync layer.
type StorageConfig interface {
	GetPBDataDir() string
	GetCachePath() string
	GetRedisURL() string
	GetS3() S3Config
}

// SyncConfig describes the periodic cache refresh.
type SyncConfig interface {
	GetSyncSchedule() string
	GetSyncProjects() []string
	GetSyncUsers() []string
}

// S3Config holds blob storage settings. An empty bucket selects the
// in-memory blob store.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	BaseURL   string `yaml:"base_url"`
}

// fileConfig is the YAML layout accepted by Load.
type fileConfig struct {
	Server struct {
		Port         string `yaml:"port"`
		Environment  string `yaml:"environment"`
		LogLevel     string `yaml:"log_level"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
		IdleTimeout  string `yaml:"idle_timeout"`
	} `yaml:"server"`
	Storage struct {
		PBDataDir string   `yaml:"pb_data_dir"`
		CachePath string   `yaml:"cache_path"`
		RedisURL  string   `yaml:"redis_url"`
		S3        S3Config `yaml:"s3"`
	} `yaml:"storage"`
	Auth struct {
		JWTSecret     string `yaml:"jwt_secret"`
		JWTExpiration string `yaml:"jwt_expiration"`
	} `yaml:"auth"`
	Sync struct {
		Schedule string   `yaml:"schedule"`
		Projects []string `yaml:"projects"`
		Users    []string `yaml:"users"`
	} `yaml:"sync"`
	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// AppConfig implements all configuration interfaces.
type AppConfig struct {
	serverPort     string
	environment    string
	logLevel       string
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
	pbDataDir      string
	cachePath      string
	redisURL       string
	s3             S3Config
	jwtSecret      string
	jwtExpiration  time.Duration
	syncSchedule   string
	syncProjects   []string
	syncUsers      []string
	metricsEnabled bool
}

// NewConfig creates a new configuration from environment variables and
// defaults.
func NewConfig() *AppConfig {
	return build(fileConfig{})
}

// Load reads the YAML file at path, if it exists, and applies environment
// variables on top.
func Load(path string) (*AppConfig, error) {
	var file fileConfig
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &file); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return build(file), nil
}

func build(f fileConfig) *AppConfig {
	environment := getEnvString("ENVIRONMENT", or(f.Server.Environment, EnvDevelopment))
	metricsEnabled := true
	if f.Metrics.Enabled != nil {
		metricsEnabled = *f.Metrics.Enabled
	}

	secret := getEnvString("JWT_SECRET", f.Auth.JWTSecret)
	if secret == "" {
		secret = getJWTSecret(environment)
	}

	return &AppConfig{
		serverPort:   getEnvString("SERVER_PORT", or(f.Server.Port, "8080")),
		environment:  environment,
		logLevel:     getEnvString("LOG_LEVEL", or(f.Server.LogLevel, "info")),
		readTimeout:  getEnvDuration("READ_TIMEOUT", or(f.Server.ReadTimeout, "15s")),
		writeTimeout: getEnvDuration("WRITE_TIMEOUT", or(f.Server.WriteTimeout, "15s")),
		idleTimeout:  getEnvDuration("IDLE_TIMEOUT", or(f.Server.IdleTimeout, "60s")),
		pbDataDir:    getEnvString("PB_DATA_DIR", or(f.Storage.PBDataDir, "pb_data")),
		cachePath:    getEnvString("CACHE_PATH", or(f.Storage.CachePath, "cache.db")),
		redisURL:     getEnvString("REDIS_URL", f.Storage.RedisURL),
		s3: S3Config{
			Bucket:    getEnvString("S3_BUCKET", f.Storage.S3.Bucket),
			Region:    getEnvString("S3_REGION", or(f.Storage.S3.Region, "us-east-1")),
			Endpoint:  getEnvString("S3_ENDPOINT", f.Storage.S3.Endpoint),
			AccessKey: getEnvString("S3_ACCESS_KEY", f.Storage.S3.AccessKey),
			SecretKey: getEnvString("S3_SECRET_KEY", f.Storage.S3.SecretKey),
			BaseURL:   getEnvString("BLOB_BASE_URL", or(f.Storage.S3.BaseURL, "http://localhost:8080/files")),
		},
		jwtSecret:      secret,
		jwtExpiration:  getEnvDuration("JWT_EXPIRATION", or(f.Auth.JWTExpiration, "24h")),
		syncSchedule:   getEnvString("SYNC_SCHEDULE", or(f.Sync.Schedule, "@every 5m")),
		syncProjects:   getEnvList("SYNC_PROJECTS", f.Sync.Projects),
		syncUsers:      getEnvList("SYNC_USERS", f.Sync.Users),
		metricsEnabled: getEnvBool("METRICS_ENABLED", metricsEnabled),
	}
}

func (c *AppConfig) GetServerPort() string { return c.serverPort }

func (c *AppConfig) GetEnvironment() string { return c.environment }

func (c *AppConfig) GetLogLevel() string { return c.logLevel }

// IsProduction returns true if the application is running in production environment.
func (c *AppConfig) IsProduction() bool { return c.environment == EnvProduction }

func (c *AppConfig) GetReadTimeout() time.Duration { return c.readTimeout }

func (c *AppConfig) GetWriteTimeout() time.Duration { return c.writeTimeout }

func (c *AppConfig) GetIdleTimeout() time.Duration { return c.idleTimeout }

func (c *AppConfig) GetPBDataDir() string { return c.pbDataDir }

func (c *AppConfig) GetCachePath() string { return c.cachePath }

func (c *AppConfig) GetRedisURL() string { return c.redisURL }

func (c *AppConfig) GetS3() S3Config { return c.s3 }

func (c *AppConfig) GetJWTSecret() string { return c.jwtSecret }

func (c *AppConfig) GetJWTExpiration() time.Duration { return c.jwtExpiration }

func (c *AppConfig) GetSyncSchedule() string { return c.syncSchedule }

func (c *AppConfig) GetSyncProjects() []string { return c.syncProjects }

func (c *AppConfig) GetSyncUsers() []string { return c.syncUsers }

func (c *AppConfig) MetricsEnabled() bool { return c.metricsEnabled }

// Validate checks if the configuration is valid.
func (c *AppConfig) Validate() error {
	if c.serverPort == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if c.environment != EnvDevelopment && c.environment != EnvStaging && c.environment != EnvProduction {
		return fmt.Errorf("environment must be one of: development, staging, production")
	}

	if len(c.jwtSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters long")
	}

	if c.environment == EnvProduction && isDefaultSecret(c.jwtSecret) {
		return fmt.Errorf("default JWT secrets are not allowed in production")
	}

	if c.cachePath == "" {
		return fmt.Errorf("cache path cannot be empty")
	}

	if c.s3.Endpoint != "" && c.s3.Bucket != "" && (c.s3.AccessKey == "" || c.s3.SecretKey == "") {
		return fmt.Errorf("S3 access key and secret key are required with a custom endpoint")
	}

	return nil
}

// getJWTSecret generates a random secret outside production. Production
// must set JWT_SECRET explicitly.
func getJWTSecret(environment string) string {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return secret
	}
	if environment == EnvProduction {
		panic("JWT_SECRET must be set in production")
	}
	return generateSecureJWTSecret()
}

func generateSecureJWTSecret() string {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("failed to generate JWT secret: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

var (
	defaultSecrets = map[string]bool{
		"secret":               true,
		"jwt-secret":           true,
		"changeme":             true,
		"placeholder":          true,
		"super-secret-key":     true,
		"super-secret-jwt-key": true,
	}
	defaultSecretPrefixes = []string{"your-", "changeme", "example-", "sample-", "super-secret", "projectsync-development-"}
)

// isDefaultSecret reports whether s is a known placeholder secret.
func isDefaultSecret(s string) bool {
	lower := strings.ToLower(s)
	if defaultSecrets[lower] {
		return true
	}
	for _, prefix := range defaultSecretPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Helper functions for environment variable parsing.
func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Second
}
