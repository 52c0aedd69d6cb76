package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJWTSecret_Production_RequiresEnvVar(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic when JWT_SECRET is not set in production")
		}
	}()

	getJWTSecret(EnvProduction)
}

func TestGetJWTSecret_Development_GeneratesSecure(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	secret := getJWTSecret(EnvDevelopment)
	if len(secret) < 32 {
		t.Errorf("Generated secret too short: %d characters", len(secret))
	}
	if isDefaultSecret(secret) {
		t.Error("Generated secret should not match any default secret")
	}
	if secret == getJWTSecret(EnvDevelopment) {
		t.Error("Generated secrets should be unique")
	}
}

func TestIsDefaultSecret(t *testing.T) {
	tests := []struct {
		secret   string
		expected bool
	}{
		{"projectsync-development-jwt-secret-key-32chars-minimum", true},
		{"secret", true},
		{"jwt-secret", true},
		{"your-super-secret-jwt-key-with-at-least-32-characters", true},
		{"super-secret", true},
		{"super-secret-jwt-key", true},
		{"changeme123", true},
		{"placeholder", true},
		{"example-key", true},
		{"sample-secret", true},
		{"random-secure-secret-that-is-not-default", false},
		{"", false},
		{"actual-secure-random-key-with-32-chars-or-more", false},
	}

	for _, test := range tests {
		if result := isDefaultSecret(test.secret); result != test.expected {
			t.Errorf("isDefaultSecret(%q) = %v, expected %v", test.secret, result, test.expected)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *AppConfig {
		return &AppConfig{
			serverPort:  "8080",
			environment: EnvProduction,
			jwtSecret:   "actual-secure-random-key-with-32-chars-or-more",
			cachePath:   "cache.db",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"default secret in production", func(c *AppConfig) {
			c.jwtSecret = "your-super-secret-jwt-key-with-at-least-32-characters"
		}, "default JWT secrets"},
		{"short secret", func(c *AppConfig) { c.jwtSecret = "short" }, "at least 32"},
		{"unknown environment", func(c *AppConfig) { c.environment = "qa" }, "environment"},
		{"empty port", func(c *AppConfig) { c.serverPort = "" }, "port"},
		{"no cache path", func(c *AppConfig) { c.cachePath = "" }, "cache path"},
		{"s3 endpoint without keys", func(c *AppConfig) {
			c.s3 = S3Config{Bucket: "files", Endpoint: "http://minio:9000"}
		}, "S3 access key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
  log_level: debug
storage:
  cache_path: /var/lib/projectsync/cache.db
  s3:
    bucket: attachments
auth:
  jwt_secret: file-secret-that-is-definitely-long-enough
  jwt_expiration: 2h
sync:
  schedule: "@every 1m"
  projects: [p1, p2]
metrics:
  enabled: false
`), 0o600))

	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("SYNC_USERS", "u1, u2,,")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.GetServerPort(), "env wins over file")
	assert.Equal(t, "debug", cfg.GetLogLevel())
	assert.Equal(t, "/var/lib/projectsync/cache.db", cfg.GetCachePath())
	assert.Equal(t, "attachments", cfg.GetS3().Bucket)
	assert.Equal(t, "us-east-1", cfg.GetS3().Region)
	assert.Equal(t, "file-secret-that-is-definitely-long-enough", cfg.GetJWTSecret())
	assert.Equal(t, 2*time.Hour, cfg.GetJWTExpiration())
	assert.Equal(t, "@every 1m", cfg.GetSyncSchedule())
	assert.Equal(t, []string{"p1", "p2"}, cfg.GetSyncProjects())
	assert.Equal(t, []string{"u1", "u2"}, cfg.GetSyncUsers())
	assert.False(t, cfg.MetricsEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("ENVIRONMENT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.GetServerPort())
	assert.Equal(t, EnvDevelopment, cfg.GetEnvironment())
	assert.Equal(t, 15*time.Second, cfg.GetReadTimeout())
	assert.True(t, cfg.MetricsEnabled())
	assert.Empty(t, cfg.GetRedisURL())

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unclosed"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestEnvLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.defaults"), []byte("PS_TEST_A=default\nPS_TEST_B=default\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(strings.Join([]string{
		"# comment",
		"PS_TEST_B=\"from dot env\"",
		"export PS_TEST_C='quoted'",
		"not a pair",
		"PS_TEST_PRESET=file",
	}, "\n")), 0o600))

	t.Setenv("PS_TEST_PRESET", "process")
	for _, key := range []string{"PS_TEST_A", "PS_TEST_B", "PS_TEST_C"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	loader := NewEnvLoader(dir, nil)
	require.NoError(t, loader.LoadEnvFiles(EnvDevelopment))

	assert.Equal(t, "default", os.Getenv("PS_TEST_A"))
	assert.Equal(t, "from dot env", os.Getenv("PS_TEST_B"))
	assert.Equal(t, "quoted", os.Getenv("PS_TEST_C"))
	assert.Equal(t, "process", os.Getenv("PS_TEST_PRESET"), "existing variables are kept")
	assert.Len(t, loader.Loaded(), 4)
}
