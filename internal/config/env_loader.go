package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// EnvLoader loads KEY=VALUE pairs from .env files into the process
// environment without overriding variables that are already set.
type EnvLoader struct {
	baseDir string
	logger  *slog.Logger
	loaded  map[string]string
}

func NewEnvLoader(baseDir string, logger *slog.Logger) *EnvLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnvLoader{baseDir: baseDir, logger: logger, loaded: make(map[string]string)}
}

// LoadEnvFiles reads .env.defaults, .env.<environment>, .env.local and .env
// in that order; later files win. Missing files are skipped.
func (l *EnvLoader) LoadEnvFiles(environment string) error {
	files := []string{".env.defaults", ".env." + environment, ".env.local", ".env"}
	for _, name := range files {
		path := filepath.Join(l.baseDir, name)
		if err := l.loadFile(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	for key, value := range l.loaded {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

func (l *EnvLoader) loadFile(path string) error {
	file, err := os.Open(path) // #nosec G304 -- fixed names under baseDir
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			l.logger.Warn("Skipping malformed env line", "file", path, "line", lineNum)
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		l.loaded[strings.TrimSpace(key)] = os.ExpandEnv(value)
	}
	return scanner.Err()
}

// Loaded returns a copy of the variables read from files.
func (l *EnvLoader) Loaded() map[string]string {
	out := make(map[string]string, len(l.loaded))
	for k, v := range l.loaded {
		out[k] = v
	}
	return out
}

// AutoLoadEnv loads env files for the environment named by ENVIRONMENT.
func AutoLoadEnv(baseDir string, logger *slog.Logger) error {
	return NewEnvLoader(baseDir, logger).LoadEnvFiles(getEnvString("ENVIRONMENT", EnvDevelopment))
}
