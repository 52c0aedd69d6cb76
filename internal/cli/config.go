package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultConfigName = ".syncctl.yaml"

// Config is the on-disk CLI configuration.
type Config struct {
	DefaultProfile string             `json:"default_profile" yaml:"default_profile"`
	Profiles       map[string]Profile `json:"profiles" yaml:"profiles"`
}

// Profile points the CLI at one server. Secret lets an operator mint tokens
// for --user; it is optional.
type Profile struct {
	Name      string `json:"name" yaml:"name"`
	ServerURL string `json:"server_url" yaml:"server_url"`
	Token     string `json:"token,omitempty" yaml:"token,omitempty"`
	Secret    string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"`
	ProjectID string `json:"project_id,omitempty" yaml:"project_id,omitempty"`
}

// Validate checks a profile before it is saved.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.ServerURL == "" {
		return fmt.Errorf("server URL is required")
	}
	if p.Token == "" && p.Secret == "" {
		return fmt.Errorf("a token or a JWT secret is required")
	}
	return nil
}

// Masked returns a copy safe to print.
func (p Profile) Masked() Profile {
	if p.Token != "" {
		p.Token = "***masked***"
	}
	if p.Secret != "" {
		p.Secret = "***masked***"
	}
	return p
}

// configFile reads and writes Config at a fixed path.
type configFile struct {
	path string
}

// resolveConfigPath returns the explicit path or ~/.syncctl.yaml.
func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		absPath, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("failed to resolve absolute path for config file: %w", err)
		}
		return absPath, nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, defaultConfigName), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: both UserHomeDir and UserConfigDir failed")
	}
	return filepath.Join(configDir, defaultConfigName), nil
}

func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("invalid config path: path traversal not allowed")
	}
	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("invalid config path: must be absolute path")
	}
	return nil
}

// Load returns an empty config when the file does not exist.
func (f configFile) Load() (*Config, error) {
	config := &Config{Profiles: make(map[string]Profile)}
	if err := validateConfigPath(f.path); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	data, err := os.ReadFile(f.path) //nolint:gosec // Path is validated by validateConfigPath
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Profiles == nil {
		config.Profiles = make(map[string]Profile)
	}
	return config, nil
}

func (f configFile) Save(config *Config) error {
	if err := validateConfigPath(f.path); err != nil {
		return fmt.Errorf("config path validation failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Profile returns the named profile, or the default one when name is empty.
func (f configFile) Profile(name string) (*Profile, error) {
	config, err := f.Load()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = config.DefaultProfile
	}
	if name == "" {
		name = "default"
	}
	profile, exists := config.Profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile '%s' not found", name)
	}
	return &profile, nil
}

// AddProfile stores the profile and makes it the default if it is the first.
func (f configFile) AddProfile(profile Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	config, err := f.Load()
	if err != nil {
		return err
	}
	config.Profiles[profile.Name] = profile
	if config.DefaultProfile == "" {
		config.DefaultProfile = profile.Name
	}
	return f.Save(config)
}

func (f configFile) UseProfile(name string) error {
	config, err := f.Load()
	if err != nil {
		return err
	}
	if _, exists := config.Profiles[name]; !exists {
		return fmt.Errorf("profile '%s' not found", name)
	}
	config.DefaultProfile = name
	return f.Save(config)
}

// RemoveProfile deletes a profile. If it was the default, the first
// remaining profile by name takes over.
func (f configFile) RemoveProfile(name string) error {
	config, err := f.Load()
	if err != nil {
		return err
	}
	if _, exists := config.Profiles[name]; !exists {
		return fmt.Errorf("profile '%s' not found", name)
	}
	delete(config.Profiles, name)

	if config.DefaultProfile == name {
		config.DefaultProfile = ""
		if names := profileNames(config); len(names) > 0 {
			config.DefaultProfile = names[0]
		}
	}
	return f.Save(config)
}

func profileNames(config *Config) []string {
	names := make([]string, 0, len(config.Profiles))
	for name := range config.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
