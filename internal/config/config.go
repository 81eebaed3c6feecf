// Package config provides configuration loading and structs for the Montero portal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug        bool               `yaml:"debug"`
	Server       ServerConfig       `yaml:"server"`
	Storage      StorageConfig      `yaml:"storage"`
	Import       ImportConfig       `yaml:"import"`
	Portal       PortalConfig       `yaml:"portal"`
	Autocomplete AutocompleteConfig `yaml:"autocomplete"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the database and the directory index.
type StorageConfig struct {
	DatabasePath       string `yaml:"database_path"`
	DirectoryIndexPath string `yaml:"directory_index_path"`
}

// ImportConfig holds the workbook drop folders.
type ImportConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
}

// PortalConfig says where clients reach the portal API.
type PortalConfig struct {
	BaseURL string `yaml:"base_url"`
}

// AutocompleteConfig holds engine settings shared by clients.
type AutocompleteConfig struct {
	Endpoint     string `yaml:"endpoint"`
	MinDigits    int    `yaml:"min_digits"`
	DebounceMS   int    `yaml:"debounce_ms"`
	MessageTTLMS int    `yaml:"message_ttl_ms"`
	AutoLock     *bool  `yaml:"auto_lock"`
	ShowMessages *bool  `yaml:"show_messages"`
}

// AutoLockOrDefault returns whether filled fields are locked; defaults to true when unset.
func (a *AutocompleteConfig) AutoLockOrDefault() bool {
	if a.AutoLock != nil {
		return *a.AutoLock
	}
	return true
}

// ShowMessagesOrDefault returns whether feedback is shown; defaults to true when unset.
func (a *AutocompleteConfig) ShowMessagesOrDefault() bool {
	if a.ShowMessages != nil {
		return *a.ShowMessages
	}
	return true
}

// Debounce returns the blur debounce interval.
func (a *AutocompleteConfig) Debounce() time.Duration {
	return time.Duration(a.DebounceMS) * time.Millisecond
}

// MessageTTL returns how long success messages stay visible.
func (a *AutocompleteConfig) MessageTTL() time.Duration {
	return time.Duration(a.MessageTTLMS) * time.Millisecond
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.DirectoryIndexPath = expandPath(cfg.Storage.DirectoryIndexPath, configDir)
	for i := range cfg.Import.Directories {
		cfg.Import.Directories[i] = expandPath(cfg.Import.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used by "montero init".
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
