// Package config provides configuration loading and structs for the Meibo server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Remote  RemoteConfig  `yaml:"remote"`
	Search  SearchConfig  `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the entry database and text index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// RemoteConfig holds settings for the remote directory service transport.
type RemoteConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SearchConfig holds the orchestration heuristics. Every threshold that
// drives the escalation decision or the secondary enhancement lives here so
// it can be tuned and tested independently of control flow.
type SearchConfig struct {
	// LocalLimit caps the local store's bounded search.
	LocalLimit int `yaml:"local_limit"`
	// MinLocalResults is the coverage threshold: fewer local results than
	// this escalates to the remote service.
	MinLocalResults int `yaml:"min_local_results"`
	// StrongScore is the quality threshold: if no local result scores at
	// least this and the query is long enough, escalate.
	StrongScore float64 `yaml:"strong_score"`
	// MinQueryLength guards the quality threshold.
	MinQueryLength int `yaml:"min_query_length"`
	// RoleKeywords and DepartmentKeywords trigger escalation regardless of
	// local abundance.
	RoleKeywords       []string `yaml:"role_keywords"`
	DepartmentKeywords []string `yaml:"department_keywords"`
	// MaxFragments bounds the fan-out of secondary membership lookups per
	// bio-match candidate.
	MaxFragments int `yaml:"max_fragments"`
	// MinFragmentLength is the minimum name token length to use as a
	// membership search fragment.
	MinFragmentLength int `yaml:"min_fragment_length"`
	// EnhanceDelayMs is the fixed delay between sequential membership
	// lookup attempts.
	EnhanceDelayMs int `yaml:"enhance_delay_ms"`
	// EnhanceConfidence is recorded with a shared-connection upgrade.
	EnhanceConfidence float64 `yaml:"enhance_confidence"`
}

// Load reads and parses the config file at path, expands storage paths, and
// applies defaults. Returns an error if the file cannot be read or parsed.
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
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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
