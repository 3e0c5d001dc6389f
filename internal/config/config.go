// Package config loads the taskband configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is looked up in the vault root.
const ConfigFileName = ".taskband.json"

// Config represents the full taskband configuration
type Config struct {
	Vault VaultConfig `json:"vault"`
	Data  DataConfig  `json:"data"`
	Log   LogConfig   `json:"log"`
	View  ViewConfig  `json:"view"`
}

// VaultConfig locates the note vault
type VaultConfig struct {
	Dir string `json:"dir"`
}

// DataConfig locates the tracker's own documents (month logs, alias
// chains, running snapshot, deleted-set)
type DataConfig struct {
	Dir string `json:"dir"`
}

// LogConfig contains diagnostic logging settings. The TUI owns the
// terminal, so logs go to a file.
type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// ViewConfig contains day-view settings
type ViewConfig struct {
	// WatchDebounceMs is how long to coalesce vault file events before
	// rebuilding the view.
	WatchDebounceMs int `json:"watchDebounceMs"`
	// ShowDone hides completed instances when false.
	ShowDone bool `json:"showDone"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	vaultDir := filepath.Join(homeDir, "taskband")

	return &Config{
		Vault: VaultConfig{
			Dir: vaultDir,
		},
		Data: DataConfig{
			Dir: filepath.Join(vaultDir, ".taskband"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(vaultDir, ".taskband", "taskband.log"),
		},
		View: ViewConfig{
			WatchDebounceMs: 250,
			ShowDone:        true,
		},
	}
}

// LoadConfig loads configuration for a vault with priority:
// 1. CLI flags (applied by the caller on top of the result)
// 2. .taskband.json in the vault root
// 3. Defaults
func LoadConfig(vaultDir string) (*Config, error) {
	path := filepath.Join(vaultDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if vaultDir != "" {
			cfg.Vault.Dir = vaultDir
			cfg.Data.Dir = filepath.Join(vaultDir, ".taskband")
			cfg.Log.File = filepath.Join(cfg.Data.Dir, "taskband.log")
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Vault.Dir = vaultDir
	return MergeWithDefaults(&cfg), nil
}

// SaveConfig writes the configuration to the vault root
func SaveConfig(cfg *Config, vaultDir string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(vaultDir, ConfigFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// MergeWithDefaults fills in missing values with defaults
func MergeWithDefaults(cfg *Config) *Config {
	defaults := DefaultConfig()

	if cfg.Vault.Dir == "" {
		cfg.Vault.Dir = defaults.Vault.Dir
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = filepath.Join(cfg.Vault.Dir, ".taskband")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(cfg.Data.Dir, "taskband.log")
	}
	if cfg.View.WatchDebounceMs == 0 {
		cfg.View.WatchDebounceMs = defaults.View.WatchDebounceMs
	}

	return cfg
}
