/*
Package config manages TOML config for typeflow.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/bastiangx/typeflow/internal/utils"
	"github.com/charmbracelet/log"
)

// Auto-trigger preference values.
const (
	TriggerAlways = "always"
	TriggerNone   = "none"
	// TriggerOnly fires on source trigger characters but never on word chars
	TriggerOnly = "trigger"
)

// Config holds the entire config structure
type Config struct {
	Completion CompletionConfig `toml:"completion"`
	Dict       DictConfig       `toml:"dict"`
}

// CompletionConfig has orchestrator related options.
type CompletionConfig struct {
	AutoTrigger             string `toml:"auto_trigger"`
	TriggerAfterInsertEnter bool   `toml:"trigger_after_insert_enter"`
	MaxItems                int    `toml:"max_items"`
	MinPrefix               int    `toml:"min_prefix"`
	CompleteTimeoutMs       int    `toml:"complete_timeout_ms"`
	RequestTimeoutMs        int    `toml:"request_timeout_ms"`
}

// DictConfig holds dictionary source options.
type DictConfig struct {
	DataDir            string `toml:"data_dir"`
	MaxWords           int    `toml:"max_words"`
	ChunkSize          int    `toml:"chunk_size"`
	MinFreqThreshold   int    `toml:"min_frequency_threshold"`
	MinFreqShortPrefix int    `toml:"min_frequency_short_prefix"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "typeflow")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "typeflow")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Completion: CompletionConfig{
			AutoTrigger:             TriggerAlways,
			TriggerAfterInsertEnter: false,
			MaxItems:                64,
			MinPrefix:               1,
			CompleteTimeoutMs:       500,
			RequestTimeoutMs:        1000,
		},
		Dict: DictConfig{
			DataDir:            "data/",
			MaxWords:           50000,
			ChunkSize:          10000,
			MinFreqThreshold:   20,
			MinFreqShortPrefix: 24,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return cfg, nil
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return cfg, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, cfg); err != nil {
		return tryPartialParse(configPath)
	}
	return cfg, nil
}

// tryPartialParse salvages whatever sections still parse from a broken file
func tryPartialParse(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return cfg, nil
	}

	if completionSection, ok := utils.ExtractSection(tempConfig, "completion"); ok {
		extractCompletionConfig(completionSection, &cfg.Completion)
	}
	if dictSection, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		extractDictConfig(dictSection, &cfg.Dict)
	}
	return cfg, nil
}

// extractCompletionConfig extracts orchestrator configuration from a map
func extractCompletionConfig(data map[string]any, completion *CompletionConfig) {
	if val, ok := utils.ExtractString(data, "auto_trigger"); ok {
		completion.AutoTrigger = val
	}
	if val, ok := utils.ExtractBool(data, "trigger_after_insert_enter"); ok {
		completion.TriggerAfterInsertEnter = val
	}
	if val, ok := utils.ExtractInt64(data, "max_items"); ok {
		completion.MaxItems = val
	}
	if val, ok := utils.ExtractInt64(data, "min_prefix"); ok {
		completion.MinPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "complete_timeout_ms"); ok {
		completion.CompleteTimeoutMs = val
	}
	if val, ok := utils.ExtractInt64(data, "request_timeout_ms"); ok {
		completion.RequestTimeoutMs = val
	}
}

// extractDictConfig extracts dictionary configuration from a map
func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.ExtractString(data, "data_dir"); ok {
		dict.DataDir = val
	}
	if val, ok := utils.ExtractInt64(data, "max_words"); ok {
		dict.MaxWords = val
	}
	if val, ok := utils.ExtractInt64(data, "chunk_size"); ok {
		dict.ChunkSize = val
	}
	if val, ok := utils.ExtractInt64(data, "min_frequency_threshold"); ok {
		dict.MinFreqThreshold = val
	}
	if val, ok := utils.ExtractInt64(data, "min_frequency_short_prefix"); ok {
		dict.MinFreqShortPrefix = val
	}
}

// SaveConfig saves into a TOML file
func SaveConfig(cfg *Config, configPath string) error {
	return utils.SaveTOMLFile(cfg, configPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}
