// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Meter   MeterConfig   `toml:"meter"`
	History HistoryConfig `toml:"history"`
}

// MeterConfig maps meter view settings. Unset keys stay nil so flags keep
// their defaults.
type MeterConfig struct {
	BackendURL  *string `toml:"backend-url"`
	Tab         *string `toml:"tab"`
	ShieldTab   *string `toml:"shield-tab"`
	Focus       *string `toml:"focus"`
	Tables      *string `toml:"tables"`
	ChartHeight *int    `toml:"chart-height"`
}

// HistoryConfig maps encounter history settings.
type HistoryConfig struct {
	DB       *string `toml:"db"`
	AutoSave *bool   `toml:"auto-save"`
	Last     *int    `toml:"last"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
