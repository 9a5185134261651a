// Package config provides configuration helpers and config file parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the configuration file.
type FileConfig struct {
	Gesture GestureConfig `toml:"gesture" yaml:"gesture"`
	Log     LogConfig     `toml:"log" yaml:"log"`
}

// GestureConfig maps capture and scoring settings.
type GestureConfig struct {
	Window          *float64 `toml:"window" yaml:"window"`
	MicroMovement   *float64 `toml:"micro-movement" yaml:"micro-movement"`
	AcceptThreshold *float64 `toml:"accept-threshold" yaml:"accept-threshold"`
	PositionWeight  *float64 `toml:"position-weight" yaml:"position-weight"`
	TimeWeight      *float64 `toml:"time-weight" yaml:"time-weight"`
	SequenceWeight  *float64 `toml:"sequence-weight" yaml:"sequence-weight"`
	CellAspect      *float64 `toml:"cell-aspect" yaml:"cell-aspect"`
	FrameRate       *int     `toml:"frame-rate" yaml:"frame-rate"`
	Reference       *string  `toml:"reference" yaml:"reference"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level" yaml:"level"`
	Format *string `toml:"format" yaml:"format"`
	File   *string `toml:"file" yaml:"file"`
}

// LoadConfig reads the config from the given path. Missing file is not an error.
// Files ending in .yaml or .yml are decoded as YAML, everything else as TOML.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	return cfg, nil
}
