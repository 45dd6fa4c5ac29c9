package ml

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BaseConfig provides common configuration functionality
type BaseConfig struct {
	ConfigPath string `json:"-" yaml:"-"`
}

// LoadConfig loads configuration from a file, falling back to environment variables
func (c *BaseConfig) LoadConfig(configPath string, envPrefix string, config interface{}) error {
	// Try to load from file first
	if configPath != "" {
		if err := readConfigFile(configPath, config); err == nil {
			slog.Debug("loaded model configuration", "path", configPath)
			return nil
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", configPath, err)
		}
	}

	// Try default config files in config directory
	for _, ext := range []string{"json", "yaml"} {
		defaultPath := filepath.Join("config", fmt.Sprintf("%s.%s", envPrefix, ext))
		if err := readConfigFile(defaultPath, config); err == nil {
			slog.Debug("loaded model configuration from default file", "path", defaultPath)
			return nil
		}
	}

	// Fall back to environment variables
	slog.Debug("using environment variables for model configuration", "model", envPrefix)
	return nil
}

func readConfigFile(path string, config interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return json.Unmarshal(data, config)
	}
}

func envOr(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}
