package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Media    MediaConfig    `json:"media" yaml:"media"`
	Backend  BackendConfig  `json:"backend" yaml:"backend"`
	ML       MLConfig       `json:"ml" yaml:"ml"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

type ServerConfig struct {
	Port      string `json:"port" yaml:"port"`
	StaticDir string `json:"static_dir" yaml:"static_dir"`
	Debug     bool   `json:"debug" yaml:"debug"`
}

type DatabaseConfig struct {
	Driver string `json:"driver" yaml:"driver"` // "sqlite" or "postgres"
	Path   string `json:"path" yaml:"path"`     // sqlite file
	DSN    string `json:"dsn" yaml:"dsn"`       // postgres connection string
}

// MediaConfig points at the media host used as the intermediate image store.
type MediaConfig struct {
	UploadURL      string `json:"upload_url" yaml:"upload_url"`
	UploadPreset   string `json:"upload_preset" yaml:"upload_preset"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// BackendConfig points at the plant classification and garden API.
type BackendConfig struct {
	BaseURL        string `json:"base_url" yaml:"base_url"`
	IdentifyPath   string `json:"identify_path" yaml:"identify_path"`
	HealthPath     string `json:"health_path" yaml:"health_path"`
	GardenAddPath  string `json:"garden_add_path" yaml:"garden_add_path"`
	GardenListPath string `json:"garden_list_path" yaml:"garden_list_path"`
	CarePath       string `json:"care_path" yaml:"care_path"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

type MLConfig struct {
	Type       string `json:"type" yaml:"type"`               // "remote", "google" or "openai"
	ConfigPath string `json:"config_path" yaml:"config_path"` // per-model settings file
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// Timeout returns the media host request timeout.
func (c MediaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the backend request timeout.
func (c BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Endpoint joins the base URL with one of the configured paths.
func (c BackendConfig) Endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// LoadConfig loads configuration from a JSON or YAML file, then applies
// environment overrides. Variables from a .env file in the working
// directory are loaded first. A missing file is not an error as long as the
// environment supplies the required values. Remote endpoints are checked
// by RequireBackend and RequireMedia, so commands that only touch the local
// database run without them.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var config Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := unmarshal(configPath, data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(&config)
	applyDefaults(&config)

	if config.Database.Driver != "sqlite" && config.Database.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s", config.Database.Driver)
	}
	if config.Database.Driver == "postgres" && config.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required for the postgres driver")
	}

	return &config, nil
}

// RequireBackend reports an error when the backend base URL is unset.
func (c *Config) RequireBackend() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url is not set in config file or PLANTCARE_BACKEND_URL")
	}
	return nil
}

// RequireMedia reports an error when the media upload URL is unset.
func (c *Config) RequireMedia() error {
	if c.Media.UploadURL == "" {
		return fmt.Errorf("media upload_url is not set in config file or PLANTCARE_UPLOAD_URL")
	}
	return nil
}

func unmarshal(path string, data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return json.Unmarshal(data, v)
	}
}

func applyEnv(c *Config) {
	setFromEnv(&c.Backend.BaseURL, "PLANTCARE_BACKEND_URL")
	setFromEnv(&c.Media.UploadURL, "PLANTCARE_UPLOAD_URL")
	setFromEnv(&c.Media.UploadPreset, "PLANTCARE_UPLOAD_PRESET")
	setFromEnv(&c.Database.Driver, "PLANTCARE_DB_DRIVER")
	setFromEnv(&c.Database.Path, "PLANTCARE_DB_PATH")
	setFromEnv(&c.Database.DSN, "PLANTCARE_DB_DSN")
	setFromEnv(&c.Server.Port, "PLANTCARE_PORT")
	setFromEnv(&c.ML.Type, "PLANTCARE_ML_TYPE")
	setFromEnv(&c.Log.Level, "PLANTCARE_LOG_LEVEL")
	if v := os.Getenv("PLANTCARE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Server.Debug = b
		}
	}
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyDefaults(c *Config) {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = "./static"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "plantcare.db"
	}
	if c.Media.UploadPreset == "" {
		c.Media.UploadPreset = "ml_default"
	}
	if c.Backend.IdentifyPath == "" {
		c.Backend.IdentifyPath = "/upload"
	}
	if c.Backend.HealthPath == "" {
		c.Backend.HealthPath = "/health"
	}
	if c.Backend.GardenAddPath == "" {
		c.Backend.GardenAddPath = "/plant"
	}
	if c.Backend.GardenListPath == "" {
		c.Backend.GardenListPath = "/plants"
	}
	if c.Backend.CarePath == "" {
		c.Backend.CarePath = "/getreq"
	}
	if c.ML.Type == "" {
		c.ML.Type = "remote"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// GetConfigPath returns the path to the configuration file
func GetConfigPath() string {
	// First try environment variable
	if path := os.Getenv("PLANTCARE_CONFIG"); path != "" {
		return path
	}

	// Then try config directory
	configDir := "config"
	if _, err := os.Stat(configDir); err == nil {
		for _, name := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(filepath.Join(configDir, name)); err == nil {
				return filepath.Join(configDir, name)
			}
		}
		return filepath.Join(configDir, "config.json")
	}

	// Finally, try current directory
	return "config.json"
}
