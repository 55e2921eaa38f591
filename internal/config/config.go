package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the bugscope.yaml configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Model   ModelConfig   `yaml:"model"`
	Logging LoggingConfig `yaml:"logging"`
	Ignore  []string      `yaml:"ignore"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	MaxUploadBytes      int64  `yaml:"max_upload_bytes"`
}

// Addr returns the host:port the HTTP server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig controls the on-disk project store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ModelConfig selects and tunes the language model backend.
// API keys are taken from the environment, never from the file.
type ModelConfig struct {
	Provider       string `yaml:"provider"` // claude, openai or ollama
	Model          string `yaml:"model"`    // empty selects the provider default
	Host           string `yaml:"host"`     // ollama only
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LoggingConfig controls level, format and destination of log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr or a file path
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 120,
			MaxUploadBytes:      32 << 20,
		},
		Store: StoreConfig{
			Path: "bugscope.db",
		},
		Model: ModelConfig{
			Provider:       "claude",
			Host:           "http://localhost:11434",
			TimeoutSeconds: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Ignore: []string{
			"vendor/**",
			"node_modules/**",
			".git/**",
			"dist/**",
			"build/**",
			"**/*.min.js",
			".bugscope/**",
		},
	}
}

// Load reads a configuration file from the given path.
// Missing fields are filled with defaults, and a .env file in the working
// directory is loaded into the environment when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// A file may zero fields the server cannot run without; restore those.
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "bugscope.db"
	}
	if cfg.Model.TimeoutSeconds == 0 {
		cfg.Model.TimeoutSeconds = 60
	}

	return cfg, nil
}

// LoadOrDefault loads the config at path when the file exists, and falls back
// to defaults (plus .env loading) when it does not or when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		_ = godotenv.Load()
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = godotenv.Load()
		return Default(), nil
	}
	return Load(path)
}
