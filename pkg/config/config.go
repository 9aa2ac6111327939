/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/docmap/pkg/codec"
)

// Config represents the docmap configuration
type Config struct {
	DataDir string  `yaml:"data_dir"`
	Codec   Codec   `yaml:"codec"`
	Storage Storage `yaml:"storage"`
	Logging Logging `yaml:"logging"`
}

// Codec contains entity mapping defaults
type Codec struct {
	IDGenerator      string `yaml:"id_generator"`
	UseDiscriminator bool   `yaml:"use_discriminator"`
}

// Storage contains document store settings
type Storage struct {
	SyncWrites bool `yaml:"sync_writes"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Codec: Codec{
			IDGenerator:      "ksuid",
			UseDiscriminator: true,
		},
		Storage: Storage{
			SyncWrites: false,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// missing keys keep their defaults
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that every setting has a usable value
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if _, err := c.IDGenerator(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// IDGenerator returns the generator named by codec.id_generator
func (c *Config) IDGenerator() (codec.IDGenerator, error) {
	return codec.NewIDGenerator(c.Codec.IDGenerator)
}

// ProviderBuilder returns a codec provider builder carrying the configured
// id generator and discriminator default. Callers register their types on it.
func (c *Config) ProviderBuilder() (*codec.ProviderBuilder, error) {
	ids, err := c.IDGenerator()
	if err != nil {
		return nil, err
	}
	return codec.NewProviderBuilder().
		IDGenerator(ids).
		UseDiscriminator(c.Codec.UseDiscriminator), nil
}

// LogLevel parses logging.level, defaulting to info when it is empty
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Logging.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Logging.Level))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}
	return level, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./docmap.yaml"
	}

	// For Linux/macOS, use ~/.config/docmap/config.yaml
	configDir := filepath.Join(homeDir, ".config", "docmap")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
