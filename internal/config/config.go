package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"aignite/internal/vision"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		URL            string `yaml:"url"`
		MigrationsPath string `yaml:"migrations_path"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret     string `yaml:"jwt_secret"`
		TokenTTLHours int    `yaml:"token_ttl_hours"`
	} `yaml:"auth"`
	Scanner struct {
		Headless       bool  `yaml:"headless"`
		TimeoutSeconds int64 `yaml:"timeout_seconds"`
	} `yaml:"scanner"`
	Vision struct {
		Providers   []vision.ProviderConfig `yaml:"providers"`
		MaxFailures int                     `yaml:"max_failures"`
	} `yaml:"vision"`
	Media struct {
		MaxImageSizeMB int64 `yaml:"max_image_size_mb"`
		MaxVideoSizeMB int64 `yaml:"max_video_size_mb"`
	} `yaml:"media"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":3000"
	}
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = "file://migrations"
	}
	if c.Auth.TokenTTLHours == 0 {
		c.Auth.TokenTTLHours = 24
	}
	if c.Scanner.TimeoutSeconds == 0 {
		c.Scanner.TimeoutSeconds = 45
	}
	if c.Media.MaxImageSizeMB == 0 {
		c.Media.MaxImageSizeMB = 10
	}
	if c.Media.MaxVideoSizeMB == 0 {
		c.Media.MaxVideoSizeMB = 50
	}
}

// TokenTTL returns the configured token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

// ScanTimeout returns the per-scan browser deadline.
func (c *Config) ScanTimeout() time.Duration {
	return time.Duration(c.Scanner.TimeoutSeconds) * time.Second
}
