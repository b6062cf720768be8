// Package config provides application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// AppConfig holds all application configuration
type AppConfig struct {
	NasaAPIKey    string `yaml:"nasa_api_key"`
	NasaAPIURL    string `yaml:"nasa_api_url"`
	NasaImagesURL string `yaml:"nasa_images_url"`
	DatabaseURL   string `yaml:"database_url"`
	HTTPAddr      string `yaml:"http_addr"`
	LogLevel      string `yaml:"log_level"`
	HistoryLimit  int    `yaml:"history_limit"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *AppConfig {
	return &AppConfig{
		NasaAPIKey:    "DEMO_KEY",
		NasaAPIURL:    "https://api.nasa.gov",
		NasaImagesURL: "https://images-api.nasa.gov",
		HTTPAddr:      ":3000",
		LogLevel:      "info",
		HistoryLimit:  20,
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *AppConfig {
	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg
}

// Load reads a YAML file, then applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *AppConfig) applyEnv() {
	c.NasaAPIKey = getEnv("NASA_API_KEY", c.NasaAPIKey)
	c.NasaAPIURL = getEnv("NASA_API_URL", c.NasaAPIURL)
	c.NasaImagesURL = getEnv("NASA_IMAGES_URL", c.NasaImagesURL)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.HistoryLimit = getEnvInt("HISTORY_LIMIT", c.HistoryLimit)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
