// Package config loads CodeSleuth's configuration: the closed set of
// recognized options from a YAML file, with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the closed set of recognized options named in the
// external interfaces contract.
type Config struct {
	StoragePath      string `yaml:"storage_path"`
	VectorDim        int    `yaml:"vector_dim"`
	MaxTokens        int    `yaml:"max_tokens"`
	CharsPerToken    int    `yaml:"chars_per_token"`
	EmbedBatch       int    `yaml:"embed_batch"`
	ProgressInterval int    `yaml:"progress_interval"`
	MaxRetries       int    `yaml:"max_retries"`
	BaseDelayMS      int    `yaml:"base_delay_ms"`
	Endpoint         string `yaml:"endpoint"`
	APIKey           string `yaml:"api_key"`
	EmbedModel       string `yaml:"embed_model"`
	ChatModel        string `yaml:"chat_model"`
	VectorBackendHost string `yaml:"vector_backend_host"`
	VectorBackendPort int    `yaml:"vector_backend_port"`
}

// DefaultConfig returns the defaults named or implied by the spec
// (EMBED_BATCH≈100 upper bound on submission size, but the Indexer's own
// slice size is 50 per §4.6; PROGRESS_INTERVAL=10; MAX_RETRIES=3).
func DefaultConfig() *Config {
	return &Config{
		StoragePath:       "~/.codesleuth/repos",
		VectorDim:         1536,
		MaxTokens:         6000,
		CharsPerToken:     3,
		EmbedBatch:        50,
		ProgressInterval:  10,
		MaxRetries:        3,
		BaseDelayMS:       500,
		Endpoint:          "https://api.openai.com/v1/embeddings",
		EmbedModel:        "text-embedding-3-small",
		ChatModel:         "gpt-4o-mini",
		VectorBackendHost: "localhost",
		VectorBackendPort: 6334,
	}
}

// Load returns defaults, overlaid with a config file (if one resolves)
// and then with environment variable overrides.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if path := configPath(); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.StoragePath = expandPath(cfg.StoragePath)

	return cfg, nil
}

func configPath() string {
	if path := os.Getenv("CODESLEUTH_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat("codesleuth.yaml"); err == nil {
		return "codesleuth.yaml"
	}
	home, err := os.UserHomeDir()
	if err == nil {
		path := filepath.Join(home, ".codesleuth", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CODESLEUTH_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("CODESLEUTH_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("CODESLEUTH_EMBED_MODEL"); v != "" {
		cfg.EmbedModel = v
	}
	if v := os.Getenv("CODESLEUTH_CHAT_MODEL"); v != "" {
		cfg.ChatModel = v
	}
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
