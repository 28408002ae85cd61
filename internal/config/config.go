// Package config loads the lattice CLI configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "lattice.yaml"

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the CLI configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" json:"log"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Store    StoreConfig    `yaml:"store" json:"store"`
	LLM      LLMConfig      `yaml:"llm" json:"llm"`
	Vector   VectorConfig   `yaml:"vector" json:"vector"`
	Prompts  PromptsConfig  `yaml:"prompts" json:"prompts"`
	HTTPTool HTTPToolConfig `yaml:"http_tool" json:"http_tool"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

type ServerConfig struct {
	Port int `yaml:"port" json:"port"`
}

// StoreConfig selects the manifest store. Redis also enables distributed
// registry locks.
type StoreConfig struct {
	Backend  string `yaml:"backend" json:"backend"`
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// LLMConfig addresses an OpenAI-compatible endpoint. Empty BaseURL and
// Token leave model nodes without an invoker.
type LLMConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	Token   string `yaml:"token" json:"token"`
	Model   string `yaml:"model" json:"model"`
}

// Enabled reports whether a model endpoint is configured.
func (c LLMConfig) Enabled() bool {
	return c.BaseURL != "" || c.Token != ""
}

type VectorConfig struct {
	ChromaURL      string `yaml:"chroma_url" json:"chroma_url"`
	EmbeddingModel string `yaml:"embedding_model" json:"embedding_model"`
}

// Enabled reports whether a vector store is configured.
func (c VectorConfig) Enabled() bool {
	return c.ChromaURL != ""
}

type PromptsConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

type HTTPToolConfig struct {
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Server: ServerConfig{Port: 8080},
		Store: StoreConfig{
			Backend: StoreMemory,
			Addr:    "localhost:6379",
			Prefix:  "lattice:",
		},
		HTTPTool: HTTPToolConfig{
			Timeout:      30 * time.Second,
			MaxBodyBytes: 10 << 20,
		},
	}
}

// Load reads a YAML or JSON file over the defaults. A missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the CLI cannot act on.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
