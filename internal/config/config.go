// Package config loads server configuration from tome.toml plus
// TOME_* environment overrides.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	LLM       LLMConfig       `toml:"llm"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Database  DatabaseConfig  `toml:"database"`
	Ingest    IngestConfig    `toml:"ingest"`
	Observer  ObserverConfig  `toml:"observer"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LLMConfig struct {
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	// RPM and TPM enable proactive rate limiting when > 0.
	RPM int `toml:"rpm"`
	TPM int `toml:"tpm"`
}

type EmbeddingConfig struct {
	Model      string `toml:"model"`
	BaseURL    string `toml:"base_url"`
	Dimensions int    `toml:"dimensions"`
	APIKey     string `toml:"api_key"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver      string `toml:"driver"`
	Path        string `toml:"path"`
	PostgresURL string `toml:"postgres_url"`
}

type IngestConfig struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
	Concurrency  int `toml:"concurrency"`
}

type ObserverConfig struct {
	Enabled bool                       `toml:"enabled"`
	Pricing map[string]ObserverPricing `toml:"pricing"`
}

type ObserverPricing struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: ":8000"},
		LLM:       LLMConfig{Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1"},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small", BaseURL: "https://api.openai.com/v1", Dimensions: 1536},
		Database:  DatabaseConfig{Driver: "sqlite", Path: "tome.db"},
		Ingest:    IngestConfig{ChunkSize: 1000, ChunkOverlap: 100, Concurrency: 4},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "tome.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("TOME_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TOME_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("TOME_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("TOME_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("TOME_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("TOME_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("TOME_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TOME_POSTGRES_URL"); v != "" {
		cfg.Database.Driver = "postgres"
		cfg.Database.PostgresURL = v
	}
	if os.Getenv("TOME_OBSERVER_ENABLED") == "true" || os.Getenv("TOME_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	// Fallbacks
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = cfg.LLM.APIKey
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = cfg.LLM.BaseURL
	}

	return cfg
}
