// Package config loads runtime configuration for the hica command from a
// TOML file with environment overrides.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full runtime configuration.
type Config struct {
	Log      Log         `toml:"log"`
	Provider Provider    `toml:"provider"`
	Store    Store       `toml:"store"`
	Agent    Agent       `toml:"agent"`
	MCP      []MCPServer `toml:"mcp"`
}

// Log configures logging.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// Provider configures the LLM backend (OpenAI-compatible).
type Provider struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`
}

// APIKey resolves the API key from the configured environment variable.
func (p Provider) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// Store configures thread snapshot persistence.
type Store struct {
	// Backend is one of file, sqlite, postgres, mongo.
	Backend string `toml:"backend"`
	// Dir is the snapshot directory for the file backend.
	Dir string `toml:"dir"`
	// Path is the database file for the sqlite backend.
	Path string `toml:"path"`
	// DSN is the connection string for the postgres backend.
	DSN string `toml:"dsn"`
	// Mongo settings for the mongo backend.
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Agent configures loop behavior.
type Agent struct {
	SystemPrompt string `toml:"system_prompt"`
	// MaxEventsBeforeSummarization triggers context compaction; 0 disables.
	MaxEventsBeforeSummarization int `toml:"max_events_before_summarization"`
}

// MCPServer describes one MCP server subprocess to attach at startup.
type MCPServer struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Env     []string `toml:"env"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: Log{Level: "info"},
		Provider: Provider{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4.1-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Store: Store{
			Backend:         "file",
			Dir:             "context",
			Path:            "hica.db",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "hica",
			MongoCollection: "threads",
		},
	}
}

// Load reads the TOML file at path, merged over Default(), then applies
// environment overrides. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides settings from HICA_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("HICA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HICA_CONTEXT_DIR"); v != "" {
		c.Store.Dir = v
	}
}
