package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Log.Level != "info" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
	if cfg.Store.Backend != "file" || cfg.Store.Dir != "context" {
		t.Fatalf("store defaults = %+v", cfg.Store)
	}
	if cfg.Provider.APIKeyEnv != "OPENAI_API_KEY" {
		t.Fatalf("provider defaults = %+v", cfg.Provider)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hica.toml")
	doc := `
[log]
level = "debug"

[provider]
base_url = "http://localhost:11434/v1"
model = "llama3"

[store]
backend = "sqlite"
path = "threads.db"

[agent]
system_prompt = "You are a test agent."
max_events_before_summarization = 20

[[mcp]]
command = "mcp-filesystem"
args = ["--root", "/tmp"]
env = ["DEBUG=1"]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
	if cfg.Provider.BaseURL != "http://localhost:11434/v1" || cfg.Provider.Model != "llama3" {
		t.Fatalf("provider = %+v", cfg.Provider)
	}
	// Unset keys keep their defaults.
	if cfg.Provider.APIKeyEnv != "OPENAI_API_KEY" {
		t.Fatalf("default lost: %+v", cfg.Provider)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path != "threads.db" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Agent.MaxEventsBeforeSummarization != 20 {
		t.Fatalf("agent = %+v", cfg.Agent)
	}
	if len(cfg.MCP) != 1 || cfg.MCP[0].Command != "mcp-filesystem" || len(cfg.MCP[0].Args) != 2 {
		t.Fatalf("mcp = %+v", cfg.MCP)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Store.Backend != "file" {
		t.Fatalf("empty path must yield defaults, got %+v", cfg.Store)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HICA_LOG_LEVEL", "warn")
	t.Setenv("HICA_CONTEXT_DIR", "/var/lib/hica")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
	if cfg.Store.Dir != "/var/lib/hica" {
		t.Fatalf("store dir = %q", cfg.Store.Dir)
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv("TEST_HICA_KEY", "secret")
	p := Provider{APIKeyEnv: "TEST_HICA_KEY"}
	if p.APIKey() != "secret" {
		t.Fatalf("APIKey() = %q", p.APIKey())
	}
	if (Provider{}).APIKey() != "" {
		t.Fatal("unset APIKeyEnv must yield empty key")
	}
}
