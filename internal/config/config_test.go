package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/surveyloom-cli/internal/ai"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.DefaultProvider != ai.ProviderOpenRouter {
		t.Fatalf("default provider: %q", c.DefaultProvider)
	}
	if c.IDColumn != "#" {
		t.Fatalf("id column: %q", c.IDColumn)
	}
	if len(c.DropColumns) != 1 || c.DropColumns[0] != "Network ID" {
		t.Fatalf("drop columns: %v", c.DropColumns)
	}
	if c.ServerAddr != ":8080" {
		t.Fatalf("server addr: %q", c.ServerAddr)
	}
}

func TestSaveLoadRoundTripWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	in := &Global{
		APIKey:          "sk-file",
		DefaultProvider: ai.ProviderOllama,
		IDColumn:        "Respondent",
		DropColumns:     []string{"Network ID", "Email"},
		MetadataColumns: []string{"Gender"},
		OllamaHost:      "http://localhost:9999",
		ServerAddr:      ":9090",
	}
	if err := Save(in, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
	t.Setenv("SURVEYLOOM_SERVER_ADDR", ":7070")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.APIKey != "sk-file" || c.IDColumn != "Respondent" || c.OllamaHost != "http://localhost:9999" {
		t.Fatalf("file values not loaded: %+v", c)
	}
	if c.ServerAddr != ":7070" {
		t.Fatalf("env should override file, got %q", c.ServerAddr)
	}
	opt := c.LoadOptions()
	if opt.IDColumn != "Respondent" || len(opt.DropColumns) != 2 || len(opt.MetadataColumns) != 1 {
		t.Fatalf("load options: %+v", opt)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestRuntimeConfigPerProvider(t *testing.T) {
	c := &Global{
		APIKey:           "or-key",
		OpenAIAPIKey:     "oa-key",
		OpenAIBaseURL:    "http://proxy/v1",
		HTTPTimeoutSec:   30,
		RetryMaxAttempts: 2,
		RetryBaseDelayMs: 100,
		RetryMaxDelayMs:  800,
		OllamaHost:       "http://127.0.0.1:11434",
		OllamaTimeoutSec: 90,
	}
	or := c.RuntimeConfig(ai.ProviderOpenRouter)
	if or.APIKey != "or-key" || or.HTTPTimeout != 30*time.Second || or.RetryMax != 2 || or.BaseDelay != 100*time.Millisecond {
		t.Fatalf("openrouter: %+v", or)
	}
	oa := c.RuntimeConfig(ai.ProviderOpenAI)
	if oa.APIKey != "oa-key" || oa.BaseURL != "http://proxy/v1" {
		t.Fatalf("openai: %+v", oa)
	}
	ol := c.RuntimeConfig(ai.ProviderOllama)
	if ol.Host != "http://127.0.0.1:11434" || ol.HTTPTimeout != 90*time.Second || ol.APIKey != "" {
		t.Fatalf("ollama: %+v", ol)
	}
}

func TestModelFallsBackToProviderDefault(t *testing.T) {
	c := &Global{}
	if got := c.Model(ai.ProviderOllama); got != ai.DefaultModel(ai.ProviderOllama) {
		t.Fatalf("got %q", got)
	}
	c.DefaultModel = "custom"
	if got := c.Model(ai.ProviderOllama); got != "custom" {
		t.Fatalf("got %q", got)
	}
}
