package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/surveyloom-cli/internal/ai"
	"github.com/KaramelBytes/surveyloom-cli/internal/dataset"
)

const (
	envPrefix = "SURVEYLOOM"
	dirName   = ".surveyloom"
)

// Global configuration structure.
type Global struct {
	// LLM providers
	APIKey             string  `mapstructure:"api_key" yaml:"api_key"`
	OpenAIAPIKey       string  `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	OpenAIBaseURL      string  `mapstructure:"openai_base_url" yaml:"openai_base_url"`
	DefaultProvider    string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel       string  `mapstructure:"default_model" yaml:"default_model"`
	MaxTokens          int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature        float64 `mapstructure:"temperature" yaml:"temperature"`
	SummaryPromptLimit int     `mapstructure:"summary_prompt_limit" yaml:"summary_prompt_limit"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// Survey loading
	IDColumn        string   `mapstructure:"id_column" yaml:"id_column"`
	DropColumns     []string `mapstructure:"drop_columns" yaml:"drop_columns"`
	MetadataColumns []string `mapstructure:"metadata_columns" yaml:"metadata_columns"`

	// HTTP service
	ServerAddr   string `mapstructure:"server_addr" yaml:"server_addr"`
	ServerAPIKey string `mapstructure:"server_api_key" yaml:"server_api_key"`
}

// Dir returns ~/.surveyloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.surveyloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flags are applied by callers.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("api_key", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("default_provider", ai.ProviderOpenRouter)
	v.SetDefault("default_model", "")
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("temperature", 0.3)
	v.SetDefault("summary_prompt_limit", 12000)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 120)
	v.SetDefault("id_column", dataset.DefaultIDColumn)
	v.SetDefault("drop_columns", dataset.DefaultLoadOptions().DropColumns)
	v.SetDefault("metadata_columns", []string{})
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("server_api_key", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read, unless a file was named explicitly
	if err := v.ReadInConfig(); err != nil && cfgFile != "" {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// LoadOptions maps the survey settings onto dataset load options.
func (c *Global) LoadOptions() dataset.LoadOptions {
	opt := dataset.DefaultLoadOptions()
	if c.IDColumn != "" {
		opt.IDColumn = c.IDColumn
	}
	if c.DropColumns != nil {
		opt.DropColumns = c.DropColumns
	}
	opt.MetadataColumns = c.MetadataColumns
	return opt
}

// Model returns the configured model or the provider default.
func (c *Global) Model(provider string) string {
	if c.DefaultModel != "" {
		return c.DefaultModel
	}
	return ai.DefaultModel(provider)
}

// RuntimeConfig builds the ai runtime settings for provider.
func (c *Global) RuntimeConfig(provider string) ai.RuntimeConfig {
	rc := ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
	}
	switch provider {
	case ai.ProviderOpenAI:
		rc.APIKey = c.OpenAIAPIKey
		rc.BaseURL = c.OpenAIBaseURL
	case ai.ProviderOllama:
		rc.Host = c.OllamaHost
		rc.HTTPTimeout = time.Duration(c.OllamaTimeoutSec) * time.Second
	default:
		rc.APIKey = c.APIKey
	}
	return rc
}
