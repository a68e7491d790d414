// Package config loads gateway configuration from file, environment, and
// defaults, in ascending precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"warden/internal/guardrails"
	"warden/internal/observability"
)

// GuardrailsConfig configures the risk scoring and gating engine.
type GuardrailsConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	TopLogProbs int    `yaml:"top_logprobs" mapstructure:"top_logprobs"`
	CacheSize   int    `yaml:"cache_size" mapstructure:"cache_size"`

	// Structured asks the classifier for JSON verdicts instead of
	// logprob-scored labels, for guardrail models without logprob support.
	Structured bool `yaml:"structured" mapstructure:"structured"`

	// CategoriesFile points to a standalone risk catalog. When set it
	// overrides the inline category list.
	CategoriesFile string                    `yaml:"categories_file" mapstructure:"categories_file"`
	Categories     []guardrails.RiskCategory `yaml:"categories" mapstructure:"categories"`
}

// SummarizerConfig configures context summarization.
type SummarizerConfig struct {
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	MinChars    int    `yaml:"min_chars" mapstructure:"min_chars"`
}

// LLMConfig configures the shared OpenAI-compatible endpoint.
type LLMConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// Config is the process-wide configuration. Read-only after Load.
type Config struct {
	AgentName  string                        `yaml:"agent_name" mapstructure:"agent_name"`
	LogLevel   string                        `yaml:"log_level" mapstructure:"log_level"`
	LogFormat  string                        `yaml:"log_format" mapstructure:"log_format"`
	LLM        LLMConfig                     `yaml:"llm" mapstructure:"llm"`
	Guardrails GuardrailsConfig              `yaml:"guardrails" mapstructure:"guardrails"`
	Summarizer SummarizerConfig              `yaml:"summarizer" mapstructure:"summarizer"`
	Metrics    observability.MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Tracing    observability.TracingConfig   `yaml:"tracing" mapstructure:"tracing"`
}

// Load reads configuration. An empty path searches for warden.yaml in the
// working directory and $HOME. Environment variables use the WARDEN_ prefix
// with underscores, e.g. WARDEN_GUARDRAILS_ENABLED.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("warden")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Guardrails.CategoriesFile != "" {
		categories, err := guardrails.LoadCategories(cfg.Guardrails.CategoriesFile)
		if err != nil {
			return nil, err
		}
		cfg.Guardrails.Categories = categories
	}
	if len(cfg.Guardrails.Categories) == 0 {
		cfg.Guardrails.Categories = guardrails.DefaultCategories()
	}
	for i, category := range cfg.Guardrails.Categories {
		if category.Threshold < 0 || category.Threshold > 1 {
			return nil, fmt.Errorf("category %q: threshold %v outside [0,1]",
				category.Name, category.Threshold)
		}
		if category.Name == "" {
			return nil, fmt.Errorf("category at index %d has no name", i)
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("agent_name", "warden")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("llm.base_url", "http://localhost:8000/v1")
	v.SetDefault("guardrails.enabled", true)
	v.SetDefault("guardrails.model", "granite-guardian-3.3-8b")
	v.SetDefault("guardrails.timeout_seconds", 30)
	v.SetDefault("guardrails.top_logprobs", 5)
	v.SetDefault("guardrails.cache_size", 0)
	v.SetDefault("guardrails.structured", false)
	v.SetDefault("summarizer.model", "gpt-oss-20b")
	v.SetDefault("summarizer.timeout_seconds", 30)
	v.SetDefault("summarizer.min_chars", 2000)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.prometheus_port", 9464)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.service_name", "warden")
}
