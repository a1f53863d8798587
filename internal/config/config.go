// Package config loads configuration from file, environment, and defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/everstacklabs/modelscout/internal/cache"
)

// Config holds all configuration for modelscout.
type Config struct {
	CacheDir    string       `mapstructure:"cache_dir"`
	CacheTTL    string       `mapstructure:"cache_ttl"`
	NoCache     bool         `mapstructure:"no_cache"`
	Sources     []string     `mapstructure:"sources"`
	MaxPages    int          `mapstructure:"max_pages"`
	MaxModels   int          `mapstructure:"max_models"`
	LogLevel    string       `mapstructure:"log_level"`
	OpenRouter  SourceConfig `mapstructure:"openrouter"`
	Replicate   SourceConfig `mapstructure:"replicate"`
	HuggingFace SourceConfig `mapstructure:"huggingface"`
	Enrich      EnrichConfig `mapstructure:"enrich"`
	LLM         LLMConfig    `mapstructure:"llm"`
}

// SourceConfig holds per-source credentials and endpoints.
type SourceConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// EnrichConfig tunes the price-enrichment subsystem.
type EnrichConfig struct {
	TTL         string `mapstructure:"ttl"`       // freshness window
	MaxStale    string `mapstructure:"max_stale"` // grace window past TTL
	FetchBudget int    `mapstructure:"fetch_budget"`
	Concurrency int    `mapstructure:"concurrency"`
	MaxEntries  int    `mapstructure:"max_entries"`
	PageBaseURL string `mapstructure:"page_base_url"`
}

// LLMConfig holds the recommender settings.
type LLMConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// Load reads configuration from file, environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("cache_dir", cache.Dir(""))
	v.SetDefault("cache_ttl", "24h")
	v.SetDefault("no_cache", false)
	v.SetDefault("sources", []string{"openrouter", "replicate", "huggingface"})
	v.SetDefault("max_pages", 8)
	v.SetDefault("max_models", 300)
	v.SetDefault("log_level", "info")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("replicate.base_url", "https://api.replicate.com/v1")
	v.SetDefault("huggingface.base_url", "https://router.huggingface.co")
	v.SetDefault("enrich.ttl", "168h")       // 7 days
	v.SetDefault("enrich.max_stale", "720h") // 30 days past expiry
	v.SetDefault("enrich.fetch_budget", 40)
	v.SetDefault("enrich.concurrency", 4)
	v.SetDefault("enrich.max_entries", 500)
	v.SetDefault("enrich.page_base_url", "https://replicate.com")
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.model", "google/gemini-2.5-flash")
	v.SetDefault("llm.max_tokens", 4096)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/modelscout")
	}

	// Environment variables
	v.SetEnvPrefix("MODELSCOUT")
	v.AutomaticEnv()

	_ = v.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	_ = v.BindEnv("replicate.api_key", "REPLICATE_API_TOKEN")
	_ = v.BindEnv("huggingface.api_key", "HF_TOKEN")
	_ = v.BindEnv("llm.api_key", "OPENROUTER_API_KEY")
	_ = v.BindEnv("llm.model", "MODELSCOUT_LLM_MODEL")
	_ = v.BindEnv("llm.base_url", "MODELSCOUT_LLM_BASE_URL")
	_ = v.BindEnv("cache_dir", "MODELSCOUT_CACHE_DIR")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// CacheTTLDuration parses the catalog cache TTL, falling back to 24h.
func (c *Config) CacheTTLDuration() time.Duration {
	return parseDuration(c.CacheTTL, 24*time.Hour)
}

// EnrichTTL parses the enrichment freshness window, falling back to 7 days.
func (c *Config) EnrichTTL() time.Duration {
	return parseDuration(c.Enrich.TTL, 168*time.Hour)
}

// EnrichMaxStale parses the stale grace window, falling back to 30 days.
func (c *Config) EnrichMaxStale() time.Duration {
	return parseDuration(c.Enrich.MaxStale, 720*time.Hour)
}

// BaseURLFor returns the API base URL configured for a source name.
func (c *Config) BaseURLFor(source string) string {
	switch source {
	case "openrouter":
		return c.OpenRouter.BaseURL
	case "replicate":
		return c.Replicate.BaseURL
	case "huggingface":
		return c.HuggingFace.BaseURL
	}
	return ""
}

// APIKeyFor returns the credential configured for a source name.
func (c *Config) APIKeyFor(source string) string {
	switch source {
	case "openrouter":
		return c.OpenRouter.APIKey
	case "replicate":
		return c.Replicate.APIKey
	case "huggingface":
		return c.HuggingFace.APIKey
	}
	return ""
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
