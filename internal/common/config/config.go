// internal/common/config/config.go
package config

import (
	"fmt"
	"strings"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Server   ServerConfig            `mapstructure:"server"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	APIs     APIsConfig              `mapstructure:"apis"`
	Research ResearchConfig          `mapstructure:"research"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Tracing  TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// GetAddresses returns Addresses, or URL as a single address.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	LLM struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"llm"`

	WebSearch struct {
		Provider   string `mapstructure:"provider"` // google | elasticsearch
		BaseURL    string `mapstructure:"base_url"`
		APIKey     string `mapstructure:"api_key"`
		EngineID   string `mapstructure:"engine_id"`
		Index      string `mapstructure:"index"`
		MaxResults int    `mapstructure:"max_results"`
		Timeout    int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"web_search"`
}

// ResearchConfig tunes the research pipeline stages.
type ResearchConfig struct {
	FetchTimeout    int          `mapstructure:"fetch_timeout"` // milliseconds
	UserAgent       string       `mapstructure:"user_agent"`
	Extractor       string       `mapstructure:"extractor"` // text | readability | sanitize
	ChunkSize       int          `mapstructure:"chunk_size"`
	ChunkDelay      int          `mapstructure:"chunk_delay"` // milliseconds
	MaxContextChars int          `mapstructure:"max_context_chars"`
	Pacing          PacingConfig `mapstructure:"pacing"`
	Models          ModelsConfig `mapstructure:"models"`
}

type PacingConfig struct {
	Backend string `mapstructure:"backend"` // local | redis
	Key     string `mapstructure:"key"`
}

type ModelsConfig struct {
	Query   ModelConfig `mapstructure:"query"`
	Summary ModelConfig `mapstructure:"summary"`
	Answer  ModelConfig `mapstructure:"answer"`
}

// ModelConfig selects a preset and overrides individual generation parameters.
// Zero values leave the preset untouched.
type ModelConfig struct {
	Preset           string   `mapstructure:"preset"`
	Model            string   `mapstructure:"model"`
	MaxTokens        int      `mapstructure:"max_tokens"`
	Temperature      *float64 `mapstructure:"temperature"`
	TopP             *float64 `mapstructure:"top_p"`
	N                int      `mapstructure:"n"`
	FrequencyPenalty *float64 `mapstructure:"frequency_penalty"`
	PresencePenalty  *float64 `mapstructure:"presence_penalty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracingConfig controls the otel tracer provider.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// MissingCredentials lists the research credentials that are still empty,
// using the labels shown to users.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.APIs.LLM.APIKey == "" {
		missing = append(missing, "LLM API key")
	}
	if c.APIs.WebSearch.Provider == ProviderElasticsearch {
		if len(c.Database.Elasticsearch.GetAddresses()) == 0 {
			missing = append(missing, "Elasticsearch address")
		}
		return missing
	}
	if c.APIs.WebSearch.APIKey == "" {
		missing = append(missing, "search API key")
	}
	if c.APIs.WebSearch.EngineID == "" {
		missing = append(missing, "search engine ID")
	}
	return missing
}

// ValidateResearch checks everything the research pipeline needs.
func (c *Config) ValidateResearch() error {
	if missing := c.MissingCredentials(); len(missing) > 0 {
		return fmt.Errorf("missing research credentials: %s", strings.Join(missing, ", "))
	}

	switch c.APIs.WebSearch.Provider {
	case ProviderGoogle, ProviderElasticsearch:
	default:
		return fmt.Errorf("apis.web_search.provider must be %q or %q, got %q",
			ProviderGoogle, ProviderElasticsearch, c.APIs.WebSearch.Provider)
	}

	switch c.Research.Pacing.Backend {
	case PacingLocal:
	case PacingRedis:
		if c.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for redis pacing")
		}
	default:
		return fmt.Errorf("research.pacing.backend must be %q or %q, got %q",
			PacingLocal, PacingRedis, c.Research.Pacing.Backend)
	}

	if c.Research.ChunkSize <= 0 {
		return fmt.Errorf("research.chunk_size must be positive")
	}
	if c.Research.MaxContextChars <= 0 {
		return fmt.Errorf("research.max_context_chars must be positive")
	}
	return nil
}

// ValidateWorkers checks the research settings plus what the job workers need.
func (c *Config) ValidateWorkers() error {
	if c.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	return c.ValidateResearch()
}

const (
	ProviderGoogle        = "google"
	ProviderElasticsearch = "elasticsearch"

	PacingLocal = "local"
	PacingRedis = "redis"
)
