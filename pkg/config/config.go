// Package config loads application configuration from file and environment
// via viper.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds graph store configuration.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, postgres
	URI    string `mapstructure:"uri"`
}

// EmbeddingConfig holds embedder collaborator configuration.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai, none
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// GeneratorConfig holds generator collaborator configuration.
type GeneratorConfig struct {
	Provider    string  `mapstructure:"provider"` // openai, none
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaking settings for collaborators.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"`
	Timeout          int     `mapstructure:"timeout"`
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// ExtractConfig holds fact extraction configuration.
type ExtractConfig struct {
	RecognizerURL string `mapstructure:"recognizer_url"`
	OntologyPath  string `mapstructure:"ontology_path"`
	UseLLM        bool   `mapstructure:"use_llm"`
	CheckpointDir string `mapstructure:"checkpoint_dir"`
}

// RetrievalConfig holds retriever tuning knobs.
type RetrievalConfig struct {
	SimilarityThreshold     float64       `mapstructure:"similarity_threshold"`
	FactConfidenceThreshold float64       `mapstructure:"fact_confidence_threshold"`
	RerankPoolSize          int           `mapstructure:"rerank_pool_size"`
	GraphMaxDepth           int           `mapstructure:"graph_max_depth"`
	MaxPaths                int           `mapstructure:"max_paths"`
	EntitiesPerToken        int           `mapstructure:"entities_per_token"`
	SubRetrieverTimeout     time.Duration `mapstructure:"sub_retriever_timeout"`

	FusionTextWeight  float64 `mapstructure:"fusion_text_weight"`
	FusionFactsWeight float64 `mapstructure:"fusion_facts_weight"`
	FusionGraphWeight float64 `mapstructure:"fusion_graph_weight"`
}

// PolicyConfig holds selector tuning knobs.
type PolicyConfig struct {
	CostWeight        float64 `mapstructure:"cost_weight"`
	PerformanceWeight float64 `mapstructure:"performance_weight"`
	QualityThreshold  float64 `mapstructure:"quality_threshold"`
}

// TelemetryConfig holds telemetry output settings.
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
	CachePath   string `mapstructure:"cache_path"`
}

// Load loads configuration from viper's bound sources with defaults and
// environment overrides applied.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)
	return config, nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.uri", "./kgrag.db")

	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimensions", 1536)
	viper.SetDefault("embedding.circuit_breaker.enabled", true)
	viper.SetDefault("embedding.circuit_breaker.max_requests", 1)
	viper.SetDefault("embedding.circuit_breaker.interval", 60)
	viper.SetDefault("embedding.circuit_breaker.timeout", 30)
	viper.SetDefault("embedding.circuit_breaker.ready_to_trip_ratio", 0.6)

	viper.SetDefault("generator.provider", "openai")
	viper.SetDefault("generator.model", "gpt-4o")
	viper.SetDefault("generator.temperature", 0.7)
	viper.SetDefault("generator.max_tokens", 512)
	viper.SetDefault("generator.circuit_breaker.enabled", true)
	viper.SetDefault("generator.circuit_breaker.max_requests", 1)
	viper.SetDefault("generator.circuit_breaker.interval", 60)
	viper.SetDefault("generator.circuit_breaker.timeout", 30)
	viper.SetDefault("generator.circuit_breaker.ready_to_trip_ratio", 0.6)

	viper.SetDefault("retrieval.similarity_threshold", 0.3)
	viper.SetDefault("retrieval.fact_confidence_threshold", 0.5)
	viper.SetDefault("retrieval.rerank_pool_size", 50)
	viper.SetDefault("retrieval.graph_max_depth", 3)
	viper.SetDefault("retrieval.max_paths", 10)
	viper.SetDefault("retrieval.entities_per_token", 5)
	viper.SetDefault("retrieval.sub_retriever_timeout", 5*time.Second)
	viper.SetDefault("retrieval.fusion_text_weight", 0.4)
	viper.SetDefault("retrieval.fusion_facts_weight", 0.35)
	viper.SetDefault("retrieval.fusion_graph_weight", 0.25)

	viper.SetDefault("policy.cost_weight", 0.4)
	viper.SetDefault("policy.performance_weight", 0.6)
	viper.SetDefault("policy.quality_threshold", 0.45)

	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", home+"/.kgrag/telemetry")
		viper.SetDefault("telemetry.cache_path", home+"/.kgrag/cache")
	}
}

func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
		if config.Generator.APIKey == "" {
			config.Generator.APIKey = apiKey
		}
	}

	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}
	if uri := os.Getenv("DB_URI"); uri != "" {
		config.Database.URI = uri
	}
	if url := os.Getenv("RECOGNIZER_URL"); url != "" {
		config.Extract.RecognizerURL = url
	}
}
