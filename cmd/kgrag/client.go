package kgrag

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	engine "github.com/nlcraft/kgrag"
	"github.com/nlcraft/kgrag/pkg/config"
	"github.com/nlcraft/kgrag/pkg/embedder"
	"github.com/nlcraft/kgrag/pkg/extract"
	"github.com/nlcraft/kgrag/pkg/fusion"
	"github.com/nlcraft/kgrag/pkg/nlp"
	"github.com/nlcraft/kgrag/pkg/policy"
	"github.com/nlcraft/kgrag/pkg/retriever"
	"github.com/nlcraft/kgrag/pkg/store"
	"github.com/nlcraft/kgrag/pkg/telemetry"
)

// buildClient assembles an engine client from the loaded configuration.
// The returned cleanup closes everything the client owns.
func buildClient() (*engine.Client, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg.Log)

	graphStore, err := openStore(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open graph store: %w", err)
	}

	var embedderClient embedder.Client
	if cfg.Embedding.Provider == "openai" {
		embedderClient, err = embedder.NewOpenAIClient(&embedder.Config{
			Model:      cfg.Embedding.Model,
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
		})
		if err != nil {
			logger.Warn("embedder unavailable, retrieval degrades to lexical matching", "error", err)
			embedderClient = nil
		}
	}
	if embedderClient != nil {
		embedderClient = embedder.NewRetryClient(embedderClient, nil)
		if cfg.Embedding.CircuitBreaker.Enabled {
			embedderClient = embedder.NewCircuitBreakerClient(embedderClient, embedder.CircuitBreakerConfig{
				Enabled:          true,
				MaxRequests:      cfg.Embedding.CircuitBreaker.MaxRequests,
				Interval:         cfg.Embedding.CircuitBreaker.Interval,
				Timeout:          cfg.Embedding.CircuitBreaker.Timeout,
				ReadyToTripRatio: cfg.Embedding.CircuitBreaker.ReadyToTripRatio,
			}, "embedder", logger)
		}
	}

	var generatorClient nlp.Client
	if cfg.Generator.Provider == "openai" {
		generatorClient, err = nlp.NewOpenAIClient(nlp.Config{
			Model:       cfg.Generator.Model,
			APIKey:      cfg.Generator.APIKey,
			BaseURL:     cfg.Generator.BaseURL,
			Temperature: cfg.Generator.Temperature,
			MaxTokens:   cfg.Generator.MaxTokens,
		})
		if err != nil {
			logger.Warn("generator unavailable, answers degrade to extractive summaries", "error", err)
			generatorClient = nil
		}
	}
	if generatorClient != nil {
		generatorClient = nlp.NewRetryClient(generatorClient, nil)
		if cfg.Generator.CircuitBreaker.Enabled {
			generatorClient = nlp.NewCircuitBreakerClient(generatorClient, nlp.CircuitBreakerConfig{
				Enabled:          true,
				MaxRequests:      cfg.Generator.CircuitBreaker.MaxRequests,
				Interval:         cfg.Generator.CircuitBreaker.Interval,
				Timeout:          cfg.Generator.CircuitBreaker.Timeout,
				ReadyToTripRatio: cfg.Generator.CircuitBreaker.ReadyToTripRatio,
			}, "generator", logger)
		}
	}

	ontology := extract.DefaultOntology()
	if cfg.Extract.OntologyPath != "" {
		ontology, err = extract.LoadOntology(cfg.Extract.OntologyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load ontology: %w", err)
		}
	}

	engineConfig := &engine.Config{
		Retrieval: &retriever.Config{
			SimilarityThreshold:     cfg.Retrieval.SimilarityThreshold,
			FactConfidenceThreshold: cfg.Retrieval.FactConfidenceThreshold,
			RerankPoolSize:          cfg.Retrieval.RerankPoolSize,
			GraphMaxDepth:           cfg.Retrieval.GraphMaxDepth,
			MaxPaths:                cfg.Retrieval.MaxPaths,
			EntitiesPerToken:        cfg.Retrieval.EntitiesPerToken,
			SubRetrieverTimeout:     cfg.Retrieval.SubRetrieverTimeout,
		},
		FusionWeights: fusion.Weights{
			Text:  cfg.Retrieval.FusionTextWeight,
			Facts: cfg.Retrieval.FusionFactsWeight,
			Graph: cfg.Retrieval.FusionGraphWeight,
		},
		Selector: &policy.SelectorConfig{
			CostWeight:        cfg.Policy.CostWeight,
			PerformanceWeight: cfg.Policy.PerformanceWeight,
			QualityThreshold:  cfg.Policy.QualityThreshold,
		},
		Ontology:         ontology,
		DiagnosticsDir:   cfg.Telemetry.CachePath,
		CheckpointDir:    cfg.Extract.CheckpointDir,
		UseLLMExtraction: cfg.Extract.UseLLM,
	}

	opts := []engine.Option{}
	if cfg.Extract.RecognizerURL != "" {
		opts = append(opts, engine.WithRecognizer(
			extract.NewHTTPRecognizer(cfg.Extract.RecognizerURL, 10*time.Second)))
	}

	var recorder *telemetry.Recorder
	if cfg.Telemetry.ParquetPath != "" {
		recorder, err = telemetry.NewRecorder(cfg.Telemetry.ParquetPath)
		if err != nil {
			logger.Warn("telemetry disabled", "error", err)
		} else {
			opts = append(opts, engine.WithTelemetry(recorder))
		}
	}

	client, err := engine.NewClient(graphStore, embedderClient, generatorClient, engineConfig, logger, opts...)
	if err != nil {
		graphStore.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("shutdown error", "error", err)
		}
	}
	return client, cleanup, nil
}

func openStore(cfg config.DatabaseConfig) (store.GraphStore, error) {
	switch cfg.Driver {
	case "postgres":
		return store.NewPostgresStore(cfg.URI, nil)
	case "sqlite", "":
		return store.NewSQLiteStore(cfg.URI)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
