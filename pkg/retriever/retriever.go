// Package retriever implements the three retrieval policies over the
// knowledge store: dense text retrieval over fragment embeddings,
// similarity+confidence ranked fact retrieval, and entity matching with
// bounded path search over the graph.
package retriever

import "time"

// Policy identifies one retrieval strategy. The set is closed: dispatch
// happens through a switch, never through dynamic lookup.
type Policy string

const (
	// PolicyText retrieves dense-vector text fragments.
	PolicyText Policy = "text"
	// PolicyFacts retrieves confidence-scored verified facts.
	PolicyFacts Policy = "facts"
	// PolicyGraph retrieves entity paths from the knowledge graph.
	PolicyGraph Policy = "graph"
	// PolicyHybrid fuses all three retrievers.
	PolicyHybrid Policy = "hybrid"
)

// Policies lists every selectable policy.
func Policies() []Policy {
	return []Policy{PolicyText, PolicyFacts, PolicyGraph, PolicyHybrid}
}

// Config holds tuning knobs shared by the retrievers.
type Config struct {
	// SimilarityThreshold is the minimum similarity for text and fact hits.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	// FactConfidenceThreshold is the minimum stored confidence for fact hits.
	FactConfidenceThreshold float64 `mapstructure:"fact_confidence_threshold"`
	// RerankPoolSize caps the fact candidate pool taken by confidence order.
	RerankPoolSize int `mapstructure:"rerank_pool_size"`
	// GraphMaxDepth bounds shortest-path search between matched entities.
	GraphMaxDepth int `mapstructure:"graph_max_depth"`
	// MaxPaths caps the number of paths returned per query.
	MaxPaths int `mapstructure:"max_paths"`
	// EntitiesPerToken caps entity matches per query token.
	EntitiesPerToken int `mapstructure:"entities_per_token"`
	// SubRetrieverTimeout bounds each sub-retriever call during fusion.
	SubRetrieverTimeout time.Duration `mapstructure:"sub_retriever_timeout"`
}

// DefaultConfig returns the default retrieval configuration.
func DefaultConfig() *Config {
	return &Config{
		SimilarityThreshold:     0.3,
		FactConfidenceThreshold: 0.5,
		RerankPoolSize:          50,
		GraphMaxDepth:           3,
		MaxPaths:                10,
		EntitiesPerToken:        5,
		SubRetrieverTimeout:     5 * time.Second,
	}
}
