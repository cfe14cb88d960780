package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/nlcraft/kgrag/pkg/embedder"
	"github.com/nlcraft/kgrag/pkg/store"
	"github.com/nlcraft/kgrag/pkg/types"
	"github.com/nlcraft/kgrag/pkg/utils"
)

// FactRetriever ranks curated facts by similarity to the query combined with
// their stored confidence. The candidate pool is taken from verified and
// pending facts in confidence order, capped by the configured rerank size.
type FactRetriever struct {
	store    store.GraphStore
	embedder embedder.Client
	config   *Config
	logger   *slog.Logger
}

// NewFactRetriever creates a fact retriever. embedderClient may be nil; token
// overlap is then used as the similarity signal.
func NewFactRetriever(graphStore store.GraphStore, embedderClient embedder.Client, config *Config, logger *slog.Logger) *FactRetriever {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FactRetriever{
		store:    graphStore,
		embedder: embedderClient,
		config:   config,
		logger:   logger,
	}
}

// Search returns ranked facts for the query, numbered 1..N. Facts failing
// both thresholds are filtered, but a fully-filtered result falls back to the
// top candidates so the pipeline never goes hard-empty over threshold tuning.
func (r *FactRetriever) Search(ctx context.Context, query string, limit int) ([]*types.FactResult, error) {
	if limit <= 0 {
		return nil, types.ErrInvalidLimit
	}

	poolSize := r.config.RerankPoolSize
	if poolSize < limit {
		poolSize = limit
	}
	candidates, err := r.store.GetFactsByStatus(ctx,
		[]types.FactStatus{types.FactVerified, types.FactPending}, poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load fact candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	queryVector := r.queryVector(ctx, query)

	results := make([]*types.FactResult, 0, len(candidates))
	for _, fact := range candidates {
		results = append(results, &types.FactResult{
			FactID:     fact.ID,
			Content:    fact.Content,
			Confidence: fact.Confidence,
			Similarity: r.similarity(query, queryVector, fact),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Confidence > results[j].Confidence
	})

	var kept []*types.FactResult
	for _, res := range results {
		if res.Similarity >= r.config.SimilarityThreshold && res.Confidence >= r.config.FactConfidenceThreshold {
			kept = append(kept, res)
			if len(kept) == limit {
				break
			}
		}
	}
	if len(kept) == 0 {
		kept = results
		if len(kept) > limit {
			kept = kept[:limit]
		}
	}

	for i, res := range kept {
		res.Rank = i + 1
	}
	return kept, nil
}

func (r *FactRetriever) queryVector(ctx context.Context, query string) []float32 {
	if r.embedder == nil {
		return nil
	}
	vector, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		r.logger.Warn("embedder unavailable for fact search, using token overlap", "error", err)
		return nil
	}
	return vector
}

func (r *FactRetriever) similarity(query string, queryVector []float32, fact *types.Fact) float64 {
	if len(queryVector) > 0 && len(fact.Embedding) > 0 {
		return utils.CosineSimilarity(queryVector, fact.Embedding)
	}
	return utils.TokenOverlap(query, fact.Content)
}
