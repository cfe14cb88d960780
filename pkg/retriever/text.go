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

// TextRetriever performs nearest-neighbor search over indexed fragment
// embeddings. When the embedder is unavailable or returns nothing it degrades
// to token-Jaccard scoring over fragment text so the pipeline stays
// answerable at reduced quality.
type TextRetriever struct {
	store    store.GraphStore
	embedder embedder.Client
	config   *Config
	logger   *slog.Logger
}

// NewTextRetriever creates a text retriever. embedderClient may be nil; the
// retriever then always uses the lexical fallback.
func NewTextRetriever(graphStore store.GraphStore, embedderClient embedder.Client, config *Config, logger *slog.Logger) *TextRetriever {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TextRetriever{
		store:    graphStore,
		embedder: embedderClient,
		config:   config,
		logger:   logger,
	}
}

// Search returns ranked fragments for the query, numbered 1..N.
func (r *TextRetriever) Search(ctx context.Context, query string, limit int) ([]*types.TextResult, error) {
	if limit <= 0 {
		return nil, types.ErrInvalidLimit
	}

	fragments, err := r.store.IndexedFragments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load fragment index: %w", err)
	}
	if len(fragments) == 0 {
		return nil, nil
	}

	results := r.searchDense(ctx, query, fragments)
	if results == nil {
		results = r.searchLexical(query, fragments)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	kept := thresholdOrTop(results, r.config.SimilarityThreshold, limit,
		func(res *types.TextResult) float64 { return res.Similarity })
	for i, res := range kept {
		res.Rank = i + 1
	}
	return kept, nil
}

// searchDense scores fragments by embedding cosine similarity. Returns nil
// when the embedder path is unusable, signalling the caller to fall back.
func (r *TextRetriever) searchDense(ctx context.Context, query string, fragments []*types.Fragment) []*types.TextResult {
	if r.embedder == nil {
		return nil
	}

	queryVector, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		r.logger.Warn("embedder unavailable, falling back to lexical similarity", "error", err)
		return nil
	}
	if len(queryVector) == 0 {
		return nil
	}

	var results []*types.TextResult
	for _, fragment := range fragments {
		if len(fragment.Embedding) == 0 {
			continue
		}
		results = append(results, &types.TextResult{
			FragmentID:  fragment.ID,
			Content:     fragment.Content,
			SourceTitle: fragment.SourceTitle,
			Similarity:  utils.CosineSimilarity(queryVector, fragment.Embedding),
		})
	}
	if len(results) == 0 {
		return nil
	}
	return results
}

// searchLexical scores every fragment by token-Jaccard similarity.
func (r *TextRetriever) searchLexical(query string, fragments []*types.Fragment) []*types.TextResult {
	results := make([]*types.TextResult, 0, len(fragments))
	for _, fragment := range fragments {
		results = append(results, &types.TextResult{
			FragmentID:  fragment.ID,
			Content:     fragment.Content,
			SourceTitle: fragment.SourceTitle,
			Similarity:  utils.JaccardSimilarity(query, fragment.Content),
		})
	}
	return results
}

// thresholdOrTop keeps items whose score clears the threshold, capped at
// limit. If nothing clears it, the top-limit items are returned regardless so
// threshold misconfiguration never yields a hard-empty result.
func thresholdOrTop[T any](items []T, threshold float64, limit int, score func(T) float64) []T {
	var kept []T
	for _, item := range items {
		if score(item) >= threshold {
			kept = append(kept, item)
			if len(kept) == limit {
				break
			}
		}
	}
	if len(kept) > 0 {
		return kept
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
