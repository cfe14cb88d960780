// Package fusion merges ranked results from the three heterogeneous
// retrievers into one list. Native scores are not comparable across sources
// (bounded similarity vs. confidence product vs. mean edge weight), so each
// source is min-max normalized to [0,1] before the configured per-type
// weights apply. Fusing raw scores would let whichever source has the
// largest numeric range dominate regardless of weight configuration.
package fusion

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nlcraft/kgrag/pkg/retriever"
	"github.com/nlcraft/kgrag/pkg/types"
	"github.com/nlcraft/kgrag/pkg/utils"
)

// Weights configures the per-type weight applied after normalization.
type Weights struct {
	Text  float64 `mapstructure:"text"`
	Facts float64 `mapstructure:"facts"`
	Graph float64 `mapstructure:"graph"`
}

// DefaultWeights returns an even weighting across sources.
func DefaultWeights() Weights {
	return Weights{Text: 1.0 / 3, Facts: 1.0 / 3, Graph: 1.0 / 3}
}

// Item is one fused result. Exactly one of Text, Fact or Path is set,
// matching Type.
type Item struct {
	Type  retriever.Policy  `json:"type"`
	Score float64           `json:"score"`
	Text  *types.TextResult `json:"text,omitempty"`
	Fact  *types.FactResult `json:"fact,omitempty"`
	Path  *types.GraphPath  `json:"path,omitempty"`
}

// Results holds the fused output. Empty is the explicit no-context marker
// set when every sub-retriever returned nothing.
type Results struct {
	Items []*Item `json:"items"`
	Query string  `json:"query"`
	Empty bool    `json:"empty"`

	TextCount int `json:"text_count"`
	FactCount int `json:"fact_count"`
	PathCount int `json:"path_count"`
}

// Combiner drives the three sub-retrievers and fuses their outputs.
type Combiner struct {
	text    *retriever.TextRetriever
	facts   *retriever.FactRetriever
	graph   *retriever.GraphRetriever
	weights Weights
	timeout time.Duration
	logger  *slog.Logger
}

// NewCombiner creates a fusion combiner over the three sub-retrievers.
func NewCombiner(text *retriever.TextRetriever, facts *retriever.FactRetriever, graph *retriever.GraphRetriever, weights Weights, timeout time.Duration, logger *slog.Logger) *Combiner {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Combiner{
		text:    text,
		facts:   facts,
		graph:   graph,
		weights: weights,
		timeout: timeout,
		logger:  logger,
	}
}

// Retrieve invokes the three sub-retrievers in parallel, each bounded by its
// own timeout, and fuses whatever came back. A failed or timed-out
// sub-retriever contributes an empty result; partial failure never escalates
// to total failure.
func (c *Combiner) Retrieve(ctx context.Context, query string, k int) *Results {
	var (
		textResults []*types.TextResult
		factResults []*types.FactResult
		graphResult *types.GraphResult
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		subCtx, cancel := context.WithTimeout(gctx, c.timeout)
		defer cancel()
		results, err := c.text.Search(subCtx, query, k)
		if err != nil {
			c.logger.Warn("text retrieval failed during fusion", "error", err)
			return nil
		}
		textResults = results
		return nil
	})

	g.Go(func() error {
		subCtx, cancel := context.WithTimeout(gctx, c.timeout)
		defer cancel()
		results, err := c.facts.Search(subCtx, query, k)
		if err != nil {
			c.logger.Warn("fact retrieval failed during fusion", "error", err)
			return nil
		}
		factResults = results
		return nil
	})

	g.Go(func() error {
		subCtx, cancel := context.WithTimeout(gctx, c.timeout)
		defer cancel()
		graphResult = c.graph.Search(subCtx, query, 0)
		if graphResult.Err != "" {
			c.logger.Warn("graph retrieval degraded during fusion", "error", graphResult.Err)
		}
		return nil
	})

	// Sub-retriever errors are absorbed above; the group only propagates
	// context cancellation.
	_ = g.Wait()

	return c.Fuse(query, textResults, factResults, graphResult, k)
}

// Fuse normalizes each source independently, applies the per-type weights,
// merges and truncates to k.
func (c *Combiner) Fuse(query string, textResults []*types.TextResult, factResults []*types.FactResult, graphResult *types.GraphResult, k int) *Results {
	results := &Results{
		Query:     query,
		TextCount: len(textResults),
		FactCount: len(factResults),
	}
	var paths []*types.GraphPath
	if graphResult != nil {
		paths = graphResult.Paths
	}
	results.PathCount = len(paths)

	if len(textResults) == 0 && len(factResults) == 0 && len(paths) == 0 {
		results.Empty = true
		return results
	}

	var items []*Item

	textScores := make([]float64, len(textResults))
	for i, res := range textResults {
		textScores[i] = res.Similarity
	}
	for i, norm := range utils.MinMaxNormalize(textScores) {
		items = append(items, &Item{
			Type:  retriever.PolicyText,
			Score: c.weights.Text * norm,
			Text:  textResults[i],
		})
	}

	factScores := make([]float64, len(factResults))
	for i, res := range factResults {
		factScores[i] = math.Min(res.Similarity, res.Confidence)
	}
	for i, norm := range utils.MinMaxNormalize(factScores) {
		items = append(items, &Item{
			Type:  retriever.PolicyFacts,
			Score: c.weights.Facts * norm,
			Fact:  factResults[i],
		})
	}

	pathScores := make([]float64, len(paths))
	for i, path := range paths {
		pathScores[i] = path.Score
	}
	for i, norm := range utils.MinMaxNormalize(pathScores) {
		items = append(items, &Item{
			Type:  retriever.PolicyGraph,
			Score: c.weights.Graph * norm,
			Path:  paths[i],
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	if k > 0 && len(items) > k {
		items = items[:k]
	}
	results.Items = items
	return results
}
