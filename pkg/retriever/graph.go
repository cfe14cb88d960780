package retriever

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/nlcraft/kgrag/pkg/graphmetrics"
	"github.com/nlcraft/kgrag/pkg/store"
	"github.com/nlcraft/kgrag/pkg/types"
	"github.com/nlcraft/kgrag/pkg/utils"
)

// minMentionTokenLen filters very short query tokens from entity matching.
const minMentionTokenLen = 3

// GraphRetriever matches query tokens against entity names and searches for
// bounded shortest paths between every pair of matched entities. Centrality
// diagnostics come from a TTL cache so the full-adjacency scan stays off the
// request's critical path.
type GraphRetriever struct {
	store       store.GraphStore
	diagnostics *graphmetrics.Cache
	config      *Config
	logger      *slog.Logger
}

// NewGraphRetriever creates a graph retriever. diagnostics may be nil to
// disable centrality reporting.
func NewGraphRetriever(graphStore store.GraphStore, diagnostics *graphmetrics.Cache, config *Config, logger *slog.Logger) *GraphRetriever {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphRetriever{
		store:       graphStore,
		diagnostics: diagnostics,
		config:      config,
		logger:      logger,
	}
}

// Search matches entities for the query and accumulates up to maxPaths simple
// paths between them. A store failure is reported inside the result's Err
// field, never as a returned error, so callers can degrade gracefully.
func (r *GraphRetriever) Search(ctx context.Context, query string, maxPaths int) *types.GraphResult {
	if maxPaths <= 0 {
		maxPaths = r.config.MaxPaths
	}

	entities, err := r.matchEntities(ctx, query)
	if err != nil {
		r.logger.Warn("graph store unavailable", "error", err)
		return &types.GraphResult{Err: err.Error()}
	}

	result := &types.GraphResult{Entities: entities}
	result.Paths = r.collectPaths(ctx, entities, maxPaths)

	// Unreachable pairs contribute no path; that is not an error.
	if r.diagnostics != nil {
		if diag, err := r.diagnostics.Diagnostics(ctx); err == nil {
			result.Diagnostics = diag
		} else {
			r.logger.Warn("diagnostics unavailable", "error", err)
		}
	}

	r.scorePaths(result.Paths)
	return result
}

// matchEntities tokenizes the query and matches each candidate mention token
// against stored entity names, capped per token.
func (r *GraphRetriever) matchEntities(ctx context.Context, query string) ([]*types.Entity, error) {
	seen := make(map[string]bool)
	var entities []*types.Entity

	for _, token := range utils.Tokenize(query) {
		if len([]rune(token)) < minMentionTokenLen {
			continue
		}
		matches, err := r.store.FindVertices(ctx, token, r.config.EntitiesPerToken)
		if err != nil {
			return nil, err
		}
		for _, entity := range matches {
			if !seen[entity.ID] {
				seen[entity.ID] = true
				entities = append(entities, entity)
			}
		}
	}
	return entities, nil
}

// collectPaths runs bounded shortest-path search for every pair of distinct
// matched entities, keeping up to maxPaths distinct paths in discovery order.
func (r *GraphRetriever) collectPaths(ctx context.Context, entities []*types.Entity, maxPaths int) []*types.GraphPath {
	var paths []*types.GraphPath
	seen := make(map[string]bool)

	for i := 0; i < len(entities) && len(paths) < maxPaths; i++ {
		for j := i + 1; j < len(entities) && len(paths) < maxPaths; j++ {
			edges, err := r.store.GetShortestPath(ctx, entities[i].ID, entities[j].ID, r.config.GraphMaxDepth)
			if err != nil {
				r.logger.Warn("path search failed",
					"source", entities[i].ID, "target", entities[j].ID, "error", err)
				continue
			}
			if len(edges) == 0 {
				continue
			}
			key := pathKey(edges)
			if seen[key] {
				continue
			}
			seen[key] = true
			paths = append(paths, &types.GraphPath{Edges: edges})
		}
	}
	return paths
}

// scorePaths assigns each path the arithmetic mean of its edge weights and
// orders paths by score. The sort is stable: equal-score paths keep BFS
// discovery order, first-found wins.
func (r *GraphRetriever) scorePaths(paths []*types.GraphPath) {
	for _, path := range paths {
		var sum float64
		for _, edge := range path.Edges {
			sum += edge.Weight
		}
		if len(path.Edges) > 0 {
			path.Score = sum / float64(len(path.Edges))
		}
	}
	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].Score > paths[j].Score
	})
}

func pathKey(edges []*types.Relation) string {
	ids := make([]string, len(edges))
	for i, edge := range edges {
		ids[i] = edge.ID
	}
	return strings.Join(ids, "|")
}
