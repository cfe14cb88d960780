package kgrag

import (
	"context"
	"fmt"

	"github.com/nlcraft/kgrag/pkg/types"
)

// UpsertEntity inserts or refreshes an entity and returns its ID.
func (c *Client) UpsertEntity(ctx context.Context, name, entityType string, aliases []string) (string, error) {
	id, err := c.store.UpsertEntity(ctx, name, entityType, aliases)
	if err != nil {
		return "", fmt.Errorf("failed to upsert entity: %w", err)
	}
	return id, nil
}

// UpsertRelation adds weightIncrement to the relation between two entities,
// creating it when absent, and records the fact as supporting evidence.
// It reports whether the relation was newly created.
func (c *Client) UpsertRelation(ctx context.Context, sourceID, targetID, relationType string, weightIncrement float64, evidenceFactID string) (bool, error) {
	created, err := c.store.UpsertRelation(ctx, sourceID, targetID, relationType, weightIncrement, evidenceFactID)
	if err != nil {
		return false, fmt.Errorf("failed to upsert relation: %w", err)
	}
	return created, nil
}

// Neighbors returns the entities and relations reachable from an entity
// within the given number of hops.
func (c *Client) Neighbors(ctx context.Context, entityID string, depth int) (*types.Neighborhood, error) {
	return c.store.GetEntityNeighbors(ctx, entityID, depth)
}

// ShortestPath returns the relations along a shortest path between two
// entities, or an empty slice when none exists within maxDepth hops.
func (c *Client) ShortestPath(ctx context.Context, sourceID, targetID string, maxDepth int) ([]*types.Relation, error) {
	return c.store.GetShortestPath(ctx, sourceID, targetID, maxDepth)
}

// RelationEvidence returns the IDs of the facts supporting a relation.
func (c *Client) RelationEvidence(ctx context.Context, relationID string) ([]string, error) {
	return c.store.GetRelationEvidence(ctx, relationID)
}

// FindEntities searches entities by name and alias substring match.
func (c *Client) FindEntities(ctx context.Context, query string, limit int) ([]*types.Entity, error) {
	return c.store.FindVertices(ctx, query, limit)
}

// Statistics returns graph-wide counts and degree aggregates.
func (c *Client) Statistics(ctx context.Context) (*types.GraphStatistics, error) {
	return c.store.GetStatistics(ctx)
}

// Diagnostics returns cached centrality measures for the current graph,
// refreshing them in the background when stale.
func (c *Client) Diagnostics(ctx context.Context) (*types.GraphDiagnostics, error) {
	return c.diagnostics.Diagnostics(ctx)
}

// VerifyFact transitions a pending fact to verified or rejected.
func (c *Client) VerifyFact(ctx context.Context, factID string, accepted bool) error {
	status := types.FactVerified
	if !accepted {
		status = types.FactRejected
	}
	if err := c.store.UpdateFactStatus(ctx, factID, status); err != nil {
		return fmt.Errorf("failed to update fact status: %w", err)
	}
	return nil
}
