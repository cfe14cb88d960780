// Package store provides durable entity/relation storage for the knowledge
// graph, backed by a relational database. A tabular adjacency representation
// is used instead of a dedicated graph engine for portability: path and
// neighbor queries are bounded BFS scans rather than index-accelerated
// traversals, which is acceptable at moderate scale.
package store

import (
	"context"
	"errors"

	"github.com/nlcraft/kgrag/pkg/types"
)

var (
	// ErrEntityNotFound is returned when a referenced entity does not exist.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrFactNotFound is returned when a referenced fact does not exist.
	ErrFactNotFound = errors.New("fact not found")
	// ErrFragmentNotFound is returned when a referenced fragment does not exist.
	ErrFragmentNotFound = errors.New("fragment not found")
	// ErrUnavailable is returned when the backing database cannot be reached.
	ErrUnavailable = errors.New("graph store unavailable")
)

// GraphStore defines durable storage for entities, relations, facts and
// fragments. Implementations must make UpsertEntity and UpsertRelation atomic
// under concurrent calls: both are read-then-write operations and a lost
// update on weight accumulation is a correctness bug, not a recoverable
// runtime error.
type GraphStore interface {
	// UpsertEntity inserts an entity or, if one with the same name exists,
	// updates its type and aliases and refreshes the timestamp. The returned
	// ID is stable across calls with the same name.
	UpsertEntity(ctx context.Context, name, entityType string, aliases []string) (string, error)

	// GetEntity retrieves an entity by ID, or ErrEntityNotFound.
	GetEntity(ctx context.Context, id string) (*types.Entity, error)

	// UpsertRelation adds weightIncrement to the relation identified by
	// (sourceID, targetID, relationType), inserting it first if absent.
	// evidenceFactID, when non-empty, is appended to the relation's evidence
	// set (duplicates ignored). Returns true when a new relation row was
	// created. Fails with ErrEntityNotFound if either endpoint is missing.
	UpsertRelation(ctx context.Context, sourceID, targetID, relationType string, weightIncrement float64, evidenceFactID string) (bool, error)

	// GetRelationEvidence returns the IDs of the facts supporting a
	// relation, in insertion order.
	GetRelationEvidence(ctx context.Context, relationID string) ([]string, error)

	// FindVertices returns entities whose name matches the pattern as a
	// case-insensitive substring, capped at limit. An empty pattern matches
	// everything.
	FindVertices(ctx context.Context, namePattern string, limit int) ([]*types.Entity, error)

	// GetEntityNeighbors expands breadth-first from entityID up to depth
	// hops, following edges in both directions, and returns the deduplicated
	// nodes plus the edges among them.
	GetEntityNeighbors(ctx context.Context, entityID string, depth int) (*types.Neighborhood, error)

	// GetShortestPath runs an unweighted BFS from sourceID to targetID and
	// returns the first path found at minimal hop count, or an empty slice
	// when the target is unreachable within maxDepth or source equals target.
	GetShortestPath(ctx context.Context, sourceID, targetID string, maxDepth int) ([]*types.Relation, error)

	// GetAllRelations returns every stored relation. Used by the diagnostics
	// layer to build the full adjacency; callers must not run it on the
	// request's critical path.
	GetAllRelations(ctx context.Context) ([]*types.Relation, error)

	// GetStatistics returns aggregate entity/relation counts and per-type
	// histograms.
	GetStatistics(ctx context.Context) (*types.GraphStatistics, error)

	// InsertFact stores a new fact. The fact ID is assigned if empty.
	InsertFact(ctx context.Context, fact *types.Fact) error

	// GetFact retrieves a fact by ID, or ErrFactNotFound.
	GetFact(ctx context.Context, id string) (*types.Fact, error)

	// GetFactsByStatus returns facts in any of the given statuses ordered by
	// confidence descending, capped at limit.
	GetFactsByStatus(ctx context.Context, statuses []types.FactStatus, limit int) ([]*types.Fact, error)

	// UpdateFactStatus transitions a fact's verification status.
	UpdateFactStatus(ctx context.Context, id string, status types.FactStatus) error

	// InsertFragment stores a new fragment. The fragment ID is assigned if
	// empty.
	InsertFragment(ctx context.Context, fragment *types.Fragment) error

	// GetFragment retrieves a fragment by ID, or ErrFragmentNotFound.
	GetFragment(ctx context.Context, id string) (*types.Fragment, error)

	// IndexedFragments returns all fragments marked as indexed, including
	// their stored embeddings.
	IndexedFragments(ctx context.Context) ([]*types.Fragment, error)

	// MarkFragmentIndexed stores a fragment's embedding and flips its
	// indexed flag.
	MarkFragmentIndexed(ctx context.Context, id string, embedding []float32) error

	// Close releases the underlying database handle.
	Close() error
}
