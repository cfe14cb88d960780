package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlcraft/kgrag/pkg/types"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("insert returns stable ID", func(t *testing.T) {
		id, err := s.UpsertEntity(ctx, "Warszawa", "city", nil)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		again, err := s.UpsertEntity(ctx, "Warszawa", "city", nil)
		require.NoError(t, err)
		assert.Equal(t, id, again)
	})

	t.Run("upsert refreshes type and aliases", func(t *testing.T) {
		id, err := s.UpsertEntity(ctx, "Kraków", "place", nil)
		require.NoError(t, err)

		_, err = s.UpsertEntity(ctx, "Kraków", "city", []string{"Cracow"})
		require.NoError(t, err)

		entity, err := s.GetEntity(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "city", entity.Type)
		assert.Equal(t, []string{"Cracow"}, entity.Aliases)
	})

	t.Run("empty values keep stored type and aliases", func(t *testing.T) {
		id, err := s.UpsertEntity(ctx, "Gdańsk", "city", []string{"Danzig"})
		require.NoError(t, err)

		// Re-ingestion often carries no type or aliases; the stored
		// values must survive.
		again, err := s.UpsertEntity(ctx, "Gdańsk", "", nil)
		require.NoError(t, err)
		require.Equal(t, id, again)

		entity, err := s.GetEntity(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "city", entity.Type)
		assert.Equal(t, []string{"Danzig"}, entity.Aliases)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := s.UpsertEntity(ctx, "", "city", nil)
		assert.ErrorIs(t, err, types.ErrEmptyName)
	})

	t.Run("missing entity", func(t *testing.T) {
		_, err := s.GetEntity(ctx, "no-such-id")
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})
}

func TestUpsertRelation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	warsaw, err := s.UpsertEntity(ctx, "Warszawa", "city", nil)
	require.NoError(t, err)
	poland, err := s.UpsertEntity(ctx, "Polska", "country", nil)
	require.NoError(t, err)

	t.Run("weight accumulates across upserts", func(t *testing.T) {
		created, err := s.UpsertRelation(ctx, warsaw, poland, "capital_of", 0.8, "")
		require.NoError(t, err)
		assert.True(t, created)

		created, err = s.UpsertRelation(ctx, warsaw, poland, "capital_of", 0.7, "")
		require.NoError(t, err)
		assert.False(t, created)

		relations, err := s.GetAllRelations(ctx)
		require.NoError(t, err)
		require.Len(t, relations, 1)
		assert.InDelta(t, 1.5, relations[0].Weight, 1e-9)
	})

	t.Run("evidence deduplicates", func(t *testing.T) {
		_, err := s.UpsertRelation(ctx, warsaw, poland, "capital_of", 0.1, "fact-1")
		require.NoError(t, err)
		_, err = s.UpsertRelation(ctx, warsaw, poland, "capital_of", 0.1, "fact-1")
		require.NoError(t, err)
		_, err = s.UpsertRelation(ctx, warsaw, poland, "capital_of", 0.1, "fact-2")
		require.NoError(t, err)

		relations, err := s.GetAllRelations(ctx)
		require.NoError(t, err)
		require.Len(t, relations, 1)

		evidence, err := s.GetRelationEvidence(ctx, relations[0].ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"fact-1", "fact-2"}, evidence)
	})

	t.Run("distinct types are distinct relations", func(t *testing.T) {
		created, err := s.UpsertRelation(ctx, warsaw, poland, "located_in", 1.0, "")
		require.NoError(t, err)
		assert.True(t, created)

		relations, err := s.GetAllRelations(ctx)
		require.NoError(t, err)
		assert.Len(t, relations, 2)
	})

	t.Run("missing endpoint fails", func(t *testing.T) {
		_, err := s.UpsertRelation(ctx, warsaw, "ghost", "near", 1.0, "")
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})
}

func TestFindVertices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Warszawa", "Warta", "Kraków"} {
		_, err := s.UpsertEntity(ctx, name, "place", nil)
		require.NoError(t, err)
	}

	t.Run("substring match is case-insensitive", func(t *testing.T) {
		matches, err := s.FindVertices(ctx, "war", 10)
		require.NoError(t, err)
		require.Len(t, matches, 2)
	})

	t.Run("limit caps results", func(t *testing.T) {
		matches, err := s.FindVertices(ctx, "", 2)
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})

	t.Run("invalid limit", func(t *testing.T) {
		_, err := s.FindVertices(ctx, "war", 0)
		assert.ErrorIs(t, err, types.ErrInvalidLimit)
	})

	t.Run("wildcard characters are literal", func(t *testing.T) {
		matches, err := s.FindVertices(ctx, "%", 10)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

// buildChain creates a -> b -> c -> d with an unconnected entity "island".
func buildChain(t *testing.T, s *SQLStore) map[string]string {
	t.Helper()
	ctx := context.Background()

	ids := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "island"} {
		id, err := s.UpsertEntity(ctx, name, "node", nil)
		require.NoError(t, err)
		ids[name] = id
	}
	for _, edge := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}} {
		_, err := s.UpsertRelation(ctx, ids[edge[0]], ids[edge[1]], "linked", 1.0, "")
		require.NoError(t, err)
	}
	return ids
}

func TestGetEntityNeighbors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ids := buildChain(t, s)

	t.Run("depth one", func(t *testing.T) {
		n, err := s.GetEntityNeighbors(ctx, ids["b"], 1)
		require.NoError(t, err)
		assert.Len(t, n.Nodes, 3) // a, b, c
		assert.Len(t, n.Edges, 2)
	})

	t.Run("depth covers full chain", func(t *testing.T) {
		n, err := s.GetEntityNeighbors(ctx, ids["a"], 3)
		require.NoError(t, err)
		assert.Len(t, n.Nodes, 4)
		assert.Len(t, n.Edges, 3)
	})

	t.Run("isolated entity", func(t *testing.T) {
		n, err := s.GetEntityNeighbors(ctx, ids["island"], 2)
		require.NoError(t, err)
		assert.Len(t, n.Nodes, 1)
		assert.Empty(t, n.Edges)
	})

	t.Run("unknown entity", func(t *testing.T) {
		_, err := s.GetEntityNeighbors(ctx, "ghost", 1)
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})
}

func TestGetShortestPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ids := buildChain(t, s)

	t.Run("finds minimal hop path", func(t *testing.T) {
		path, err := s.GetShortestPath(ctx, ids["a"], ids["d"], 5)
		require.NoError(t, err)
		require.Len(t, path, 3)
		assert.Equal(t, ids["a"], path[0].SourceEntityID)
		assert.Equal(t, ids["d"], path[2].TargetEntityID)
	})

	t.Run("traverses edges backwards", func(t *testing.T) {
		path, err := s.GetShortestPath(ctx, ids["d"], ids["a"], 5)
		require.NoError(t, err)
		assert.Len(t, path, 3)
	})

	t.Run("depth bound cuts off", func(t *testing.T) {
		path, err := s.GetShortestPath(ctx, ids["a"], ids["d"], 2)
		require.NoError(t, err)
		assert.Empty(t, path)
	})

	t.Run("unreachable target", func(t *testing.T) {
		path, err := s.GetShortestPath(ctx, ids["a"], ids["island"], 5)
		require.NoError(t, err)
		assert.Empty(t, path)
	})

	t.Run("source equals target", func(t *testing.T) {
		path, err := s.GetShortestPath(ctx, ids["a"], ids["a"], 5)
		require.NoError(t, err)
		assert.Empty(t, path)
	})
}

func TestGetStatistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	warsaw, _ := s.UpsertEntity(ctx, "Warszawa", "city", nil)
	krakow, _ := s.UpsertEntity(ctx, "Kraków", "city", nil)
	poland, _ := s.UpsertEntity(ctx, "Polska", "country", nil)
	_, err := s.UpsertRelation(ctx, warsaw, poland, "capital_of", 1.0, "")
	require.NoError(t, err)
	_, err = s.UpsertRelation(ctx, krakow, poland, "located_in", 1.0, "")
	require.NoError(t, err)

	stats, err := s.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.EntityCount)
	assert.Equal(t, int64(2), stats.RelationCount)
	assert.Equal(t, int64(2), stats.EntityTypeCounts["city"])
	assert.Equal(t, int64(1), stats.RelationTypeCounts["capital_of"])
}

func TestFacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("insert assigns ID and defaults", func(t *testing.T) {
		fact := &types.Fact{Content: "Warszawa is the capital of Polska", Confidence: 0.9}
		require.NoError(t, s.InsertFact(ctx, fact))
		require.NotEmpty(t, fact.ID)

		got, err := s.GetFact(ctx, fact.ID)
		require.NoError(t, err)
		assert.Equal(t, types.FactPending, got.Status)
		assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	})

	t.Run("status filter and confidence ordering", func(t *testing.T) {
		verified := &types.Fact{Content: "verified fact", Confidence: 0.6, Status: types.FactVerified}
		rejected := &types.Fact{Content: "rejected fact", Confidence: 0.95, Status: types.FactRejected}
		require.NoError(t, s.InsertFact(ctx, verified))
		require.NoError(t, s.InsertFact(ctx, rejected))

		facts, err := s.GetFactsByStatus(ctx, []types.FactStatus{types.FactVerified, types.FactPending}, 10)
		require.NoError(t, err)
		require.Len(t, facts, 2)
		// Ordered by confidence descending; the rejected fact is excluded.
		assert.InDelta(t, 0.9, facts[0].Confidence, 1e-9)
		assert.InDelta(t, 0.6, facts[1].Confidence, 1e-9)
	})

	t.Run("status transition", func(t *testing.T) {
		fact := &types.Fact{Content: "pending fact", Confidence: 0.5}
		require.NoError(t, s.InsertFact(ctx, fact))
		require.NoError(t, s.UpdateFactStatus(ctx, fact.ID, types.FactVerified))

		got, err := s.GetFact(ctx, fact.ID)
		require.NoError(t, err)
		assert.Equal(t, types.FactVerified, got.Status)
	})

	t.Run("bad confidence rejected", func(t *testing.T) {
		err := s.InsertFact(ctx, &types.Fact{Content: "x", Confidence: 1.5})
		assert.ErrorIs(t, err, types.ErrBadConfidence)
	})

	t.Run("missing fact", func(t *testing.T) {
		_, err := s.GetFact(ctx, "nope")
		assert.ErrorIs(t, err, ErrFactNotFound)

		err = s.UpdateFactStatus(ctx, "nope", types.FactVerified)
		assert.ErrorIs(t, err, ErrFactNotFound)
	})
}

func TestFragments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("round trip with embedding", func(t *testing.T) {
		fragment := &types.Fragment{
			ArticleID:   "art-1",
			Content:     "Warszawa is the capital of Polska.",
			Position:    0,
			SourceTitle: "Warszawa",
		}
		require.NoError(t, s.InsertFragment(ctx, fragment))
		require.NotEmpty(t, fragment.ID)

		require.NoError(t, s.MarkFragmentIndexed(ctx, fragment.ID, []float32{0.1, 0.2}))

		got, err := s.GetFragment(ctx, fragment.ID)
		require.NoError(t, err)
		assert.True(t, got.Indexed)
		assert.Equal(t, []float32{0.1, 0.2}, got.Embedding)
	})

	t.Run("indexed filter", func(t *testing.T) {
		unindexed := &types.Fragment{ArticleID: "art-1", Content: "not yet indexed", Position: 1}
		require.NoError(t, s.InsertFragment(ctx, unindexed))

		fragments, err := s.IndexedFragments(ctx)
		require.NoError(t, err)
		require.Len(t, fragments, 1)
		assert.True(t, fragments[0].Indexed)
	})

	t.Run("empty content rejected", func(t *testing.T) {
		err := s.InsertFragment(ctx, &types.Fragment{ArticleID: "art-1"})
		assert.ErrorIs(t, err, types.ErrEmptyContent)
	})

	t.Run("missing fragment", func(t *testing.T) {
		_, err := s.GetFragment(ctx, "nope")
		assert.ErrorIs(t, err, ErrFragmentNotFound)
	})
}
