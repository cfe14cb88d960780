package retriever

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlcraft/kgrag/pkg/store"
	"github.com/nlcraft/kgrag/pkg/types"
)

// stubEmbedder produces fixed keyword-axis vectors so cosine similarity is
// predictable: axis 0 fires on "capital", axis 1 on "river", axis 2 otherwise.
type stubEmbedder struct {
	fail bool
}

func (s *stubEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := []float32{0, 0, 0}
	switch {
	case strings.Contains(lower, "capital"):
		v[0] = 1
	case strings.Contains(lower, "river"):
		v[1] = 1
	default:
		v[2] = 1
	}
	return v
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.fail {
		return nil, errors.New("embedder down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.vector(t)
	}
	return out, nil
}

func (s *stubEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if s.fail {
		return nil, errors.New("embedder down")
	}
	return s.vector(text), nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }
func (s *stubEmbedder) Close() error    { return nil }

func newTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedFragments(t *testing.T, s *store.SQLStore, e *stubEmbedder) {
	t.Helper()
	ctx := context.Background()

	fragments := []*types.Fragment{
		{ID: "f-capital", Content: "Warszawa is the capital of Polska.", SourceTitle: "Warszawa"},
		{ID: "f-river", Content: "The Wisła river flows through the city.", SourceTitle: "Wisła"},
		{ID: "f-other", Content: "Pierogi are a traditional dish.", SourceTitle: "Cuisine"},
	}
	for _, f := range fragments {
		require.NoError(t, s.InsertFragment(ctx, f))
		var embedding []float32
		if e != nil {
			embedding = e.vector(f.Content)
		}
		require.NoError(t, s.MarkFragmentIndexed(ctx, f.ID, embedding))
	}
}

func TestTextRetrieverDense(t *testing.T) {
	s := newTestStore(t)
	emb := &stubEmbedder{}
	seedFragments(t, s, emb)

	r := NewTextRetriever(s, emb, nil, nil)

	results, err := r.Search(context.Background(), "What is the capital?", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "f-capital", results[0].FragmentID)
	assert.Equal(t, 1, results[0].Rank)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	for i, res := range results {
		assert.Equal(t, i+1, res.Rank)
	}
}

func TestTextRetrieverLexicalFallback(t *testing.T) {
	t.Run("embedder failure", func(t *testing.T) {
		s := newTestStore(t)
		emb := &stubEmbedder{}
		seedFragments(t, s, emb)

		r := NewTextRetriever(s, &stubEmbedder{fail: true}, nil, nil)
		results, err := r.Search(context.Background(), "Wisła river city", 5)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "f-river", results[0].FragmentID)
	})

	t.Run("nil embedder", func(t *testing.T) {
		s := newTestStore(t)
		seedFragments(t, s, nil)

		r := NewTextRetriever(s, nil, nil, nil)
		results, err := r.Search(context.Background(), "traditional pierogi dish", 5)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "f-other", results[0].FragmentID)
	})
}

func TestTextRetrieverThresholdFallback(t *testing.T) {
	s := newTestStore(t)
	seedFragments(t, s, nil)

	// A threshold nothing can clear still yields the top-limit results.
	config := DefaultConfig()
	config.SimilarityThreshold = 0.99
	r := NewTextRetriever(s, nil, config, nil)

	results, err := r.Search(context.Background(), "completely unrelated query", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestTextRetrieverEdgeCases(t *testing.T) {
	s := newTestStore(t)
	r := NewTextRetriever(s, nil, nil, nil)

	t.Run("invalid limit", func(t *testing.T) {
		_, err := r.Search(context.Background(), "anything", 0)
		assert.ErrorIs(t, err, types.ErrInvalidLimit)
	})

	t.Run("empty index", func(t *testing.T) {
		results, err := r.Search(context.Background(), "anything", 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func seedFacts(t *testing.T, s *store.SQLStore) {
	t.Helper()
	ctx := context.Background()

	facts := []*types.Fact{
		{ID: "fact-capital", Content: "Warszawa is the capital of Polska", Confidence: 0.95, Status: types.FactVerified},
		{ID: "fact-pop", Content: "Warszawa has 1.8 million residents", Confidence: 0.8, Status: types.FactPending},
		{ID: "fact-low", Content: "Warszawa might be the capital", Confidence: 0.2, Status: types.FactPending},
		{ID: "fact-rejected", Content: "Warszawa is the capital of Germany", Confidence: 0.9, Status: types.FactRejected},
	}
	for _, f := range facts {
		require.NoError(t, s.InsertFact(ctx, f))
	}
}

func TestFactRetriever(t *testing.T) {
	s := newTestStore(t)
	seedFacts(t, s)
	r := NewFactRetriever(s, nil, nil, nil)

	t.Run("ranks by similarity and filters low confidence", func(t *testing.T) {
		results, err := r.Search(context.Background(), "capital of Polska", 5)
		require.NoError(t, err)
		require.NotEmpty(t, results)

		assert.Equal(t, "fact-capital", results[0].FactID)
		for _, res := range results {
			assert.NotEqual(t, "fact-rejected", res.FactID)
			assert.NotEqual(t, "fact-low", res.FactID)
		}
	})

	t.Run("threshold fallback keeps top candidates", func(t *testing.T) {
		results, err := r.Search(context.Background(), "zzz qqq xxx", 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("ranks are sequential", func(t *testing.T) {
		results, err := r.Search(context.Background(), "Warszawa capital", 5)
		require.NoError(t, err)
		for i, res := range results {
			assert.Equal(t, i+1, res.Rank)
		}
	})

	t.Run("empty store", func(t *testing.T) {
		empty := newTestStore(t)
		results, err := NewFactRetriever(empty, nil, nil, nil).Search(context.Background(), "anything", 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("invalid limit", func(t *testing.T) {
		_, err := r.Search(context.Background(), "anything", -1)
		assert.ErrorIs(t, err, types.ErrInvalidLimit)
	})
}

func TestGraphRetriever(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	warsaw, err := s.UpsertEntity(ctx, "Warszawa", "city", nil)
	require.NoError(t, err)
	poland, err := s.UpsertEntity(ctx, "Polska", "country", nil)
	require.NoError(t, err)
	_, err = s.UpsertEntity(ctx, "Berlin", "city", nil)
	require.NoError(t, err)
	_, err = s.UpsertRelation(ctx, warsaw, poland, "capital_of", 0.8, "")
	require.NoError(t, err)

	r := NewGraphRetriever(s, nil, nil, nil)

	t.Run("finds path between matched entities", func(t *testing.T) {
		result := r.Search(ctx, "Is Warszawa in Polska?", 10)
		require.Empty(t, result.Err)
		require.Len(t, result.Entities, 2)
		require.Len(t, result.Paths, 1)
		assert.InDelta(t, 0.8, result.Paths[0].Score, 1e-9)
		assert.Len(t, result.Paths[0].Edges, 1)
	})

	t.Run("short tokens are ignored", func(t *testing.T) {
		result := r.Search(ctx, "is in of", 10)
		require.Empty(t, result.Err)
		assert.Empty(t, result.Entities)
		assert.Empty(t, result.Paths)
	})

	t.Run("unreachable pair yields no path", func(t *testing.T) {
		result := r.Search(ctx, "Warszawa Berlin", 10)
		require.Empty(t, result.Err)
		assert.Len(t, result.Entities, 2)
		assert.Empty(t, result.Paths)
	})

	t.Run("maxPaths caps output", func(t *testing.T) {
		krakow, err := s.UpsertEntity(ctx, "Kraków", "city", nil)
		require.NoError(t, err)
		_, err = s.UpsertRelation(ctx, krakow, poland, "located_in", 0.6, "")
		require.NoError(t, err)

		result := r.Search(ctx, "Warszawa Kraków Polska", 1)
		require.Empty(t, result.Err)
		assert.Len(t, result.Paths, 1)
	})
}

func TestGraphRetrieverStoreFailure(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	r := NewGraphRetriever(s, nil, nil, nil)
	result := r.Search(context.Background(), "Warszawa", 10)
	assert.NotEmpty(t, result.Err)
	assert.Empty(t, result.Entities)
}
