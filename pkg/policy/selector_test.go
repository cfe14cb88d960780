package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlcraft/kgrag/pkg/retriever"
)

func TestExtractFeatures(t *testing.T) {
	t.Run("factual markers", func(t *testing.T) {
		f := ExtractFeatures("Ile mieszkańców ma Warszawa?")
		assert.Greater(t, f.FactualNeed, 0.0)
		assert.Zero(t, f.RelationalNeed)
	})

	t.Run("relational markers", func(t *testing.T) {
		f := ExtractFeatures("What is the relationship between Warszawa and Polska?")
		assert.Greater(t, f.RelationalNeed, 0.7)
	})

	t.Run("markerless query defaults to semantic", func(t *testing.T) {
		f := ExtractFeatures("old town renovation history")
		assert.Equal(t, 0.5, f.SemanticNeed)
	})

	t.Run("digits raise complexity", func(t *testing.T) {
		plain := ExtractFeatures("population of the city")
		numeric := ExtractFeatures("population of the city in 1939")
		assert.Greater(t, numeric.Complexity, plain.Complexity)
	})

	t.Run("urgency markers", func(t *testing.T) {
		f := ExtractFeatures("quick answer please")
		assert.Greater(t, f.Urgency, 0.0)
	})

	t.Run("expected tokens grow with query length", func(t *testing.T) {
		short := ExtractFeatures("one")
		long := ExtractFeatures("one two three four five")
		assert.Greater(t, long.ExpectedTokens, short.ExpectedTokens)
	})
}

func TestCostModel(t *testing.T) {
	m := DefaultCostModel()
	f := &Features{Complexity: 0.5}

	t.Run("hybrid costs most", func(t *testing.T) {
		hybrid := m.Cost(retriever.PolicyHybrid, f)
		for _, p := range []retriever.Policy{retriever.PolicyText, retriever.PolicyFacts, retriever.PolicyGraph} {
			assert.Greater(t, hybrid, m.Cost(p, f))
		}
	})

	t.Run("complexity scales generation cost", func(t *testing.T) {
		simple := m.Cost(retriever.PolicyText, &Features{Complexity: 0})
		complexQ := m.Cost(retriever.PolicyText, &Features{Complexity: 1})
		assert.Greater(t, complexQ, simple)
	})

	t.Run("graph skips the embedding step", func(t *testing.T) {
		graph := m.Cost(retriever.PolicyGraph, f)
		withEmbedding := m.EmbeddingCost + m.GraphSearchCost + m.LLMCost*(1+f.Complexity) + m.BaseOverhead
		assert.Less(t, graph, withEmbedding)
	})
}

func TestPerformance(t *testing.T) {
	t.Run("strong factual need favors facts", func(t *testing.T) {
		f := &Features{FactualNeed: 0.8}
		assert.Greater(t, Performance(retriever.PolicyFacts, f), Performance(retriever.PolicyFacts, &Features{}))
	})

	t.Run("urgency penalizes hybrid", func(t *testing.T) {
		urgent := &Features{Urgency: 0.6}
		assert.Less(t, Performance(retriever.PolicyHybrid, urgent), Performance(retriever.PolicyHybrid, &Features{}))
		assert.Greater(t, Performance(retriever.PolicyFacts, urgent), Performance(retriever.PolicyFacts, &Features{}))
	})

	t.Run("bounded", func(t *testing.T) {
		f := &Features{FactualNeed: 1, RelationalNeed: 1, SemanticNeed: 1, Complexity: 1, Urgency: 1}
		for _, p := range retriever.Policies() {
			score := Performance(p, f)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	})
}

func TestSelect(t *testing.T) {
	s := NewSelector(nil, nil, nil)

	t.Run("factual query selects facts", func(t *testing.T) {
		p, decision := s.Select("Ile mieszkańców ma Warszawa?", 0)
		assert.Equal(t, retriever.PolicyFacts, p)
		assert.False(t, decision.BudgetWarning)
		assert.NotEmpty(t, decision.Reasoning)
	})

	t.Run("relational query selects graph", func(t *testing.T) {
		p, _ := s.Select("What is the relationship between Warszawa and Polska?", 0)
		assert.Equal(t, retriever.PolicyGraph, p)
	})

	t.Run("semantic query selects text", func(t *testing.T) {
		p, _ := s.Select("Explain why and describe the meaning of the tradition", 0)
		assert.Equal(t, retriever.PolicyText, p)
	})

	t.Run("long markerless query selects hybrid", func(t *testing.T) {
		p, _ := s.Select("the history of the old town district includes many renovations carried out over several centuries by local craftsmen and architects working together", 0)
		assert.Equal(t, retriever.PolicyHybrid, p)
	})

	t.Run("every candidate is scored", func(t *testing.T) {
		_, decision := s.Select("anything at all", 0)
		require.Len(t, decision.Candidates, len(retriever.Policies()))
		for _, c := range decision.Candidates {
			assert.Positive(t, c.Cost)
			assert.Positive(t, c.Score)
		}
	})

	t.Run("budget filters candidates", func(t *testing.T) {
		// The budget admits only the cheapest retrieval mix even though a
		// pricier policy scores higher unconstrained.
		p, decision := s.Select("What is the relationship between Warszawa and Polska?", 4.0)
		assert.Equal(t, retriever.PolicyFacts, p)
		assert.False(t, decision.BudgetWarning)
	})

	t.Run("exhausted budget falls back to cheapest with warning", func(t *testing.T) {
		p, decision := s.Select("Ile mieszkańców ma Warszawa?", 0.01)
		assert.Equal(t, retriever.PolicyFacts, p)
		assert.True(t, decision.BudgetWarning)
		assert.Contains(t, decision.Reasoning, "budget")
	})
}

func TestQuality(t *testing.T) {
	t.Run("empty outcome scores zero", func(t *testing.T) {
		assert.Zero(t, Quality(QualityInputs{}))
	})

	t.Run("saturated outcome scores one", func(t *testing.T) {
		q := Quality(QualityInputs{ResultCount: 10, AverageScore: 1.0, ContextLength: 5000})
		assert.InDelta(t, 1.0, q, 1e-9)
	})

	t.Run("partial outcome", func(t *testing.T) {
		// count 2/5, avg 0.6, length 1000/2000 -> (0.4+0.6+0.5)/3
		q := Quality(QualityInputs{ResultCount: 2, AverageScore: 0.6, ContextLength: 1000})
		assert.InDelta(t, 0.5, q, 1e-9)
	})

	t.Run("inputs are clamped", func(t *testing.T) {
		q := Quality(QualityInputs{ResultCount: 100, AverageScore: 7.0, ContextLength: 100000})
		assert.InDelta(t, 1.0, q, 1e-9)
	})
}
