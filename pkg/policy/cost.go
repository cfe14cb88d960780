package policy

import "github.com/nlcraft/kgrag/pkg/retriever"

// CostModel holds unit costs for the operations a policy performs. Values are
// abstract cost units; only their ratios matter for selection.
type CostModel struct {
	EmbeddingCost    float64 `mapstructure:"embedding_cost"`
	VectorSearchCost float64 `mapstructure:"vector_search_cost"`
	SQLSearchCost    float64 `mapstructure:"sql_search_cost"`
	GraphSearchCost  float64 `mapstructure:"graph_search_cost"`
	LLMCost          float64 `mapstructure:"llm_cost"`
	BaseOverhead     float64 `mapstructure:"base_overhead"`
}

// DefaultCostModel returns the default unit costs. Graph search is the most
// expensive retrieval step because of the BFS scans; hybrid pays for all
// three.
func DefaultCostModel() *CostModel {
	return &CostModel{
		EmbeddingCost:    0.5,
		VectorSearchCost: 1.0,
		SQLSearchCost:    0.6,
		GraphSearchCost:  1.8,
		LLMCost:          2.0,
		BaseOverhead:     0.2,
	}
}

// Cost estimates the total cost of running a policy for a query with the
// given features: embedding plus the policy-specific search mix plus a
// complexity-scaled generation cost plus overhead.
func (m *CostModel) Cost(p retriever.Policy, f *Features) float64 {
	var search float64
	embedding := m.EmbeddingCost
	switch p {
	case retriever.PolicyText:
		search = m.VectorSearchCost
	case retriever.PolicyFacts:
		search = m.SQLSearchCost
	case retriever.PolicyGraph:
		search = m.GraphSearchCost
		// Entity matching is lexical; no query embedding needed.
		embedding = 0
	case retriever.PolicyHybrid:
		search = m.VectorSearchCost + m.SQLSearchCost + m.GraphSearchCost
	}
	return embedding + search + m.LLMCost*(1+f.Complexity) + m.BaseOverhead
}

// Profile is the static performance profile of a policy.
type Profile struct {
	Accuracy           float64
	ContextUtilization float64
	Reliability        float64
}

// profiles holds the static per-policy performance estimates. Hybrid trades
// reliability of any single source for coverage; facts are the most reliable
// but the narrowest.
var profiles = map[retriever.Policy]Profile{
	retriever.PolicyText:   {Accuracy: 0.65, ContextUtilization: 0.75, Reliability: 0.80},
	retriever.PolicyFacts:  {Accuracy: 0.80, ContextUtilization: 0.55, Reliability: 0.90},
	retriever.PolicyGraph:  {Accuracy: 0.70, ContextUtilization: 0.60, Reliability: 0.75},
	retriever.PolicyHybrid: {Accuracy: 0.85, ContextUtilization: 0.80, Reliability: 0.70},
}

// Performance scores a policy against the query features: the weighted static
// profile adjusted by feature-match bonuses and an urgency-vs-latency term.
func Performance(p retriever.Policy, f *Features) float64 {
	profile := profiles[p]
	score := 0.5*profile.Accuracy + 0.25*profile.ContextUtilization + 0.25*profile.Reliability

	switch p {
	case retriever.PolicyFacts:
		if f.FactualNeed > 0.7 {
			score += 0.2
		}
	case retriever.PolicyGraph:
		if f.RelationalNeed > 0.7 {
			score += 0.2
		}
	case retriever.PolicyText:
		if f.SemanticNeed > 0.7 {
			score += 0.15
		}
	case retriever.PolicyHybrid:
		if f.Complexity > 0.6 {
			score += 0.15
		}
	}

	// Urgent queries favor the cheap single-source policies; hybrid's fan-out
	// latency is penalized.
	if f.Urgency > 0.5 {
		if p == retriever.PolicyHybrid {
			score -= 0.1
		} else {
			score += 0.05
		}
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
