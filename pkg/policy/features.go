// Package policy implements the adaptive retrieval strategy selector: lexical
// query features drive a cost/performance model that picks one policy under
// an optional budget, with a post-execution quality gate falling back to
// hybrid fusion when the chosen policy underperforms.
package policy

import (
	"strings"

	"github.com/nlcraft/kgrag/pkg/utils"
)

// Features holds the lexical query signals, each in [0,1], plus a token
// estimate for the generation step.
type Features struct {
	Complexity     float64 `json:"complexity"`
	FactualNeed    float64 `json:"factual_need"`
	RelationalNeed float64 `json:"relational_need"`
	SemanticNeed   float64 `json:"semantic_need"`
	Urgency        float64 `json:"urgency"`
	ExpectedTokens int     `json:"expected_tokens"`
}

// Marker word lists for the lexical heuristics. Queries arrive in English or
// Polish, so both are covered.
var (
	factualMarkers = []string{
		"how many", "how much", "when", "who", "where", "which year", "what year",
		"population", "number", "date", "count",
		"ile", "kiedy", "kto", "gdzie", "którym roku", "liczba", "data",
	}
	relationalMarkers = []string{
		"related", "relationship", "between", "connection", "connected", "link",
		"compare", "difference", "versus", " vs ",
		"związek", "relacja", "między", "połączenie", "porównaj", "różnica",
	}
	semanticMarkers = []string{
		"explain", "describe", "why", "how does", "summarize", "meaning", "overview",
		"wyjaśnij", "opisz", "dlaczego", "jak działa", "podsumuj", "znaczenie",
	}
	urgencyMarkers = []string{
		"quick", "quickly", "fast", "now", "urgent", "briefly", "short",
		"szybko", "teraz", "pilne", "krótko",
	}
)

func markerScore(query string, markers []string, perHit float64) float64 {
	score := 0.0
	for _, marker := range markers {
		if strings.Contains(query, marker) {
			score += perHit
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

// ExtractFeatures derives query features from lexical heuristics.
func ExtractFeatures(query string) *Features {
	lower := strings.ToLower(query)
	tokens := utils.Tokenize(lower)

	f := &Features{}

	// Complexity grows with query length and digit presence.
	f.Complexity = float64(len(tokens)) / 25.0
	if f.Complexity > 1 {
		f.Complexity = 1
	}
	if utils.ContainsNumber(query) {
		f.Complexity += 0.1
		if f.Complexity > 1 {
			f.Complexity = 1
		}
	}

	f.FactualNeed = markerScore(lower, factualMarkers, 0.4)
	f.RelationalNeed = markerScore(lower, relationalMarkers, 0.4)
	f.SemanticNeed = markerScore(lower, semanticMarkers, 0.35)
	f.Urgency = markerScore(lower, urgencyMarkers, 0.5)

	// A query matching no marker class still needs semantic retrieval.
	if f.FactualNeed == 0 && f.RelationalNeed == 0 && f.SemanticNeed == 0 {
		f.SemanticNeed = 0.5
	}

	// Rough completion-size estimate from query length.
	f.ExpectedTokens = 64 + 8*len(tokens)

	return f
}
