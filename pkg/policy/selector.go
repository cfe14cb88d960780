package policy

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/nlcraft/kgrag/pkg/retriever"
)

// SelectorConfig tunes policy scoring and the quality gate.
type SelectorConfig struct {
	// CostWeight and PerformanceWeight balance the two scoring terms.
	CostWeight        float64 `mapstructure:"cost_weight"`
	PerformanceWeight float64 `mapstructure:"performance_weight"`
	// QualityThreshold triggers the hybrid fallback when the executed
	// policy's composite quality falls below it.
	QualityThreshold float64 `mapstructure:"quality_threshold"`
}

// DefaultSelectorConfig returns the default selector configuration.
func DefaultSelectorConfig() *SelectorConfig {
	return &SelectorConfig{
		CostWeight:        0.4,
		PerformanceWeight: 0.6,
		QualityThreshold:  0.45,
	}
}

// PolicyScore records the evaluation of one candidate policy.
type PolicyScore struct {
	Policy      retriever.Policy `json:"policy"`
	Cost        float64          `json:"cost"`
	Performance float64          `json:"performance"`
	Score       float64          `json:"score"`
	Affordable  bool             `json:"affordable"`
}

// Decision is the structured explanation of a selection.
type Decision struct {
	Policy        retriever.Policy `json:"policy"`
	Features      *Features        `json:"features"`
	Candidates    []*PolicyScore   `json:"candidates"`
	BudgetLimit   float64          `json:"budget_limit,omitempty"`
	BudgetWarning bool             `json:"budget_warning,omitempty"`
	Reasoning     string           `json:"reasoning"`
}

// Selector picks a retrieval policy per query from the closed policy set.
type Selector struct {
	config *SelectorConfig
	costs  *CostModel
	logger *slog.Logger
}

// NewSelector creates a policy selector.
func NewSelector(config *SelectorConfig, costs *CostModel, logger *slog.Logger) *Selector {
	if config == nil {
		config = DefaultSelectorConfig()
	}
	if costs == nil {
		costs = DefaultCostModel()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{config: config, costs: costs, logger: logger}
}

// Select scores every candidate policy for the query and returns the arg-max
// plus the full decision detail. budgetLimit <= 0 means unlimited. When the
// budget excludes every policy the cheapest one is selected anyway and a
// warning is recorded; a budget miss never fails the request.
func (s *Selector) Select(query string, budgetLimit float64) (retriever.Policy, *Decision) {
	features := ExtractFeatures(query)

	decision := &Decision{
		Features:    features,
		BudgetLimit: budgetLimit,
	}

	for _, candidate := range retriever.Policies() {
		cost := s.costs.Cost(candidate, features)
		performance := Performance(candidate, features)
		score := s.config.CostWeight*(1/(1+cost)) + s.config.PerformanceWeight*performance
		decision.Candidates = append(decision.Candidates, &PolicyScore{
			Policy:      candidate,
			Cost:        cost,
			Performance: performance,
			Score:       score,
			Affordable:  budgetLimit <= 0 || cost <= budgetLimit,
		})
	}

	affordable := make([]*PolicyScore, 0, len(decision.Candidates))
	for _, candidate := range decision.Candidates {
		if candidate.Affordable {
			affordable = append(affordable, candidate)
		}
	}

	var chosen *PolicyScore
	if len(affordable) == 0 {
		// Nothing fits the budget: take the cheapest policy and warn.
		cheapest := decision.Candidates[0]
		for _, candidate := range decision.Candidates[1:] {
			if candidate.Cost < cheapest.Cost {
				cheapest = candidate
			}
		}
		chosen = cheapest
		decision.BudgetWarning = true
		s.logger.Warn("budget excludes every policy, using cheapest",
			"budget", budgetLimit, "policy", chosen.Policy, "cost", chosen.Cost)
	} else {
		sort.SliceStable(affordable, func(i, j int) bool {
			return affordable[i].Score > affordable[j].Score
		})
		chosen = affordable[0]
	}

	decision.Policy = chosen.Policy
	decision.Reasoning = s.explain(chosen, features, decision.BudgetWarning)
	return chosen.Policy, decision
}

func (s *Selector) explain(chosen *PolicyScore, f *Features, budgetWarning bool) string {
	if budgetWarning {
		return fmt.Sprintf("budget excluded all policies; fell back to cheapest (%s, cost %.2f)",
			chosen.Policy, chosen.Cost)
	}
	return fmt.Sprintf(
		"%s scored %.3f (cost %.2f, performance %.2f; factual=%.2f relational=%.2f semantic=%.2f complexity=%.2f urgency=%.2f)",
		chosen.Policy, chosen.Score, chosen.Cost, chosen.Performance,
		f.FactualNeed, f.RelationalNeed, f.SemanticNeed, f.Complexity, f.Urgency)
}

// QualityThreshold exposes the configured fallback threshold.
func (s *Selector) QualityThreshold() float64 {
	return s.config.QualityThreshold
}
