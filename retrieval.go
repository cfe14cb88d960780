package kgrag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nlcraft/kgrag/pkg/fusion"
	"github.com/nlcraft/kgrag/pkg/nlp"
	"github.com/nlcraft/kgrag/pkg/policy"
	"github.com/nlcraft/kgrag/pkg/retriever"
	"github.com/nlcraft/kgrag/pkg/telemetry"
	"github.com/nlcraft/kgrag/pkg/types"
)

const answerSystemPrompt = `You answer questions using only the provided context.
If the context does not contain the answer, say so. Be concise.`

// defaultAnswerLimit is the per-source result cap when the caller sets none.
const defaultAnswerLimit = 5

// AnswerOptions customizes a single Answer call.
type AnswerOptions struct {
	// Policy forces a retrieval strategy; empty selects adaptively.
	Policy retriever.Policy
	// BudgetLimit constrains the selector's cost model; <= 0 is unlimited.
	BudgetLimit float64
	// Limit caps results per source. Defaults to 5.
	Limit int
	// Temperature and MaxTokens pass through to the generator.
	Temperature float32
	MaxTokens   int
}

// Answer is the result of one query.
type Answer struct {
	Text  string `json:"text"`
	Query string `json:"query"`

	// Policy is the originally selected strategy, FinalPolicy the one whose
	// results produced the answer (they differ when the quality gate
	// re-routed through hybrid fusion).
	Policy      retriever.Policy `json:"policy"`
	FinalPolicy retriever.Policy `json:"final_policy"`
	Decision    *policy.Decision `json:"decision,omitempty"`

	Quality      float64 `json:"quality"`
	FallbackUsed bool    `json:"fallback_used"`

	// NoContext marks the explicit no-context result: every source returned
	// empty and the answer is not grounded.
	NoContext bool   `json:"no_context"`
	Context   string `json:"context,omitempty"`

	// Degraded marks answers produced without the generator (extractive
	// summary of the retrieved context).
	Degraded bool      `json:"degraded,omitempty"`
	Model    string    `json:"model,omitempty"`
	Usage    nlp.Usage `json:"usage"`
}

// outcome is one executed retrieval pass, summarized for the quality gate.
type outcome struct {
	policy      retriever.Policy
	context     string
	resultCount int
	avgScore    float64
	fused       *fusion.Results
}

func (o *outcome) quality() float64 {
	return policy.Quality(policy.QualityInputs{
		ResultCount:   o.resultCount,
		AverageScore:  o.avgScore,
		ContextLength: len(o.context),
	})
}

// Answer runs the full pipeline: select a policy, retrieve, optionally
// re-route through hybrid fusion when quality is low, then generate.
func (c *Client) Answer(ctx context.Context, query string, opts *AnswerOptions) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if opts == nil {
		opts = &AnswerOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultAnswerLimit
	}
	if c.config.AnswerTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.config.AnswerTimeout)
			defer cancel()
		}
	}
	started := time.Now()

	chosen := opts.Policy
	var decision *policy.Decision
	if chosen == "" {
		chosen, decision = c.selector.Select(query, opts.BudgetLimit)
	}

	executed := c.execute(ctx, chosen, query, limit)
	quality := executed.quality()

	// Post-execution quality gate: low quality on a non-hybrid policy
	// re-routes through fusion. The better of the two outcomes wins, so the
	// recorded quality never regresses below the original.
	fallbackUsed := false
	if quality < c.selector.QualityThreshold() && chosen != retriever.PolicyHybrid {
		fallback := c.execute(ctx, retriever.PolicyHybrid, query, limit)
		if fq := fallback.quality(); fq > quality {
			executed = fallback
			quality = fq
			fallbackUsed = true
		}
	}

	answer := &Answer{
		Query:        query,
		Policy:       chosen,
		FinalPolicy:  executed.policy,
		Decision:     decision,
		Quality:      quality,
		FallbackUsed: fallbackUsed,
		Context:      executed.context,
	}

	if executed.resultCount == 0 {
		// Explicit no-context result, not an error: the caller decides how
		// to surface an ungrounded query.
		answer.NoContext = true
	} else {
		c.generate(ctx, query, executed.context, opts, answer)
	}

	c.record(answer, decision, executed, time.Since(started))
	return answer, nil
}

// execute runs one retrieval strategy and summarizes it for the quality gate.
func (c *Client) execute(ctx context.Context, p retriever.Policy, query string, limit int) *outcome {
	switch p {
	case retriever.PolicyText:
		results, err := c.text.Search(ctx, query, limit)
		if err != nil {
			c.logger.Warn("text retrieval failed", "error", err)
			return &outcome{policy: p}
		}
		return c.textOutcome(results)

	case retriever.PolicyFacts:
		results, err := c.facts.Search(ctx, query, limit)
		if err != nil {
			c.logger.Warn("fact retrieval failed", "error", err)
			return &outcome{policy: p}
		}
		return c.factOutcome(results)

	case retriever.PolicyGraph:
		result := c.graph.Search(ctx, query, 0)
		return c.graphOutcome(ctx, result)

	case retriever.PolicyHybrid:
		fused := c.combiner.Retrieve(ctx, query, limit)
		return c.fusedOutcome(ctx, fused)

	default:
		c.logger.Warn("unknown policy, treating as empty", "policy", p)
		return &outcome{policy: p}
	}
}

func (c *Client) textOutcome(results []*types.TextResult) *outcome {
	o := &outcome{policy: retriever.PolicyText, resultCount: len(results)}
	var b strings.Builder
	var sum float64
	for _, res := range results {
		fmt.Fprintf(&b, "[%d] %s", res.Rank, res.Content)
		if res.SourceTitle != "" {
			fmt.Fprintf(&b, " (source: %s)", res.SourceTitle)
		}
		b.WriteString("\n")
		sum += clamp01(res.Similarity)
	}
	o.context = b.String()
	if len(results) > 0 {
		o.avgScore = sum / float64(len(results))
	}
	return o
}

func (c *Client) factOutcome(results []*types.FactResult) *outcome {
	o := &outcome{policy: retriever.PolicyFacts, resultCount: len(results)}
	var b strings.Builder
	var sum float64
	for _, res := range results {
		fmt.Fprintf(&b, "[%d] %s (confidence %.2f)\n", res.Rank, res.Content, res.Confidence)
		sum += clamp01(minFloat(res.Similarity, res.Confidence))
	}
	o.context = b.String()
	if len(results) > 0 {
		o.avgScore = sum / float64(len(results))
	}
	return o
}

func (c *Client) graphOutcome(ctx context.Context, result *types.GraphResult) *outcome {
	o := &outcome{policy: retriever.PolicyGraph, resultCount: len(result.Paths)}
	names := entityNames(result.Entities)
	var b strings.Builder
	var sum float64
	for i, path := range result.Paths {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, c.renderPath(ctx, path, names))
		sum += clamp01(path.Score)
	}
	o.context = b.String()
	if len(result.Paths) > 0 {
		o.avgScore = sum / float64(len(result.Paths))
	}
	return o
}

func (c *Client) fusedOutcome(ctx context.Context, fused *fusion.Results) *outcome {
	o := &outcome{
		policy:      retriever.PolicyHybrid,
		resultCount: len(fused.Items),
		fused:       fused,
	}
	if fused.Empty {
		return o
	}

	names := map[string]string{}
	var b strings.Builder
	var sum float64
	for i, item := range fused.Items {
		switch item.Type {
		case retriever.PolicyText:
			fmt.Fprintf(&b, "[%d] %s\n", i+1, item.Text.Content)
		case retriever.PolicyFacts:
			fmt.Fprintf(&b, "[%d] %s (confidence %.2f)\n", i+1, item.Fact.Content, item.Fact.Confidence)
		case retriever.PolicyGraph:
			fmt.Fprintf(&b, "[%d] %s\n", i+1, c.renderPath(ctx, item.Path, names))
		}
		sum += clamp01(item.Score)
	}
	o.context = b.String()
	if len(fused.Items) > 0 {
		o.avgScore = sum / float64(len(fused.Items))
	}
	return o
}

// renderPath formats a path as "A -[type 0.80]-> B -> ...", resolving entity
// names through the store with a per-call cache.
func (c *Client) renderPath(ctx context.Context, path *types.GraphPath, names map[string]string) string {
	resolve := func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		name := id
		if entity, err := c.store.GetEntity(ctx, id); err == nil {
			name = entity.Name
		}
		names[id] = name
		return name
	}

	var b strings.Builder
	for i, edge := range path.Edges {
		if i == 0 {
			b.WriteString(resolve(edge.SourceEntityID))
		}
		fmt.Fprintf(&b, " -[%s %.2f]-> %s", edge.RelationType, edge.Weight, resolve(edge.TargetEntityID))
	}
	return b.String()
}

// generate produces the answer text, degrading to an extractive summary when
// the generator is unavailable.
func (c *Client) generate(ctx context.Context, query, contextText string, opts *AnswerOptions, answer *Answer) {
	if c.generator != nil {
		resp, err := c.generator.Generate(ctx, &nlp.GenerateRequest{
			Prompt:       fmt.Sprintf("Context:\n%s\nQuestion: %s", contextText, query),
			SystemPrompt: answerSystemPrompt,
			Temperature:  opts.Temperature,
			MaxTokens:    opts.MaxTokens,
		})
		if err == nil {
			answer.Text = resp.Text
			answer.Model = resp.Model
			answer.Usage = resp.Usage
			return
		}
		c.logger.Warn("generator unavailable, returning extractive answer", "error", err)
	}

	// Degraded path: surface the top context lines directly.
	lines := strings.SplitN(contextText, "\n", 4)
	if len(lines) > 3 {
		lines = lines[:3]
	}
	answer.Text = strings.Join(lines, "\n")
	answer.Degraded = true
}

func (c *Client) record(answer *Answer, decision *policy.Decision, executed *outcome, elapsed time.Duration) {
	if c.recorder == nil {
		return
	}

	record := telemetry.DecisionRecord{
		Query:          answer.Query,
		Policy:         string(answer.Policy),
		FinalPolicy:    string(answer.FinalPolicy),
		Quality:        answer.Quality,
		FallbackUsed:   answer.FallbackUsed,
		ResultCount:    int32(executed.resultCount),
		DurationMillis: elapsed.Milliseconds(),
	}
	if decision != nil {
		record.BudgetWarning = decision.BudgetWarning
		for _, candidate := range decision.Candidates {
			if candidate.Policy == decision.Policy {
				record.Cost = candidate.Cost
			}
		}
	}
	if err := c.recorder.Record(record); err != nil {
		c.logger.Warn("failed to record decision telemetry", "error", err)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func entityNames(entities []*types.Entity) map[string]string {
	names := make(map[string]string, len(entities))
	for _, entity := range entities {
		names[entity.ID] = entity.Name
	}
	return names
}
