package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"

	"github.com/nlcraft/kgrag/pkg/nlp"
	"github.com/nlcraft/kgrag/pkg/types"
)

const extractionSystemPrompt = `You extract knowledge triples from text.
Return ONLY a JSON array of objects with keys "subject", "relation", "object",
"subject_type", "object_type" and "confidence" (number in [0,1]). No prose.`

// LLMExtractor extracts triples by prompting a language model. Model output
// is routinely malformed JSON, so it passes through jsonrepair before
// decoding.
type LLMExtractor struct {
	generator nlp.Client
	ontology  *Ontology
}

// NewLLMExtractor creates a generator-backed extractor.
func NewLLMExtractor(generator nlp.Client, ontology *Ontology) *LLMExtractor {
	if ontology == nil {
		ontology = DefaultOntology()
	}
	return &LLMExtractor{generator: generator, ontology: ontology}
}

// Extract prompts the model for triples over the whole text.
func (e *LLMExtractor) Extract(ctx context.Context, text string) ([]*types.Triple, error) {
	prompt := fmt.Sprintf(
		"Entity types: %s\nRelation types: %s\n\nText:\n%s",
		strings.Join(e.ontology.EntityLabels, ", "),
		strings.Join(e.ontology.RelationLabels, ", "),
		text)

	resp, err := e.generator.Generate(ctx, &nlp.GenerateRequest{
		Prompt:       prompt,
		SystemPrompt: extractionSystemPrompt,
		Temperature:  0.1,
		MaxTokens:    1024,
	})
	if err != nil {
		return nil, fmt.Errorf("triple extraction failed: %w", err)
	}

	payload := strings.TrimSpace(resp.Text)
	if start := strings.Index(payload, "["); start >= 0 {
		payload = payload[start:]
	}
	payload, _ = jsonrepair.JSONRepair(payload)

	var triples []*types.Triple
	if err := json.Unmarshal([]byte(payload), &triples); err != nil {
		return nil, fmt.Errorf("failed to decode extracted triples: %w", err)
	}

	kept := triples[:0]
	for _, triple := range triples {
		if triple.Subject == "" || triple.Object == "" {
			continue
		}
		if triple.Relation == "" {
			triple.Relation = "related_to"
		}
		if triple.Confidence <= 0 || triple.Confidence > 1 {
			triple.Confidence = fallbackConfidence
		}
		kept = append(kept, triple)
	}
	return kept, nil
}
