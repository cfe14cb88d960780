// Package extract turns raw text fragments into candidate (subject, relation,
// object, confidence) triples that populate the knowledge graph. The primary
// path uses a named-entity recognizer; without one the pipeline degrades to a
// crude copular split with fixed lower confidence.
package extract

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/nlcraft/kgrag/pkg/types"
	"github.com/nlcraft/kgrag/pkg/utils"
)

const (
	// minSentenceLen filters sentences too short to carry a triple.
	minSentenceLen = 20
	// baseConfidence is the starting confidence of a recognizer-backed triple.
	baseConfidence = 0.6
	// fallbackConfidence is the fixed confidence of copular-split triples.
	fallbackConfidence = 0.3
	// maxConfidence caps extraction confidence.
	maxConfidence = 0.95
)

// copularMarkers split a sentence into a crude subject/object pair when no
// recognizer is available. " to " doubles as the Polish copula.
var copularMarkers = []string{" is ", " are ", " was ", " were ", " to ", " jest ", " są "}

// Pipeline extracts triples from fragment text.
type Pipeline struct {
	recognizer Recognizer
	ontology   *Ontology
	logger     *slog.Logger
}

// NewPipeline creates an extraction pipeline. recognizer may be nil; the
// copular fallback then always applies.
func NewPipeline(recognizer Recognizer, ontology *Ontology, logger *slog.Logger) *Pipeline {
	if ontology == nil {
		ontology = DefaultOntology()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		recognizer: recognizer,
		ontology:   ontology,
		logger:     logger,
	}
}

// Extract returns candidate triples for the fragment text. A recognizer
// failure mid-run degrades the remaining sentences to the fallback path
// rather than aborting the batch.
func (p *Pipeline) Extract(ctx context.Context, text string) ([]*types.Triple, error) {
	var triples []*types.Triple
	recognizer := p.recognizer

	for _, sentence := range utils.SplitSentences(text) {
		if len(sentence) < minSentenceLen {
			continue
		}

		if recognizer != nil {
			triple, err := p.extractWithRecognizer(ctx, recognizer, sentence)
			if err != nil {
				p.logger.Warn("recognizer unavailable, degrading to copular split", "error", err)
				recognizer = nil
			} else {
				if triple != nil {
					triples = append(triples, triple)
				}
				continue
			}
		}

		if triple := p.extractCopular(sentence); triple != nil {
			triples = append(triples, triple)
		}
	}
	return triples, nil
}

// extractWithRecognizer takes the first two recognized spans of a sentence as
// subject and object and labels the relation from the text between them.
func (p *Pipeline) extractWithRecognizer(ctx context.Context, recognizer Recognizer, sentence string) (*types.Triple, error) {
	spans, err := recognizer.Entities(ctx, sentence, p.ontology.EntityLabels)
	if err != nil {
		return nil, err
	}
	if len(spans) < 2 {
		return nil, nil
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	subject, object := spans[0], spans[1]

	confidence := baseConfidence
	if len(sentence) > 80 {
		confidence += 0.1
	}
	if len(sentence) > 160 {
		confidence += 0.1
	}
	if utils.ContainsNumber(sentence) {
		confidence += 0.1
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	return &types.Triple{
		Subject:     subject.Text,
		Object:      object.Text,
		SubjectType: subject.Label,
		ObjectType:  object.Label,
		Relation:    p.relationLabel(sentence, subject, object),
		Confidence:  confidence,
	}, nil
}

// relationLabel picks the relation from the sentence text between the two
// spans: the first known ontology label if one occurs there, otherwise the
// first verb-ish token, otherwise "related_to".
func (p *Pipeline) relationLabel(sentence string, subject, object Span) string {
	between := ""
	if subject.End >= 0 && object.Start > subject.End && object.Start <= len(sentence) {
		between = strings.ToLower(sentence[subject.End:object.Start])
	}

	for _, label := range p.ontology.RelationLabels {
		if strings.Contains(between, strings.ReplaceAll(label, "_", " ")) {
			return label
		}
	}

	tokens := utils.Tokenize(between)
	if len(tokens) > 0 {
		return tokens[0]
	}
	return "related_to"
}

// extractCopular splits a sentence on the first copular marker found.
func (p *Pipeline) extractCopular(sentence string) *types.Triple {
	lower := strings.ToLower(sentence)
	for _, marker := range copularMarkers {
		idx := strings.Index(lower, marker)
		if idx <= 0 {
			continue
		}
		subject := strings.TrimSpace(sentence[:idx])
		object := strings.TrimSpace(strings.TrimRight(sentence[idx+len(marker):], ".!?"))
		if subject == "" || object == "" {
			continue
		}
		return &types.Triple{
			Subject:    subject,
			Object:     object,
			Relation:   strings.TrimSpace(marker),
			Confidence: fallbackConfidence,
		}
	}
	return nil
}
