package kgrag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nlcraft/kgrag/pkg/checkpoint"
	"github.com/nlcraft/kgrag/pkg/types"
)

// IngestResult reports what one fragment contributed to the graph.
type IngestResult struct {
	FragmentID string          `json:"fragment_id"`
	Triples    []*types.Triple `json:"triples"`
	FactIDs    []string        `json:"fact_ids"`
	Skipped    bool            `json:"skipped,omitempty"`
}

// BulkIngestResult summarizes a bulk ingestion run.
type BulkIngestResult struct {
	Fragments    []*IngestResult `json:"fragments"`
	SuccessCount int             `json:"success_count"`
	ErrorCount   int             `json:"error_count"`
	SkippedCount int             `json:"skipped_count"`
	Elapsed      time.Duration   `json:"elapsed"`
}

// IngestFragment stores a fragment, indexes it for dense retrieval, extracts
// candidate triples and populates the graph: one fact per triple, entity
// upserts for subject and object, and a relation upsert carrying the fact as
// evidence with the triple's confidence as the weight increment.
func (c *Client) IngestFragment(ctx context.Context, fragment *types.Fragment) (*IngestResult, error) {
	if err := fragment.Validate(); err != nil {
		return nil, err
	}

	if err := c.store.InsertFragment(ctx, fragment); err != nil {
		return nil, fmt.Errorf("failed to store fragment: %w", err)
	}
	c.indexFragment(ctx, fragment)

	triples, err := c.extractTriples(ctx, fragment.Content)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{FragmentID: fragment.ID, Triples: triples}
	for _, triple := range triples {
		factID, err := c.applyTriple(ctx, fragment.ID, triple)
		if err != nil {
			// A missing endpoint skips the triple, it does not fail the batch.
			c.logger.Warn("skipping triple", "subject", triple.Subject,
				"object", triple.Object, "error", err)
			continue
		}
		result.FactIDs = append(result.FactIDs, factID)
	}
	return result, nil
}

// IngestFragments ingests fragments in order, checkpointing progress when a
// checkpoint directory is configured so interrupted runs resume where they
// stopped.
func (c *Client) IngestFragments(ctx context.Context, fragments []*types.Fragment) (*BulkIngestResult, error) {
	started := time.Now()

	var manager *checkpoint.Manager
	if c.config.CheckpointDir != "" {
		var err error
		manager, err = checkpoint.NewManager(c.config.CheckpointDir)
		if err != nil {
			return nil, err
		}
	}

	bulk := &BulkIngestResult{}
	for _, fragment := range fragments {
		if err := ctx.Err(); err != nil {
			bulk.Elapsed = time.Since(started)
			return bulk, err
		}

		if manager != nil && fragment.ID != "" && manager.Completed(fragment.ID) {
			bulk.Fragments = append(bulk.Fragments, &IngestResult{FragmentID: fragment.ID, Skipped: true})
			bulk.SkippedCount++
			continue
		}

		result, err := c.IngestFragment(ctx, fragment)
		if err != nil {
			c.logger.Error("fragment ingestion failed", "fragment", fragment.ID, "error", err)
			bulk.ErrorCount++
			if manager != nil && fragment.ID != "" {
				c.saveCheckpoint(manager, &checkpoint.FragmentCheckpoint{
					FragmentID:   fragment.ID,
					AttemptCount: 1,
					LastError:    err.Error(),
				})
			}
			continue
		}

		bulk.Fragments = append(bulk.Fragments, result)
		bulk.SuccessCount++
		if manager != nil {
			c.saveCheckpoint(manager, &checkpoint.FragmentCheckpoint{
				FragmentID:  result.FragmentID,
				TripleCount: len(result.Triples),
				FactIDs:     result.FactIDs,
				CompletedAt: time.Now(),
			})
		}
	}

	bulk.Elapsed = time.Since(started)
	return bulk, nil
}

func (c *Client) saveCheckpoint(manager *checkpoint.Manager, cp *checkpoint.FragmentCheckpoint) {
	if err := manager.Save(cp); err != nil {
		c.logger.Warn("failed to save checkpoint", "fragment", cp.FragmentID, "error", err)
	}
}

// indexFragment embeds the fragment content and marks it indexed. Without an
// embedder the fragment is still indexed, embedding-less, so the lexical
// fallback can reach it.
func (c *Client) indexFragment(ctx context.Context, fragment *types.Fragment) {
	var embedding []float32
	if c.embedder != nil {
		vector, err := c.embedder.EmbedSingle(ctx, fragment.Content)
		if err != nil {
			c.logger.Warn("failed to embed fragment, indexing without embedding",
				"fragment", fragment.ID, "error", err)
		} else {
			embedding = vector
		}
	}
	if err := c.store.MarkFragmentIndexed(ctx, fragment.ID, embedding); err != nil {
		c.logger.Warn("failed to index fragment", "fragment", fragment.ID, "error", err)
	}
}

func (c *Client) extractTriples(ctx context.Context, content string) ([]*types.Triple, error) {
	if c.llmExtractor != nil {
		triples, err := c.llmExtractor.Extract(ctx, content)
		if err == nil {
			return triples, nil
		}
		c.logger.Warn("llm extraction failed, using pipeline", "error", err)
	}

	triples, err := c.pipeline.Extract(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("triple extraction failed: %w", err)
	}
	return triples, nil
}

// applyTriple writes one triple into the store: fact first, then entity and
// relation upserts referencing it as evidence.
func (c *Client) applyTriple(ctx context.Context, fragmentID string, triple *types.Triple) (string, error) {
	fact := &types.Fact{
		Content:          fmt.Sprintf("%s %s %s", triple.Subject, humanizeRelation(triple.Relation), triple.Object),
		Confidence:       triple.Confidence,
		Status:           types.FactPending,
		SourceFragmentID: fragmentID,
	}
	if c.embedder != nil {
		if vector, err := c.embedder.EmbedSingle(ctx, fact.Content); err == nil {
			fact.Embedding = vector
		}
	}

	subjectID, err := c.store.UpsertEntity(ctx, triple.Subject, triple.SubjectType, nil)
	if err != nil {
		return "", fmt.Errorf("failed to upsert subject: %w", err)
	}
	objectID, err := c.store.UpsertEntity(ctx, triple.Object, triple.ObjectType, nil)
	if err != nil {
		return "", fmt.Errorf("failed to upsert object: %w", err)
	}

	fact.LinkedEntityIDs = []string{subjectID, objectID}
	if err := c.store.InsertFact(ctx, fact); err != nil {
		return "", fmt.Errorf("failed to store fact: %w", err)
	}

	if _, err := c.store.UpsertRelation(ctx, subjectID, objectID, triple.Relation, triple.Confidence, fact.ID); err != nil {
		return "", fmt.Errorf("failed to upsert relation: %w", err)
	}
	return fact.ID, nil
}

func humanizeRelation(relation string) string {
	return strings.ReplaceAll(relation, "_", " ")
}

// ExtractTriples exposes the extraction pipeline without writing anything,
// for dry runs and debugging.
func (c *Client) ExtractTriples(ctx context.Context, content string) ([]*types.Triple, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("content cannot be empty")
	}
	return c.extractTriples(ctx, content)
}
