package types

import (
	"errors"
	"time"
)

// Validation errors
var (
	ErrEmptyName     = errors.New("name cannot be empty")
	ErrEmptyContent  = errors.New("content cannot be empty")
	ErrEmptyID       = errors.New("id cannot be empty")
	ErrInvalidLimit  = errors.New("limit must be positive")
	ErrBadConfidence = errors.New("confidence must be in [0,1]")
)

// Entity represents a node in the knowledge graph. Entity names are unique:
// upserting the same name twice resolves to the same ID.
type Entity struct {
	ID        string    `json:"id" mapstructure:"id"`
	Name      string    `json:"name" mapstructure:"name"`
	Type      string    `json:"type" mapstructure:"type"`
	Aliases   []string  `json:"aliases,omitempty" mapstructure:"aliases"`
	CreatedAt time.Time `json:"created_at" mapstructure:"created_at"`
	UpdatedAt time.Time `json:"updated_at" mapstructure:"updated_at"`
}

// Validate checks if the Entity has all required fields set.
func (e *Entity) Validate() error {
	if e.Name == "" {
		return ErrEmptyName
	}
	return nil
}

// Relation represents a typed, weighted edge between two entities. The weight
// accumulates: every upsert of the same (source, target, type) key adds its
// increment to the stored weight. EvidenceFactIDs holds the deduplicated set
// of facts that justify the edge.
type Relation struct {
	ID              string    `json:"id" mapstructure:"id"`
	SourceEntityID  string    `json:"source_entity_id" mapstructure:"source_entity_id"`
	TargetEntityID  string    `json:"target_entity_id" mapstructure:"target_entity_id"`
	RelationType    string    `json:"relation_type" mapstructure:"relation_type"`
	Weight          float64   `json:"weight" mapstructure:"weight"`
	EvidenceFactIDs []string  `json:"evidence_fact_ids,omitempty" mapstructure:"evidence_fact_ids"`
	CreatedAt       time.Time `json:"created_at" mapstructure:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" mapstructure:"updated_at"`
}

// FactStatus represents the verification status of a fact.
type FactStatus string

const (
	// FactPending marks facts awaiting verification.
	FactPending FactStatus = "pending"
	// FactVerified marks facts confirmed by a reviewer or verifier.
	FactVerified FactStatus = "verified"
	// FactRejected marks facts that failed verification.
	FactRejected FactStatus = "rejected"
)

// Fact is a confidence-scored statement extracted from a source fragment.
type Fact struct {
	ID               string     `json:"id" mapstructure:"id"`
	Content          string     `json:"content" mapstructure:"content"`
	Confidence       float64    `json:"confidence" mapstructure:"confidence"`
	Status           FactStatus `json:"status" mapstructure:"status"`
	SourceFragmentID string     `json:"source_fragment_id,omitempty" mapstructure:"source_fragment_id"`
	LinkedEntityIDs  []string   `json:"linked_entity_ids,omitempty" mapstructure:"linked_entity_ids"`
	Embedding        []float32  `json:"embedding,omitempty" mapstructure:"embedding"`
	CreatedAt        time.Time  `json:"created_at" mapstructure:"created_at"`
}

// Validate checks if the Fact has all required fields set.
func (f *Fact) Validate() error {
	if f.Content == "" {
		return ErrEmptyContent
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return ErrBadConfidence
	}
	return nil
}

// Fragment is a chunk of source-document text, the unit indexed for dense
// retrieval.
type Fragment struct {
	ID          string    `json:"id" mapstructure:"id"`
	ArticleID   string    `json:"article_id,omitempty" mapstructure:"article_id"`
	Content     string    `json:"content" mapstructure:"content"`
	Position    int       `json:"position" mapstructure:"position"`
	Embedding   []float32 `json:"embedding,omitempty" mapstructure:"embedding"`
	Indexed     bool      `json:"indexed" mapstructure:"indexed"`
	SourceTitle string    `json:"source_title,omitempty" mapstructure:"source_title"`
}

// Validate checks if the Fragment has all required fields set.
func (f *Fragment) Validate() error {
	if f.Content == "" {
		return ErrEmptyContent
	}
	return nil
}

// Neighborhood is the result of a bounded breadth expansion around an entity:
// the deduplicated set of reached nodes plus the union of inbound and
// outbound edges among them.
type Neighborhood struct {
	Nodes []*Entity   `json:"nodes"`
	Edges []*Relation `json:"edges"`
}

// GraphStatistics holds aggregate counts over the stored graph.
type GraphStatistics struct {
	EntityCount        int64            `json:"entity_count"`
	RelationCount      int64            `json:"relation_count"`
	EntityTypeCounts   map[string]int64 `json:"entity_type_counts"`
	RelationTypeCounts map[string]int64 `json:"relation_type_counts"`
}

// TextResult is one ranked hit from dense fragment retrieval.
type TextResult struct {
	Rank        int     `json:"rank"`
	FragmentID  string  `json:"fragment_id"`
	Content     string  `json:"content"`
	SourceTitle string  `json:"source_title,omitempty"`
	Similarity  float64 `json:"similarity"`
}

// FactResult is one ranked hit from fact retrieval.
type FactResult struct {
	Rank       int     `json:"rank"`
	FactID     string  `json:"fact_id"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	Similarity float64 `json:"similarity"`
}

// GraphPath is a simple path between two matched entities. Score is the
// arithmetic mean of the edge weights along the path.
type GraphPath struct {
	Edges []*Relation `json:"edges"`
	Score float64     `json:"score"`
}

// GraphResult bundles entity matches, discovered paths and auxiliary
// centrality diagnostics from graph retrieval.
type GraphResult struct {
	Entities    []*Entity         `json:"entities"`
	Paths       []*GraphPath      `json:"paths"`
	Diagnostics *GraphDiagnostics `json:"diagnostics,omitempty"`
	// Err carries a store-level failure as context instead of aborting the
	// caller; retrieval degrades to an empty contribution.
	Err string `json:"error,omitempty"`
}

// GraphDiagnostics carries quality signals computed over the full relation
// adjacency. They are reported alongside results but never used for ranking.
type GraphDiagnostics struct {
	DegreeCentrality map[string]float64 `json:"degree_centrality,omitempty"`
	PageRank         map[string]float64 `json:"pagerank,omitempty"`
	ComputedAt       time.Time          `json:"computed_at"`
}

// Triple is a candidate (subject, relation, object) extraction from raw text.
type Triple struct {
	Subject     string  `json:"subject"`
	Relation    string  `json:"relation"`
	Object      string  `json:"object"`
	SubjectType string  `json:"subject_type,omitempty"`
	ObjectType  string  `json:"object_type,omitempty"`
	Confidence  float64 `json:"confidence"`
}
