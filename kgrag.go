package kgrag

import (
	"errors"
	"log/slog"
	"time"

	"github.com/nlcraft/kgrag/pkg/embedder"
	"github.com/nlcraft/kgrag/pkg/extract"
	"github.com/nlcraft/kgrag/pkg/fusion"
	"github.com/nlcraft/kgrag/pkg/graphmetrics"
	"github.com/nlcraft/kgrag/pkg/nlp"
	"github.com/nlcraft/kgrag/pkg/policy"
	"github.com/nlcraft/kgrag/pkg/retriever"
	"github.com/nlcraft/kgrag/pkg/store"
	"github.com/nlcraft/kgrag/pkg/telemetry"
)

// ErrEmptyQuery is returned for blank queries.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Config holds configuration for the engine client.
type Config struct {
	// Retrieval tunes the three sub-retrievers.
	Retrieval *retriever.Config
	// FusionWeights are the per-type weights applied after normalization.
	FusionWeights fusion.Weights
	// Selector tunes policy scoring and the quality gate.
	Selector *policy.SelectorConfig
	// Costs is the policy cost model.
	Costs *policy.CostModel
	// Ontology is the extraction label schema.
	Ontology *extract.Ontology
	// DiagnosticsDir is the badger directory for the centrality cache;
	// empty means in-memory.
	DiagnosticsDir string
	// DiagnosticsTTL bounds staleness of cached centrality diagnostics.
	DiagnosticsTTL time.Duration
	// CheckpointDir enables ingestion resume when non-empty.
	CheckpointDir string
	// UseLLMExtraction routes triple extraction through the generator
	// before the rule-based pipeline. Requires a generator.
	UseLLMExtraction bool
	// AnswerTimeout is the overall deadline applied to Answer when the
	// caller's context has none. Zero disables it.
	AnswerTimeout time.Duration
}

// Client is the engine's main entry point. It owns the graph store handle and
// explicitly constructed service components; there is no module-level state.
type Client struct {
	store      store.GraphStore
	embedder   embedder.Client
	generator  nlp.Client
	recognizer extract.Recognizer

	text         *retriever.TextRetriever
	facts        *retriever.FactRetriever
	graph        *retriever.GraphRetriever
	combiner     *fusion.Combiner
	selector     *policy.Selector
	pipeline     *extract.Pipeline
	llmExtractor *extract.LLMExtractor
	diagnostics  *graphmetrics.Cache
	recorder     *telemetry.Recorder

	config *Config
	logger *slog.Logger
}

// Option customizes optional client collaborators.
type Option func(*Client)

// WithRecognizer attaches a named-entity recognizer for the extraction
// pipeline's primary path.
func WithRecognizer(r extract.Recognizer) Option {
	return func(c *Client) { c.recognizer = r }
}

// WithTelemetry attaches a decision recorder.
func WithTelemetry(r *telemetry.Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient creates an engine client. embedderClient and generatorClient may
// be nil: retrieval then runs on lexical similarity and answers degrade to
// extractive summaries, per the degrade-not-fail policy.
func NewClient(graphStore store.GraphStore, embedderClient embedder.Client, generatorClient nlp.Client, config *Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if graphStore == nil {
		return nil, errors.New("graph store is required")
	}
	if config == nil {
		config = &Config{}
	}
	if config.Retrieval == nil {
		config.Retrieval = retriever.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		store:     graphStore,
		embedder:  embedderClient,
		generator: generatorClient,
		config:    config,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	diagnostics, err := graphmetrics.NewCache(graphStore, config.DiagnosticsDir, config.DiagnosticsTTL, logger)
	if err != nil {
		return nil, err
	}
	c.diagnostics = diagnostics

	c.text = retriever.NewTextRetriever(graphStore, embedderClient, config.Retrieval, logger)
	c.facts = retriever.NewFactRetriever(graphStore, embedderClient, config.Retrieval, logger)
	c.graph = retriever.NewGraphRetriever(graphStore, diagnostics, config.Retrieval, logger)
	c.combiner = fusion.NewCombiner(c.text, c.facts, c.graph,
		config.FusionWeights, config.Retrieval.SubRetrieverTimeout, logger)
	c.selector = policy.NewSelector(config.Selector, config.Costs, logger)
	c.pipeline = extract.NewPipeline(c.recognizer, config.Ontology, logger)
	if config.UseLLMExtraction && generatorClient != nil {
		c.llmExtractor = extract.NewLLMExtractor(generatorClient, config.Ontology)
	}

	return c, nil
}

// Store returns the underlying graph store.
func (c *Client) Store() store.GraphStore {
	return c.store
}

// Selector returns the policy selector.
func (c *Client) Selector() *policy.Selector {
	return c.selector
}

// Close releases all owned resources. Collaborator clients passed into
// NewClient are closed as part of the client lifecycle.
func (c *Client) Close() error {
	var errs []error
	if c.recorder != nil {
		errs = append(errs, c.recorder.Close())
	}
	if c.diagnostics != nil {
		errs = append(errs, c.diagnostics.Close())
	}
	if c.recognizer != nil {
		errs = append(errs, c.recognizer.Close())
	}
	if c.embedder != nil {
		errs = append(errs, c.embedder.Close())
	}
	if c.generator != nil {
		errs = append(errs, c.generator.Close())
	}
	errs = append(errs, c.store.Close())
	return errors.Join(errs...)
}
