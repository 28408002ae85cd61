// Package vector adapts langchaingo vector stores to the Retriever port.
package vector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/chroma"
)

// StoreFactory opens the vector store backing an index name.
type StoreFactory func(ctx context.Context, index string) (vectorstores.VectorStore, error)

// Retriever implements ports.Retriever. Stores are opened lazily per index
// and reused.
type Retriever struct {
	open   StoreFactory
	logger *slog.Logger

	mu     sync.Mutex
	stores map[string]vectorstores.VectorStore
}

// Option configures the Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// New creates a Retriever over a store factory.
func New(open StoreFactory, opts ...Option) *Retriever {
	r := &Retriever{
		open:   open,
		logger: logging.NewNop(),
		stores: make(map[string]vectorstores.VectorStore),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ChromaConfig addresses a Chroma server and the embedding endpoint used
// for queries.
type ChromaConfig struct {
	URL            string
	EmbeddingURL   string
	EmbeddingToken string
	EmbeddingModel string
}

// NewChroma creates a Retriever where each index is a Chroma collection.
func NewChroma(cfg ChromaConfig, opts ...Option) (*Retriever, error) {
	embedder, err := NewOpenAIEmbedder(cfg.EmbeddingURL, cfg.EmbeddingToken, cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	open := func(_ context.Context, index string) (vectorstores.VectorStore, error) {
		store, err := chroma.New(
			chroma.WithChromaURL(cfg.URL),
			chroma.WithEmbedder(embedder),
			chroma.WithNameSpace(index),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open chroma collection %q: %w", index, err)
		}
		return store, nil
	}
	return New(open, opts...), nil
}

// NewOpenAIEmbedder builds an embedder over an OpenAI-compatible endpoint.
func NewOpenAIEmbedder(baseURL, token, model string) (embeddings.Embedder, error) {
	var clientOpts []openai.Option
	if baseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(baseURL))
	}
	if token != "" {
		clientOpts = append(clientOpts, openai.WithToken(token))
	}
	if model != "" {
		clientOpts = append(clientOpts, openai.WithModel(model), openai.WithEmbeddingModel(model))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

func (r *Retriever) store(ctx context.Context, index string) (vectorstores.VectorStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[index]; ok {
		return s, nil
	}
	s, err := r.open(ctx, index)
	if err != nil {
		return nil, err
	}
	r.stores[index] = s
	return s, nil
}

// Retrieve runs a similarity search against the index.
func (r *Retriever) Retrieve(ctx context.Context, q ports.RetrievalQuery) ([]ports.RetrievedDocument, error) {
	store, err := r.store(ctx, q.Index)
	if err != nil {
		return nil, err
	}

	var opts []vectorstores.Option
	if q.Namespace != "" {
		opts = append(opts, vectorstores.WithNameSpace(q.Namespace))
	}
	if len(q.Filters) > 0 {
		opts = append(opts, vectorstores.WithFilters(q.Filters))
	}

	docs, err := store.SimilaritySearch(ctx, q.Query, q.TopK, opts...)
	if err != nil {
		return nil, fmt.Errorf("similarity search on %q: %w", q.Index, err)
	}
	r.logger.DebugContext(ctx, "retrieved documents", "index", q.Index, "count", len(docs))

	out := make([]ports.RetrievedDocument, 0, len(docs))
	for _, d := range docs {
		out = append(out, toRetrieved(d))
	}
	return out, nil
}

// Add indexes documents, mainly for seeding collections.
func (r *Retriever) Add(ctx context.Context, index, namespace string, docs []schema.Document) ([]string, error) {
	store, err := r.store(ctx, index)
	if err != nil {
		return nil, err
	}
	var opts []vectorstores.Option
	if namespace != "" {
		opts = append(opts, vectorstores.WithNameSpace(namespace))
	}
	return store.AddDocuments(ctx, docs, opts...)
}

func toRetrieved(d schema.Document) ports.RetrievedDocument {
	meta := d.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return ports.RetrievedDocument{
		Document: meta,
		Score:    float64(d.Score),
		Text:     d.PageContent,
	}
}

var _ ports.Retriever = (*Retriever)(nil)
