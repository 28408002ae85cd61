package vector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/lattice/pkg/adapters/vector"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

type stubStore struct {
	docs  []schema.Document
	k     int
	query string
	opts  vectorstores.Options
	added []schema.Document
}

func (s *stubStore) AddDocuments(_ context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	for _, o := range options {
		o(&s.opts)
	}
	s.added = append(s.added, docs...)
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = "id"
	}
	return ids, nil
}

func (s *stubStore) SimilaritySearch(_ context.Context, query string, k int, options ...vectorstores.Option) ([]schema.Document, error) {
	s.query, s.k = query, k
	for _, o := range options {
		o(&s.opts)
	}
	return s.docs, nil
}

func TestRetriever_Retrieve(t *testing.T) {
	store := &stubStore{docs: []schema.Document{
		{PageContent: "Go has goroutines", Metadata: map[string]any{"source": "go.md"}, Score: 0.9},
		{PageContent: "no metadata", Score: 0.5},
	}}
	opened := 0
	r := vector.New(func(_ context.Context, index string) (vectorstores.VectorStore, error) {
		opened++
		assert.Equal(t, "docs", index)
		return store, nil
	})

	q := ports.RetrievalQuery{Index: "docs", Namespace: "team-a", TopK: 2, Query: "concurrency", Filters: map[string]any{"lang": "go"}}
	got, err := r.Retrieve(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "go.md", got[0].Document["source"])
	assert.InDelta(t, 0.9, got[0].Score, 1e-6)
	assert.Equal(t, "Go has goroutines", got[0].Text)
	assert.NotNil(t, got[1].Document)

	assert.Equal(t, "concurrency", store.query)
	assert.Equal(t, 2, store.k)
	assert.Equal(t, "team-a", store.opts.NameSpace)
	assert.Equal(t, map[string]any{"lang": "go"}, store.opts.Filters)

	_, err = r.Retrieve(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, opened, "stores are reused per index")
}

func TestRetriever_Add(t *testing.T) {
	store := &stubStore{}
	r := vector.New(func(context.Context, string) (vectorstores.VectorStore, error) { return store, nil })

	ids, err := r.Add(context.Background(), "docs", "ns", []schema.Document{{PageContent: "a"}})
	require.NoError(t, err)
	assert.Len(t, ids, 1)
	assert.Len(t, store.added, 1)
	assert.Equal(t, "ns", store.opts.NameSpace)
}

func TestRetriever_OpenError(t *testing.T) {
	r := vector.New(func(context.Context, string) (vectorstores.VectorStore, error) {
		return nil, errors.New("chroma down")
	})
	_, err := r.Retrieve(context.Background(), ports.RetrievalQuery{Index: "x", TopK: 1})
	assert.ErrorContains(t, err, "chroma down")
}
