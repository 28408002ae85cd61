package testutils

import (
	"context"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// FakeModel is a scripted ports.ModelInvoker.
// Respond, when set, computes the answer; otherwise Reply is returned.
type FakeModel struct {
	mu       sync.Mutex
	Reply    string
	Err      error
	Respond  func(req ports.ModelRequest) (string, error)
	Requests []ports.ModelRequest
}

func (f *FakeModel) Invoke(_ context.Context, req ports.ModelRequest) (string, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()
	if f.Respond != nil {
		return f.Respond(req)
	}
	return f.Reply, f.Err
}

// Calls returns the number of invocations so far.
func (f *FakeModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

// FakeHTTP is a scripted ports.HTTPClient.
type FakeHTTP struct {
	mu       sync.Mutex
	Response *ports.HTTPResponse
	Err      error
	Requests []ports.HTTPRequest
}

func (f *FakeHTTP) Do(_ context.Context, req ports.HTTPRequest) (*ports.HTTPResponse, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()
	return f.Response, f.Err
}

// FakeRetriever is a scripted ports.Retriever.
type FakeRetriever struct {
	mu      sync.Mutex
	Docs    []ports.RetrievedDocument
	Err     error
	Queries []ports.RetrievalQuery
}

func (f *FakeRetriever) Retrieve(_ context.Context, q ports.RetrievalQuery) ([]ports.RetrievedDocument, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, q)
	f.mu.Unlock()
	return f.Docs, f.Err
}

// FakePrompts is a map-backed ports.PromptStore.
type FakePrompts map[string]string

func (f FakePrompts) GetPrompt(_ context.Context, id string) (string, error) {
	text, ok := f[id]
	if !ok {
		return "", domain.ErrPromptNotFound
	}
	return text, nil
}

// FakeData is a scripted ports.DataAccessor.
type FakeData struct {
	mu      sync.Mutex
	Rows    any
	Err     error
	Queries []ports.DataQuery
}

func (f *FakeData) Query(_ context.Context, q ports.DataQuery) (any, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, q)
	f.mu.Unlock()
	return f.Rows, f.Err
}

// FakeSubgraphs is a scripted ports.SubgraphRunner.
type FakeSubgraphs struct {
	Run func(ctx context.Context, manifestID string, initial map[string]any) (*domain.State, error)
}

func (f *FakeSubgraphs) RunSubgraph(ctx context.Context, manifestID string, initial map[string]any) (*domain.State, error) {
	return f.Run(ctx, manifestID, initial)
}
