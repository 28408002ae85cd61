package ports

import (
	"context"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
)

// ModelRequest is a single model invocation.
type ModelRequest struct {
	ModelID     string
	Temperature float64
	MaxTokens   int
	Messages    []domain.Message
}

// ModelInvoker calls a language model and returns its raw text answer.
type ModelInvoker interface {
	Invoke(ctx context.Context, req ModelRequest) (string, error)
}

// HTTPRequest is the call performed by an http_tool node.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
	Timeout time.Duration
}

// HTTPResponse carries the parsed response body (JSON decoded when possible,
// raw text otherwise).
type HTTPResponse struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       any               `json:"body"`
}

// HTTPClient performs outbound HTTP calls for tool nodes.
type HTTPClient interface {
	Do(ctx context.Context, req HTTPRequest) (*HTTPResponse, error)
}

// RetrievalQuery is the lookup performed by a retrieval node.
type RetrievalQuery struct {
	Index     string
	Namespace string
	TopK      int
	Filters   map[string]any
	Query     string
}

// RetrievedDocument is one retrieval match.
type RetrievedDocument struct {
	Document map[string]any `json:"document"`
	Score    float64        `json:"score"`
	Text     string         `json:"text"`
}

// Retriever searches an external index.
type Retriever interface {
	Retrieve(ctx context.Context, q RetrievalQuery) ([]RetrievedDocument, error)
}

// PromptStore resolves prompt templates by id.
// Returns domain.ErrPromptNotFound if the id is unknown.
type PromptStore interface {
	GetPrompt(ctx context.Context, id string) (string, error)
}

// DataQuery is the parameterized query issued by a database node.
type DataQuery struct {
	ConnectionID string
	Operation    string
	Query        string
	Parameters   map[string]any
}

// DataAccessor executes queries against an external data source.
type DataAccessor interface {
	Query(ctx context.Context, q DataQuery) (any, error)
}

// SubgraphRunner runs a compiled manifest by id with an initial state and
// returns its final state.
type SubgraphRunner interface {
	RunSubgraph(ctx context.Context, manifestID string, initial map[string]any) (*domain.State, error)
}
