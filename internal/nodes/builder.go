// Package nodes builds the executable step of every manifest node.
//
// Each node type has one builder. A built Func reads the current state and
// returns a StateDelta; it never mutates the state it receives and may be
// invoked more than once under the node's retry policy.
package nodes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// Func is the uniform step contract: state in, partial update out.
type Func func(ctx context.Context, state *domain.State) (domain.StateDelta, error)

// Status values written by approval and review nodes.
const (
	StatusAwaitingApproval = "awaiting_approval"
	StatusApproved         = domain.DecisionApproved
	StatusRejected         = domain.DecisionRejected
)

// Output keys shared with the router and the assembler.
const (
	KeyConditionResult = "condition_result"
	KeyStatus          = "status"
	KeyError           = "error"
)

// Builder dispatches on the node type to build steps.
type Builder struct {
	model     ports.ModelInvoker
	http      ports.HTTPClient
	retriever ports.Retriever
	prompts   ports.PromptStore
	data      ports.DataAccessor
	subgraphs ports.SubgraphRunner
	logger    *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithModelInvoker sets the collaborator used by model_call and classifier nodes.
func WithModelInvoker(m ports.ModelInvoker) Option {
	return func(b *Builder) { b.model = m }
}

// WithHTTPClient sets the collaborator used by http_tool nodes.
func WithHTTPClient(c ports.HTTPClient) Option {
	return func(b *Builder) { b.http = c }
}

// WithRetriever sets the collaborator used by retrieval nodes.
func WithRetriever(r ports.Retriever) Option {
	return func(b *Builder) { b.retriever = r }
}

// WithPromptStore sets the store consulted for prompt_id references.
func WithPromptStore(p ports.PromptStore) Option {
	return func(b *Builder) { b.prompts = p }
}

// WithDataAccessor sets the collaborator used by database nodes.
func WithDataAccessor(d ports.DataAccessor) Option {
	return func(b *Builder) { b.data = d }
}

// WithSubgraphRunner sets the runner used by subgraph nodes.
func WithSubgraphRunner(r ports.SubgraphRunner) Option {
	return func(b *Builder) { b.subgraphs = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a Builder. Collaborators left unset make the
// corresponding node types fail at run time, not at build time.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HasSubgraphRunner reports whether a subgraph runner is configured.
func (b *Builder) HasSubgraphRunner() bool {
	return b.subgraphs != nil
}

// Build decodes the node configuration and returns its step.
// m is the owning manifest, consulted for cross-references such as prompts.
func (b *Builder) Build(n domain.Node, m *domain.Manifest) (Func, error) {
	cfg, err := domain.DecodeConfig(n)
	if err != nil {
		return nil, err
	}

	switch c := cfg.(type) {
	case domain.ModelCallConfig:
		return b.modelCall(n, m, c, nil)
	case domain.ClassifierConfig:
		return b.modelCall(n, m, c.ModelCallConfig, c.Categories)
	case domain.HTTPToolConfig:
		return b.httpTool(n, c)
	case domain.DatabaseConfig:
		return b.database(n, c)
	case domain.RetrievalConfig:
		return b.retrieval(n, c)
	case domain.ConditionalConfig:
		return b.conditional(n, c)
	case domain.LoopConfig:
		return b.loop(n, c)
	case domain.MergeConfig:
		return b.merge(n)
	case domain.ApprovalConfig:
		return b.approval(n, c)
	case domain.TransformConfig:
		return b.transform(n, c)
	case domain.SubgraphConfig:
		return b.subgraph(n, c)
	}
	return nil, fmt.Errorf("no builder for node type %q", n.Type)
}

// errorOutput is the object written to output_<id> when a call-out fails
// without failing the run.
func errorOutput(err error, extra map[string]any) map[string]any {
	out := map[string]any{KeyError: err.Error()}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
