package dsl

import "github.com/aretw0/lattice/pkg/domain"

// NodeBuilder configures one node and its outgoing edges.
type NodeBuilder struct {
	node    domain.Node
	edges   []domain.Edge
	builder *Builder
}

// Label sets the display label.
func (n *NodeBuilder) Label(text string) *NodeBuilder {
	n.node.Label = text
	return n
}

// Config sets the node configuration. Typed configs (domain.ModelCallConfig,
// domain.ConditionalConfig, ...) and plain maps are both accepted.
func (n *NodeBuilder) Config(v any) *NodeBuilder {
	raw, err := encodeConfig(v)
	if err != nil {
		n.builder.errs = append(n.builder.errs, err)
		return n
	}
	n.node.Config = raw
	return n
}

// Retry sets the retry policy.
func (n *NodeBuilder) Retry(attempts int, backoff domain.Backoff, initialDelayMs int) *NodeBuilder {
	n.node.RetryPolicy = &domain.RetryPolicy{MaxAttempts: attempts, Backoff: backoff, InitialDelayMs: initialDelayMs}
	return n
}

// Meta sets a node metadata key.
func (n *NodeBuilder) Meta(key string, value any) *NodeBuilder {
	if n.node.Metadata == nil {
		n.node.Metadata = make(map[string]any)
	}
	n.node.Metadata[key] = value
	return n
}

// Go adds a default edge to target.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	return n.edge(target, domain.EdgeDefault)
}

// True adds the branch a conditional takes when its expression holds.
func (n *NodeBuilder) True(target string) *NodeBuilder {
	return n.edge(target, domain.EdgeConditionalTrue)
}

// False adds the branch a conditional takes otherwise.
func (n *NodeBuilder) False(target string) *NodeBuilder {
	return n.edge(target, domain.EdgeConditionalFalse)
}

// Approved adds the path an approval gate takes on approval.
func (n *NodeBuilder) Approved(target string) *NodeBuilder {
	return n.edge(target, domain.EdgeApprovalApproved)
}

// Rejected adds the path an approval gate takes on rejection.
func (n *NodeBuilder) Rejected(target string) *NodeBuilder {
	return n.edge(target, domain.EdgeApprovalRejected)
}

func (n *NodeBuilder) edge(target string, t domain.EdgeType) *NodeBuilder {
	e := domain.Edge{Source: n.node.ID, Target: target}
	if t != domain.EdgeDefault {
		e.Type = t
	}
	n.edges = append(n.edges, e)
	return n
}

// Add continues with another node of the same manifest.
func (n *NodeBuilder) Add(id string, t domain.NodeType) *NodeBuilder {
	return n.builder.Add(id, t)
}

// Build finishes the manifest; see Builder.Build.
func (n *NodeBuilder) Build() (*domain.Manifest, error) {
	return n.builder.Build()
}

// Done returns to the manifest builder.
func (n *NodeBuilder) Done() *Builder {
	return n.builder
}
