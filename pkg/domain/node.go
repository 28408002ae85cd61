package domain

import "encoding/json"

// NodeType is the discriminator of a node's behavior and configuration shape.
type NodeType string

const (
	NodeTypeModelCall   NodeType = "model_call"
	NodeTypeClassifier  NodeType = "classifier"
	NodeTypeHTTPTool    NodeType = "http_tool"
	NodeTypeDatabase    NodeType = "database"
	NodeTypeRetrieval   NodeType = "retrieval"
	NodeTypeConditional NodeType = "conditional"
	NodeTypeLoop        NodeType = "loop"
	NodeTypeMerge       NodeType = "merge"
	NodeTypeApproval    NodeType = "approval"
	NodeTypeReview      NodeType = "review"
	NodeTypeTransform   NodeType = "transform"
	NodeTypeSubgraph    NodeType = "subgraph"
)

// NodeTypes lists every supported node type.
var NodeTypes = []NodeType{
	NodeTypeModelCall, NodeTypeClassifier, NodeTypeHTTPTool, NodeTypeDatabase,
	NodeTypeRetrieval, NodeTypeConditional, NodeTypeLoop, NodeTypeMerge,
	NodeTypeApproval, NodeTypeReview, NodeTypeTransform, NodeTypeSubgraph,
}

// Known reports whether t is a supported node type.
func (t NodeType) Known() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsHumanGate reports whether the node waits on an external approval decision.
func (t NodeType) IsHumanGate() bool {
	return t == NodeTypeApproval || t == NodeTypeReview
}

// Backoff selects the delay growth between retry attempts.
type Backoff string

const (
	BackoffNone        Backoff = "none"
	BackoffFixed       Backoff = "fixed"
	BackoffExponential Backoff = "exponential"
)

// RetryPolicy governs how the execution engine re-invokes a failing step.
type RetryPolicy struct {
	MaxAttempts    int     `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`
	Backoff        Backoff `json:"backoff,omitempty" yaml:"backoff,omitempty" mapstructure:"backoff"`
	InitialDelayMs int     `json:"initial_delay_ms,omitempty" yaml:"initial_delay_ms,omitempty" mapstructure:"initial_delay_ms"`
	MaxDelayMs     int     `json:"max_delay_ms,omitempty" yaml:"max_delay_ms,omitempty" mapstructure:"max_delay_ms"`
}

// Node represents one step in the workflow.
type Node struct {
	ID    string   `json:"id" yaml:"id"`
	Type  NodeType `json:"type" yaml:"type"`
	Label string   `json:"label,omitempty" yaml:"label,omitempty"`

	// Config holds the type-specific payload verbatim, so the wire format
	// round-trips unchanged. Use DecodeConfig to obtain the typed variant.
	Config json.RawMessage `json:"config,omitempty" yaml:"-"`

	RetryPolicy *RetryPolicy   `json:"retry_policy,omitempty" yaml:"retry_policy,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
