package domain

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// NodeConfig is the sum type of per-node-type configuration payloads.
// Every variant reports the node type it belongs to.
type NodeConfig interface {
	NodeType() NodeType
}

// ModelCallConfig configures a model_call node.
// The prompt is either inline (PromptTemplate) or a reference (PromptID)
// resolved against the manifest's inline prompts and then the prompt store.
type ModelCallConfig struct {
	ModelID        string  `json:"model_id" mapstructure:"model_id"`
	PromptTemplate string  `json:"prompt_template,omitempty" mapstructure:"prompt_template"`
	PromptID       string  `json:"prompt_id,omitempty" mapstructure:"prompt_id"`
	SystemPrompt   string  `json:"system_prompt,omitempty" mapstructure:"system_prompt"`
	Temperature    float64 `json:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens      int     `json:"max_tokens,omitempty" mapstructure:"max_tokens"`
}

func (ModelCallConfig) NodeType() NodeType { return NodeTypeModelCall }

// ClassifierConfig configures a classifier node; it is a model call whose
// prompt asks the model to choose one of Categories.
type ClassifierConfig struct {
	ModelCallConfig `mapstructure:",squash"`
	Categories      []string `json:"categories,omitempty" mapstructure:"categories"`
}

func (ClassifierConfig) NodeType() NodeType { return NodeTypeClassifier }

// HTTPToolConfig configures an http_tool node.
type HTTPToolConfig struct {
	Method         string            `json:"method" mapstructure:"method"`
	URL            string            `json:"url" mapstructure:"url"`
	Headers        map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	Body           any               `json:"body,omitempty" mapstructure:"body"`
	TimeoutSeconds float64           `json:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"`
}

func (HTTPToolConfig) NodeType() NodeType { return NodeTypeHTTPTool }

// DatabaseConfig configures a database node: a parameterized query against
// an external data-access collaborator.
type DatabaseConfig struct {
	ConnectionID string         `json:"connection_id" mapstructure:"connection_id"`
	Operation    string         `json:"operation,omitempty" mapstructure:"operation"`
	Query        string         `json:"query" mapstructure:"query"`
	Parameters   map[string]any `json:"parameters,omitempty" mapstructure:"parameters"`
}

func (DatabaseConfig) NodeType() NodeType { return NodeTypeDatabase }

// RetrievalConfig configures a retrieval (RAG) node.
type RetrievalConfig struct {
	Index     string         `json:"index" mapstructure:"index"`
	Namespace string         `json:"namespace,omitempty" mapstructure:"namespace"`
	TopK      int            `json:"top_k,omitempty" mapstructure:"top_k"`
	Filters   map[string]any `json:"filters,omitempty" mapstructure:"filters"`
	Query     string         `json:"query,omitempty" mapstructure:"query"`
}

func (RetrievalConfig) NodeType() NodeType { return NodeTypeRetrieval }

// ConditionalConfig configures a conditional node.
type ConditionalConfig struct {
	Expression string `json:"expression" mapstructure:"expression"`
}

func (ConditionalConfig) NodeType() NodeType { return NodeTypeConditional }

// LoopConfig configures a loop node.
type LoopConfig struct {
	IterableKey   string `json:"iterable_key" mapstructure:"iterable_key"`
	MaxIterations int    `json:"max_iterations,omitempty" mapstructure:"max_iterations"`
}

func (LoopConfig) NodeType() NodeType { return NodeTypeLoop }

// MergeConfig configures a merge node. It has no settings today.
type MergeConfig struct{}

func (MergeConfig) NodeType() NodeType { return NodeTypeMerge }

// ApprovalConfig configures approval and review nodes.
type ApprovalConfig struct {
	Kind          NodeType `json:"-" mapstructure:"-"`
	ApproverRoles []string `json:"approver_roles,omitempty" mapstructure:"approver_roles"`
	SLAHours      float64  `json:"sla_hours,omitempty" mapstructure:"sla_hours"`
	Instructions  string   `json:"instructions,omitempty" mapstructure:"instructions"`
}

func (c ApprovalConfig) NodeType() NodeType {
	if c.Kind == "" {
		return NodeTypeApproval
	}
	return c.Kind
}

// TransformConfig configures a transform node.
// InputMapping maps result keys to state paths (e.g. "state.user.name").
type TransformConfig struct {
	InputMapping map[string]string `json:"input_mapping" mapstructure:"input_mapping"`
	OutputKey    string            `json:"output_key,omitempty" mapstructure:"output_key"`
}

func (TransformConfig) NodeType() NodeType { return NodeTypeTransform }

// SubgraphConfig configures a subgraph node invoking another compiled manifest.
type SubgraphConfig struct {
	GraphID        string            `json:"graph_id" mapstructure:"graph_id"`
	InputMapping   map[string]string `json:"input_mapping,omitempty" mapstructure:"input_mapping"`
	OutputMapping  map[string]string `json:"output_mapping,omitempty" mapstructure:"output_mapping"`
	TimeoutSeconds float64           `json:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"`
}

func (SubgraphConfig) NodeType() NodeType { return NodeTypeSubgraph }

// DecodeConfig parses the node's raw configuration into the variant matching
// its type. Unknown keys are rejected so typos surface at compile time.
func DecodeConfig(n Node) (NodeConfig, error) {
	var raw map[string]any
	if len(n.Config) > 0 && string(n.Config) != "null" {
		if err := json.Unmarshal(n.Config, &raw); err != nil {
			return nil, fmt.Errorf("config is not a JSON object: %w", err)
		}
	}

	var target NodeConfig
	switch n.Type {
	case NodeTypeModelCall:
		target = &ModelCallConfig{}
	case NodeTypeClassifier:
		target = &ClassifierConfig{}
	case NodeTypeHTTPTool:
		target = &HTTPToolConfig{}
	case NodeTypeDatabase:
		target = &DatabaseConfig{}
	case NodeTypeRetrieval:
		target = &RetrievalConfig{}
	case NodeTypeConditional:
		target = &ConditionalConfig{}
	case NodeTypeLoop:
		target = &LoopConfig{}
	case NodeTypeMerge:
		target = &MergeConfig{}
	case NodeTypeApproval, NodeTypeReview:
		target = &ApprovalConfig{Kind: n.Type}
	case NodeTypeTransform:
		target = &TransformConfig{}
	case NodeTypeSubgraph:
		target = &SubgraphConfig{}
	default:
		return nil, fmt.Errorf("unknown node type %q", n.Type)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", n.Type, err)
	}

	// Return values, not pointers, so callers can type-switch on the variant.
	switch c := target.(type) {
	case *ModelCallConfig:
		return *c, nil
	case *ClassifierConfig:
		return *c, nil
	case *HTTPToolConfig:
		return *c, nil
	case *DatabaseConfig:
		return *c, nil
	case *RetrievalConfig:
		return *c, nil
	case *ConditionalConfig:
		return *c, nil
	case *LoopConfig:
		return *c, nil
	case *MergeConfig:
		return *c, nil
	case *ApprovalConfig:
		return *c, nil
	case *TransformConfig:
		return *c, nil
	case *SubgraphConfig:
		return *c, nil
	}
	return nil, fmt.Errorf("unhandled config variant %T", target)
}

// MustConfig marshals v into a raw config payload. It is meant for tests and
// programmatic manifest construction.
func MustConfig(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("domain: cannot marshal config: %v", err))
	}
	return data
}
