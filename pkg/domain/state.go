package domain

import (
	"strconv"
	"strings"
)

// FieldType is the primitive type tag of a declared state field.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
	FieldFloat  FieldType = "float"
	FieldBool   FieldType = "bool"
	FieldList   FieldType = "list"
	FieldMap    FieldType = "map"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldString, FieldInt, FieldFloat, FieldBool, FieldList, FieldMap:
		return true
	}
	return false
}

// Zero returns the type-appropriate zero value.
func (t FieldType) Zero() any {
	switch t {
	case FieldString:
		return ""
	case FieldInt:
		return 0
	case FieldFloat:
		return 0.0
	case FieldBool:
		return false
	case FieldList:
		return []any{}
	case FieldMap:
		return map[string]any{}
	}
	return nil
}

// StateField is a declared slot in the shared execution state.
type StateField struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// Message is one entry of the conversational message list.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Decisions recorded by a human-in-the-loop collaborator for approval gates.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// State is the run-time snapshot threaded through a compiled graph.
// Declared fields and node outputs are kept in distinct maps.
type State struct {
	Messages    []Message      `json:"messages"`
	CurrentNode string         `json:"current_node"`
	RunID       string         `json:"run_id"`
	Fields      map[string]any `json:"fields"`

	// Outputs holds each node's output keyed by node id.
	Outputs map[string]any `json:"outputs"`

	// Decisions holds approval outcomes keyed by node id.
	Decisions map[string]string `json:"decisions,omitempty"`
}

// NewState creates an empty state for a run.
func NewState(runID string) *State {
	return &State{
		Messages:  []Message{},
		RunID:     runID,
		Fields:    make(map[string]any),
		Outputs:   make(map[string]any),
		Decisions: make(map[string]string),
	}
}

// Clone copies the state containers. Values are shared; steps treat them as immutable.
func (s *State) Clone() *State {
	out := &State{
		Messages:    append([]Message(nil), s.Messages...),
		CurrentNode: s.CurrentNode,
		RunID:       s.RunID,
		Fields:      make(map[string]any, len(s.Fields)),
		Outputs:     make(map[string]any, len(s.Outputs)),
		Decisions:   make(map[string]string, len(s.Decisions)),
	}
	for k, v := range s.Fields {
		out.Fields[k] = v
	}
	for k, v := range s.Outputs {
		out.Outputs[k] = v
	}
	for k, v := range s.Decisions {
		out.Decisions[k] = v
	}
	return out
}

// StateDelta is the partial update returned by a node step.
type StateDelta struct {
	Fields   map[string]any `json:"fields,omitempty"`
	Outputs  map[string]any `json:"outputs,omitempty"`
	Messages []Message      `json:"messages,omitempty"`
}

// OutputDelta builds a delta that writes a single node output.
func OutputDelta(nodeID string, value any) StateDelta {
	return StateDelta{Outputs: map[string]any{nodeID: value}}
}

// Apply returns a copy of s with the delta merged in.
func (s *State) Apply(d StateDelta) *State {
	out := s.Clone()
	for k, v := range d.Fields {
		out.Fields[k] = v
	}
	for k, v := range d.Outputs {
		out.Outputs[k] = v
	}
	out.Messages = append(out.Messages, d.Messages...)
	return out
}

// Flatten returns the read view used by placeholders and expressions:
// declared fields, the implicit fields, and one output_<id> entry per output.
func (s *State) Flatten() map[string]any {
	view := make(map[string]any, len(s.Fields)+len(s.Outputs)+3)
	for k, v := range s.Fields {
		view[k] = v
	}

	messages := make([]any, 0, len(s.Messages))
	for _, m := range s.Messages {
		messages = append(messages, map[string]any{"role": m.Role, "content": m.Content})
	}
	view[FieldMessages] = messages
	view[FieldCurrentNode] = s.CurrentNode
	view[FieldRunID] = s.RunID

	for id, v := range s.Outputs {
		view[OutputKey(id)] = v
	}
	return view
}

// Lookup resolves a dotted path such as "state.user.name" or "items.0"
// against the flattened view.
func (s *State) Lookup(path string) (any, bool) {
	return LookupPath(s.Flatten(), path)
}

// LookupPath walks a dotted path through nested maps and slices.
// A leading "state." segment is ignored.
func LookupPath(root map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "state.")
	if path == "" || path == "state" {
		return root, true
	}

	var current any = root
	for _, segment := range strings.Split(path, ".") {
		switch c := current.(type) {
		case map[string]any:
			v, ok := c[segment]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, false
			}
			current = c[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
