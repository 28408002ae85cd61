package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a manifest version.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusPublished  Status = "published"
	StatusDeployed   Status = "deployed"
	StatusDeprecated Status = "deprecated"
	StatusArchived   Status = "archived"
)

// statusTransitions is the fixed adjacency table of the version lifecycle.
var statusTransitions = map[Status][]Status{
	StatusDraft:      {StatusPublished},
	StatusPublished:  {StatusDeployed},
	StatusDeployed:   {StatusDeprecated},
	StatusDeprecated: {StatusArchived},
	StatusArchived:   {StatusDraft},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// VersionInfo is the version record carried by every manifest.
type VersionInfo struct {
	Version    int       `json:"version" yaml:"version"`
	Status     Status    `json:"status" yaml:"status"`
	Author     string    `json:"author,omitempty" yaml:"author,omitempty"`
	ChangeNote string    `json:"change_note,omitempty" yaml:"change_note,omitempty"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

// Manifest is the versioned, declarative description of a workflow.
// It owns its Nodes, Edges and StateSchema exclusively.
type Manifest struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
	Nodes       []Node       `json:"nodes" yaml:"nodes"`
	Edges       []Edge       `json:"edges" yaml:"edges"`
	StateSchema []StateField `json:"state_schema,omitempty" yaml:"state_schema,omitempty"`

	// EntryNodeID is optional; when empty the first node without incoming
	// edges (in declaration order) is the entry.
	EntryNodeID string `json:"entry_node_id,omitempty" yaml:"entry_node_id,omitempty"`

	VersionInfo VersionInfo    `json:"version_info" yaml:"version_info"`
	CreatedAt   time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" yaml:"updated_at"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Node returns the node with the given id, or nil.
func (m *Manifest) Node(id string) *Node {
	for i := range m.Nodes {
		if m.Nodes[i].ID == id {
			return &m.Nodes[i]
		}
	}
	return nil
}

// NodeIDs returns the node ids in declaration order.
func (m *Manifest) NodeIDs() []string {
	ids := make([]string, 0, len(m.Nodes))
	for _, n := range m.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

// Outgoing returns the edges leaving nodeID in declaration order.
func (m *Manifest) Outgoing(nodeID string) []Edge {
	var out []Edge
	for _, e := range m.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// ResolveEntry determines the entry node id.
// An explicit EntryNodeID wins when it names an existing node; otherwise the
// first declared node without incoming edges is chosen.
func (m *Manifest) ResolveEntry() (string, bool) {
	if m.EntryNodeID != "" {
		return m.EntryNodeID, m.Node(m.EntryNodeID) != nil
	}

	incoming := make(map[string]bool, len(m.Edges))
	for _, e := range m.Edges {
		incoming[e.Target] = true
	}
	for _, n := range m.Nodes {
		if !incoming[n.ID] {
			return n.ID, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the manifest via its wire format.
func (m *Manifest) Clone() (*Manifest, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to clone manifest %s: %w", m.ID, err)
	}
	var out Manifest
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to clone manifest %s: %w", m.ID, err)
	}
	return &out, nil
}

// Template is a reusable manifest blueprint.
type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	SourceID    string    `json:"source_id,omitempty"`
	Manifest    Manifest  `json:"manifest"`
	CreatedAt   time.Time `json:"created_at"`
}
