package dsl

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/lattice/internal/validator"
	"github.com/aretw0/lattice/pkg/domain"
)

// Builder accumulates a manifest. Nodes keep their insertion order, so the
// first node added is the entry unless Entry says otherwise.
type Builder struct {
	m     domain.Manifest
	nodes map[string]*NodeBuilder
	order []*NodeBuilder
	errs  []error
}

// New starts a manifest with the given id and name.
func New(id, name string) *Builder {
	return &Builder{
		m:     domain.Manifest{ID: id, Name: name},
		nodes: make(map[string]*NodeBuilder),
	}
}

// Describe sets the manifest description.
func (b *Builder) Describe(text string) *Builder {
	b.m.Description = text
	return b
}

// Tags appends manifest tags.
func (b *Builder) Tags(tags ...string) *Builder {
	b.m.Tags = append(b.m.Tags, tags...)
	return b
}

// Field declares a state field.
func (b *Builder) Field(name string, t domain.FieldType, def any) *Builder {
	b.m.StateSchema = append(b.m.StateSchema, domain.StateField{Name: name, Type: t, Default: def})
	return b
}

// Entry pins the entry node.
func (b *Builder) Entry(id string) *Builder {
	b.m.EntryNodeID = id
	return b
}

// Meta sets a manifest metadata key.
func (b *Builder) Meta(key string, value any) *Builder {
	if b.m.Metadata == nil {
		b.m.Metadata = make(map[string]any)
	}
	b.m.Metadata[key] = value
	return b
}

// Prompt registers an inline prompt under metadata.prompts.
func (b *Builder) Prompt(id, template string) *Builder {
	prompts, _ := b.m.Metadata[domain.KeyPrompts].(map[string]any)
	if prompts == nil {
		prompts = make(map[string]any)
	}
	prompts[id] = template
	return b.Meta(domain.KeyPrompts, prompts)
}

// Add creates a node, or returns the existing builder for id.
func (b *Builder) Add(id string, t domain.NodeType) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		if nb.node.Type != t {
			b.errs = append(b.errs, fmt.Errorf("node %q added twice with types %q and %q", id, nb.node.Type, t))
		}
		return nb
	}
	nb := &NodeBuilder{node: domain.Node{ID: id, Type: t}, builder: b}
	b.nodes[id] = nb
	b.order = append(b.order, nb)
	return nb
}

// Build assembles the manifest and validates its structure.
// Validation warnings are not errors; compile the result to see them.
func (b *Builder) Build() (*domain.Manifest, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	m := b.m
	m.Nodes = make([]domain.Node, 0, len(b.order))
	m.Edges = nil
	for _, nb := range b.order {
		m.Nodes = append(m.Nodes, nb.node)
		for _, e := range nb.edges {
			e.ID = fmt.Sprintf("e%d", len(m.Edges)+1)
			m.Edges = append(m.Edges, e)
		}
	}

	if report := validator.Validate(&m); !report.Valid() {
		return nil, fmt.Errorf("manifest %s is invalid: %w", m.ID, errors.Join(report.Errors...))
	}
	return &m, nil
}

// MustBuild is Build for manifests known to be valid, such as test fixtures.
func (b *Builder) MustBuild() *domain.Manifest {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

// encodeConfig turns a typed config or a plain map into the raw payload.
func encodeConfig(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
