package validator

import (
	"errors"
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, typ domain.NodeType) domain.Node {
	return domain.Node{ID: id, Type: typ}
}

func TestValidate_Valid(t *testing.T) {
	m := &domain.Manifest{
		Name:  "ok",
		Nodes: []domain.Node{node("A", domain.NodeTypeModelCall)},
	}

	r := Validate(m)
	assert.True(t, r.Valid())
	assert.Empty(t, r.Warnings)
}

func TestValidate_DanglingEdge(t *testing.T) {
	m := &domain.Manifest{
		Name:  "dangling",
		Nodes: []domain.Node{node("X", domain.NodeTypeMerge)},
		Edges: []domain.Edge{{Source: "X", Target: "Y"}},
	}

	r := Validate(m)
	require.Len(t, r.Errors, 1)
	msg := r.Errors[0].Error()
	assert.Contains(t, msg, "X→Y")
	assert.Contains(t, msg, `target node "Y"`)

	var structural *domain.StructuralError
	assert.True(t, errors.As(r.Errors[0], &structural))
}

func TestValidate_Cycle(t *testing.T) {
	m := &domain.Manifest{
		Name:        "cycle",
		Nodes:       []domain.Node{node("A", domain.NodeTypeMerge), node("B", domain.NodeTypeMerge)},
		Edges:       []domain.Edge{{Source: "A", Target: "B"}, {Source: "B", Target: "A"}},
		EntryNodeID: "A",
	}

	r := Validate(m)
	require.Len(t, r.Errors, 1)
	var cycle *domain.CycleError
	assert.True(t, errors.As(r.Errors[0], &cycle))
	assert.Contains(t, r.Errors[0].Error(), "contains cycles")
}

func TestValidate_LoopBodyCycleIsStillReported(t *testing.T) {
	m := &domain.Manifest{
		Name:  "loop",
		Nodes: []domain.Node{node("start", domain.NodeTypeTransform), node("each", domain.NodeTypeLoop), node("body", domain.NodeTypeModelCall)},
		Edges: []domain.Edge{
			{Source: "start", Target: "each"},
			{Source: "each", Target: "body", Type: domain.EdgeLoopBody},
			{Source: "body", Target: "each"},
		},
	}

	r := Validate(m)
	require.Len(t, r.Errors, 1)
	var cycle *domain.CycleError
	assert.True(t, errors.As(r.Errors[0], &cycle))
}

func TestValidate_ReportsEverything(t *testing.T) {
	m := &domain.Manifest{
		Nodes: []domain.Node{
			node("A", domain.NodeTypeConditional),
			node("A", domain.NodeTypeMerge),
			node("B", "teleport"),
		},
		Edges:       []domain.Edge{{ID: "e1", Source: "A", Target: "ghost"}},
		StateSchema: []domain.StateField{{Name: "x", Type: "decimal"}, {Name: "x", Type: domain.FieldInt}},
	}

	r := Validate(m)
	msgs := domain.Messages(r.Errors)
	assert.Contains(t, msgs, "manifest name is required")
	assert.Contains(t, msgs, `duplicate node id "A"`)
	assert.Contains(t, msgs, `node "B" has unknown type "teleport"`)
	assert.Contains(t, msgs, `duplicate state field "x"`)
	assert.Contains(t, msgs, `state field "x" has unknown type "decimal"`)
	assert.Contains(t, msgs, `edge "e1" (A→ghost): target node "ghost" does not exist`)
	assert.Contains(t, msgs, `conditional node "A" needs both a true and a false branch (found 1 outgoing edge(s))`)
}

func TestValidate_Empty(t *testing.T) {
	r := Validate(&domain.Manifest{Name: "empty"})
	assert.Equal(t, []string{"manifest has no nodes"}, domain.Messages(r.Errors))
}

func TestValidate_EntryNode(t *testing.T) {
	m := &domain.Manifest{
		Name:        "entry",
		Nodes:       []domain.Node{node("A", domain.NodeTypeMerge)},
		EntryNodeID: "Z",
	}
	assert.Equal(t, []string{`entry node "Z" does not exist`}, domain.Messages(Validate(m).Errors))
}

func TestValidate_Conditional(t *testing.T) {
	base := func(edges ...domain.Edge) *domain.Manifest {
		return &domain.Manifest{
			Name:  "cond",
			Nodes: []domain.Node{node("A", domain.NodeTypeConditional), node("B", domain.NodeTypeMerge), node("C", domain.NodeTypeMerge)},
			Edges: edges,
		}
	}

	assert.True(t, Validate(base(
		domain.Edge{Source: "A", Target: "B", Type: domain.EdgeConditionalTrue},
		domain.Edge{Source: "A", Target: "C", Type: domain.EdgeConditionalFalse},
	)).Valid())

	assert.True(t, Validate(base(
		domain.Edge{Source: "A", Target: "B"},
		domain.Edge{Source: "A", Target: "C"},
	)).Valid(), "two untyped edges use the fallback policy")

	assert.False(t, Validate(base(
		domain.Edge{Source: "A", Target: "B", Type: domain.EdgeConditionalTrue},
	)).Valid())
}

func TestValidate_ReservedFieldNamesWarn(t *testing.T) {
	m := &domain.Manifest{
		Name:        "warn",
		Nodes:       []domain.Node{node("A", domain.NodeTypeMerge)},
		StateSchema: []domain.StateField{{Name: "output_A", Type: domain.FieldString}, {Name: "run_id", Type: domain.FieldString}},
	}

	r := Validate(m)
	assert.True(t, r.Valid())
	assert.Len(t, r.Warnings, 2)
}

func TestValidate_UndeclaredPlaceholders(t *testing.T) {
	m := &domain.Manifest{
		Name:        "refs",
		StateSchema: []domain.StateField{{Name: "topic", Type: domain.FieldString}},
		Nodes: []domain.Node{
			{ID: "ask", Type: domain.NodeTypeModelCall, Config: domain.MustConfig(map[string]any{
				"model_id":        "m",
				"prompt_template": "{{state.topic}} for {{state.audience}} in {{state.run_id}}",
			})},
			{ID: "call", Type: domain.NodeTypeHTTPTool, Config: domain.MustConfig(map[string]any{
				"method":  "POST",
				"url":     "https://example.com/{{state.output_ask}}",
				"headers": map[string]string{"X-Who": "{{ state.audience.name }}"},
				"body":    map[string]any{"items": []any{"{{state.missing}}"}},
			})},
		},
		Edges: []domain.Edge{{ID: "e1", Source: "ask", Target: "call"}},
	}

	r := Validate(m)
	assert.True(t, r.Valid(), "undeclared references are warnings")
	assert.ElementsMatch(t, []string{
		`node "ask" references undeclared state key "audience"`,
		`node "call" references undeclared state key "audience"`,
		`node "call" references undeclared state key "missing"`,
	}, r.Warnings)
}
