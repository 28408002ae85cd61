package compiler

import (
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestRoutes_Conditional(t *testing.T) {
	tests := []struct {
		name      string
		edges     []domain.Edge
		wantTrue  string
		wantFalse string
		warnings  int
	}{
		{
			name: "typed edges",
			edges: []domain.Edge{
				{Source: "c", Target: "no", Type: domain.EdgeConditionalFalse},
				{Source: "c", Target: "yes", Type: domain.EdgeConditionalTrue},
			},
			wantTrue: "yes", wantFalse: "no",
		},
		{
			name:     "untyped fallback uses declaration order",
			edges:    []domain.Edge{{Source: "c", Target: "yes"}, {Source: "c", Target: "no"}},
			wantTrue: "yes", wantFalse: "no",
		},
		{
			name: "missing typed side filled from untyped edge",
			edges: []domain.Edge{
				{Source: "c", Target: "other"},
				{Source: "c", Target: "yes", Type: domain.EdgeConditionalTrue},
			},
			wantTrue: "yes", wantFalse: "other",
		},
		{
			name:     "single edge leaves false terminal",
			edges:    []domain.Edge{{Source: "c", Target: "yes", Type: domain.EdgeConditionalTrue}},
			wantTrue: "yes", warnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &domain.Manifest{
				Nodes: []domain.Node{{ID: "c", Type: domain.NodeTypeConditional}},
				Edges: tt.edges,
			}
			routes, warnings := Routes(m)
			r := routes["c"]
			assert.Equal(t, domain.RouteConditional, r.Kind)
			assert.Equal(t, tt.wantTrue, r.TrueTarget)
			assert.Equal(t, tt.wantFalse, r.FalseTarget)
			assert.Len(t, warnings, tt.warnings)
		})
	}
}

func TestRoutes_Approval(t *testing.T) {
	m := &domain.Manifest{
		Nodes: []domain.Node{
			{ID: "typed", Type: domain.NodeTypeApproval},
			{ID: "plain", Type: domain.NodeTypeReview},
		},
		Edges: []domain.Edge{
			{Source: "typed", Target: "ok", Type: domain.EdgeApprovalApproved},
			{Source: "typed", Target: "back", Type: domain.EdgeApprovalRejected},
			{Source: "plain", Target: "next"},
		},
	}

	routes, warnings := Routes(m)
	assert.Equal(t, "ok", routes["typed"].ApprovedTarget)
	assert.Equal(t, "back", routes["typed"].RejectedTarget)
	assert.Equal(t, "next", routes["plain"].ApprovedTarget)
	assert.Empty(t, routes["plain"].RejectedTarget)
	assert.Len(t, warnings, 1)
}

func TestRoutes_Default(t *testing.T) {
	m := &domain.Manifest{
		Nodes: []domain.Node{{ID: "a", Type: domain.NodeTypeMerge}, {ID: "b", Type: domain.NodeTypeMerge}},
		Edges: []domain.Edge{{Source: "a", Target: "b"}},
	}

	routes, warnings := Routes(m)
	assert.Empty(t, warnings)
	assert.Equal(t, "b", routes["a"].Next())
	assert.Equal(t, domain.Terminal, routes["b"].Next())
}
