package dsl

import (
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_ConditionalFlow(t *testing.T) {
	m, err := New("triage", "Triage").
		Describe("route by priority").
		Tags("support").
		Field("priority", domain.FieldInt, 0).
		Add("check", domain.NodeTypeConditional).
		Config(domain.ConditionalConfig{Expression: "state.priority > 3"}).
		True("escalate").
		False("queue").
		Add("escalate", domain.NodeTypeTransform).
		Label("Escalate").
		Config(map[string]any{"input_mapping": map[string]string{"p": "state.priority"}}).
		Add("queue", domain.NodeTypeMerge).
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"check", "escalate", "queue"}, m.NodeIDs())
	require.Len(t, m.Edges, 2)
	assert.Equal(t, domain.Edge{ID: "e1", Source: "check", Target: "escalate", Type: domain.EdgeConditionalTrue}, m.Edges[0])
	assert.Equal(t, domain.EdgeConditionalFalse, m.Edges[1].Type)

	entry, ok := m.ResolveEntry()
	require.True(t, ok)
	assert.Equal(t, "check", entry)

	cfg, err := domain.DecodeConfig(*m.Node("check"))
	require.NoError(t, err)
	assert.Equal(t, "state.priority > 3", cfg.(domain.ConditionalConfig).Expression)
}

func TestBuilder_ApprovalAndPrompts(t *testing.T) {
	m := New("review", "Review").
		Prompt("draft", "Draft a reply to {{state.ticket}}").
		Add("write", domain.NodeTypeModelCall).
		Config(domain.ModelCallConfig{ModelID: "m", PromptID: "draft"}).
		Retry(3, domain.BackoffFixed, 10).
		Go("gate").
		Add("gate", domain.NodeTypeApproval).
		Approved("send").
		Rejected("write_again").
		Add("send", domain.NodeTypeMerge).
		Add("write_again", domain.NodeTypeMerge).
		Done().
		Entry("write").
		MustBuild()

	assert.Equal(t, "write", m.EntryNodeID)
	assert.Equal(t, 3, m.Node("write").RetryPolicy.MaxAttempts)
	prompts := m.Metadata[domain.KeyPrompts].(map[string]any)
	assert.Equal(t, "Draft a reply to {{state.ticket}}", prompts["draft"])
	assert.Len(t, m.Edges, 3)
}

func TestBuilder_Invalid(t *testing.T) {
	t.Run("dangling edge", func(t *testing.T) {
		_, err := New("x", "X").
			Add("a", domain.NodeTypeMerge).Go("ghost").
			Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("conflicting types", func(t *testing.T) {
		b := New("x", "X")
		b.Add("a", domain.NodeTypeMerge)
		_, err := b.Add("a", domain.NodeTypeLoop).Build()
		assert.Error(t, err)
	})

	t.Run("must build panics", func(t *testing.T) {
		assert.Panics(t, func() {
			New("x", "X").Add("a", domain.NodeTypeMerge).Go("a").Done().MustBuild()
		})
	})
}
