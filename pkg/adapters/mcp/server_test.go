package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/testutils"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifestJSON(t *testing.T, m *domain.Manifest) string {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return string(data)
}

func echoManifest() *domain.Manifest {
	return &domain.Manifest{
		Name: "echo",
		Tags: []string{"mcp"},
		Nodes: []domain.Node{
			{ID: "say", Type: domain.NodeTypeModelCall, Config: domain.MustConfig(map[string]any{
				"model_id":        "m",
				"prompt_template": "say {{state.word}}",
			})},
		},
	}
}

func setup(t *testing.T) (*Server, *domain.Manifest) {
	t.Helper()
	svc := lattice.New(lattice.WithModelInvoker(&testutils.FakeModel{Reply: "said"}))
	m, err := svc.Create(context.Background(), echoManifest(), "tester")
	require.NoError(t, err)
	return NewServer(svc, "test"), m
}

func TestHandleValidate(t *testing.T) {
	s, _ := setup(t)
	bad := echoManifest()
	bad.Edges = []domain.Edge{{ID: "e", Source: "say", Target: "ghost"}}

	res, err := s.handleValidate(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"manifest": manifestJSON(t, bad),
	})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)

	res, err = s.handleValidate(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"manifest": map[string]any{"name": "obj", "nodes": []any{map[string]any{"id": "a", "type": "merge"}}, "edges": []any{}},
	})
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Errors)

	_, err = s.handleValidate(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{})
	assert.Error(t, err)
}

func TestHandleCompileAndRun(t *testing.T) {
	s, m := setup(t)
	ctx := context.Background()

	res, err := s.handleCompile(ctx, mcp.CallToolRequest{}, map[string]interface{}{"id": m.ID})
	require.NoError(t, err)
	assert.True(t, res.Success, res.Errors)

	run, err := s.handleRun(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"id":    m.ID,
		"state": `{"word": "hello"}`,
	})
	require.NoError(t, err)
	require.True(t, run.Success, run.Error)
	assert.Equal(t, "said", run.State.Outputs["say"])
	assert.Equal(t, "say hello", run.State.Messages[0].Content)

	_, err = s.handleRun(ctx, mcp.CallToolRequest{}, map[string]interface{}{"id": m.ID, "state": "[1"})
	assert.Error(t, err)

	_, err = s.handleCompile(ctx, mcp.CallToolRequest{}, map[string]interface{}{"id": "missing"})
	assert.ErrorIs(t, err, domain.ErrManifestNotFound)
}

func TestHandleCompileInline(t *testing.T) {
	s, _ := setup(t)
	cyclic := &domain.Manifest{
		ID:   "loop",
		Name: "loop",
		Nodes: []domain.Node{
			{ID: "a", Type: domain.NodeTypeMerge},
			{ID: "b", Type: domain.NodeTypeMerge},
		},
		Edges: []domain.Edge{
			{ID: "1", Source: "a", Target: "b"},
			{ID: "2", Source: "b", Target: "a"},
		},
	}

	res, err := s.handleCompile(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"manifest": manifestJSON(t, cyclic),
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Errors)
}

func TestHandleList(t *testing.T) {
	s, m := setup(t)

	res, err := s.handleList(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{})
	require.NoError(t, err)
	require.Len(t, res.Manifests, 1)
	assert.Equal(t, m.ID, res.Manifests[0].ID)
	assert.Equal(t, domain.StatusDraft, res.Manifests[0].Status)

	res, err = s.handleList(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"status": "published"})
	require.NoError(t, err)
	assert.Empty(t, res.Manifests)

	res, err = s.handleList(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"query": "ECHO"})
	require.NoError(t, err)
	assert.Len(t, res.Manifests, 1)
}

func TestHandleGraph(t *testing.T) {
	s, m := setup(t)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"id": m.ID}
	res, err := s.handleGraph(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "graph TD")

	req.Params.Arguments = map[string]any{"id": "missing"}
	res, err = s.handleGraph(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
