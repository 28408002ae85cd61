package lattice_test

import (
	"context"
	"testing"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/testutils"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func askManifest(template string) *domain.Manifest {
	return &domain.Manifest{
		Name: "ask",
		Tags: []string{"demo"},
		StateSchema: []domain.StateField{
			{Name: "topic", Type: domain.FieldString, Default: "go"},
		},
		Nodes: []domain.Node{
			{ID: "ask", Type: domain.NodeTypeModelCall, Config: domain.MustConfig(map[string]any{
				"model_id":        "m",
				"prompt_template": template,
			})},
		},
	}
}

func TestService_UpdateRecompilesOnNextRun(t *testing.T) {
	ctx := context.Background()
	model := &testutils.FakeModel{Reply: "ok"}
	svc := lattice.New(lattice.WithModelInvoker(model))

	m, err := svc.Create(ctx, askManifest("v1 {{state.topic}}"), "alice")
	require.NoError(t, err)

	res, err := svc.CompileByID(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, res.Success, res.Errors)
	version, ok := svc.Compiled(m.ID)
	require.True(t, ok)
	assert.Equal(t, 1, version)

	_, err = svc.Update(ctx, m.ID, askManifest("v2 {{state.topic}}"), "reword", "alice")
	require.NoError(t, err)
	_, ok = svc.Compiled(m.ID)
	assert.False(t, ok, "update must drop the compiled graph")

	out := svc.Run(ctx, m.ID, nil)
	require.True(t, out.Success, out.Error)
	assert.Equal(t, "v2 go", out.State.Messages[0].Content)

	version, ok = svc.Compiled(m.ID)
	require.True(t, ok)
	assert.Equal(t, 2, version)
}

func TestService_DeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	svc := lattice.New(lattice.WithModelInvoker(&testutils.FakeModel{Reply: "ok"}))

	m, err := svc.Create(ctx, askManifest("hi"), "alice")
	require.NoError(t, err)
	_, err = svc.CompileByID(ctx, m.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, m.ID))
	_, ok := svc.Compiled(m.ID)
	assert.False(t, ok)

	out := svc.Run(ctx, m.ID, nil)
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "manifest not found")
}

func TestService_WithoutAutoCompile(t *testing.T) {
	ctx := context.Background()
	svc := lattice.New(lattice.WithAutoCompile(false))

	m, err := svc.Create(ctx, askManifest("hi"), "alice")
	require.NoError(t, err)

	out := svc.Run(ctx, m.ID, nil)
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, domain.ErrNotCompiled.Error())
}

func TestService_CompileByIDUnknown(t *testing.T) {
	svc := lattice.New()
	_, err := svc.CompileByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrManifestNotFound)
}

func TestService_Validate(t *testing.T) {
	svc := lattice.New()
	m := askManifest("hi")
	m.Edges = []domain.Edge{{ID: "e", Source: "ask", Target: "ghost"}}

	errs, _ := svc.Validate(m)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `"ghost"`)
}

func TestService_Mermaid(t *testing.T) {
	svc := lattice.New()
	m := &domain.Manifest{
		Name: "branch",
		Nodes: []domain.Node{
			{ID: "A", Type: domain.NodeTypeConditional},
			{ID: "B", Type: domain.NodeTypeMerge},
			{ID: "C", Type: domain.NodeTypeMerge},
		},
		Edges: []domain.Edge{
			{Source: "A", Target: "B"},
			{Source: "A", Target: "C"},
		},
	}

	out := svc.Mermaid(m)
	assert.Contains(t, out, `A -- "true" --> B`)
	assert.Contains(t, out, `A -- "false" --> C`)
}

func TestService_MetricsAndHooks(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics()
	svc := lattice.New(
		lattice.WithModelInvoker(&testutils.FakeModel{Reply: "ok"}),
		lattice.WithMetrics(metrics),
	)
	assert.Same(t, metrics, svc.Metrics())

	m, err := svc.Create(ctx, askManifest("hi"), "alice")
	require.NoError(t, err)
	out := svc.Run(ctx, m.ID, nil)
	require.True(t, out.Success, out.Error)

	count, err := testutil.GatherAndCount(metrics.Registry(), "lattice_node_executions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_SetStatusAndRollback(t *testing.T) {
	ctx := context.Background()
	svc := lattice.New()

	m, err := svc.Create(ctx, askManifest("one"), "alice")
	require.NoError(t, err)
	_, err = svc.Update(ctx, m.ID, askManifest("two"), "second", "alice")
	require.NoError(t, err)

	rolled, err := svc.Rollback(ctx, m.ID, 1, "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, rolled.VersionInfo.Version)

	published, err := svc.SetStatus(ctx, m.ID, domain.StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, published.VersionInfo.Status)

	versions, err := svc.ListVersions(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 3)
}
