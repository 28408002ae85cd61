package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/lattice/internal/config"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestsDir = "../../examples/manifests"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReadManifest(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		m, err := readManifest(filepath.Join(manifestsDir, "support-triage.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "support-triage", m.ID)
		assert.Len(t, m.Nodes, 5)
		assert.Equal(t, domain.EdgeApprovalApproved, m.Edges[3].Type)

		cfg, err := domain.DecodeConfig(*m.Node("classify"))
		require.NoError(t, err)
		assert.Equal(t, []string{"billing", "technical", "other"}, cfg.(domain.ClassifierConfig).Categories)
	})

	t.Run("json", func(t *testing.T) {
		m, err := readManifest(filepath.Join(manifestsDir, "rag-answer.json"))
		require.NoError(t, err)
		assert.Equal(t, "rag-answer", m.ID)
		assert.Contains(t, m.Metadata, domain.KeyPrompts)
	})

	t.Run("id defaults to file name", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nameless.yml")
		require.NoError(t, os.WriteFile(path, []byte("name: Nameless\nnodes:\n  - id: a\n    type: merge\nedges: []\n"), 0o644))

		m, err := readManifest(path)
		require.NoError(t, err)
		assert.Equal(t, "nameless", m.ID)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readManifest(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}

func TestReadState(t *testing.T) {
	state, err := readState(`{"score": 0.9}`)
	require.NoError(t, err)
	assert.Equal(t, 0.9, state["score"])

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ticket":"refund please"}`), 0o644))
	state, err = readState("@" + path)
	require.NoError(t, err)
	assert.Equal(t, "refund please", state["ticket"])

	state, err = readState("")
	require.NoError(t, err)
	assert.Nil(t, state)

	_, err = readState("[1,2]")
	assert.Error(t, err)
}

func TestIsYAMLPath(t *testing.T) {
	assert.True(t, isYAMLPath("a.yaml"))
	assert.True(t, isYAMLPath("b.YML"))
	assert.False(t, isYAMLPath("c.json"))
}

func TestSeed(t *testing.T) {
	a, err := newApp(config.Default(), logging.NewNop())
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	n, err := seed(ctx, a, manifestsDir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := a.svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Seeding again updates instead of duplicating.
	_, err = seed(ctx, a, manifestsDir)
	require.NoError(t, err)
	versions, err := a.svc.ListVersions(ctx, "offline-scoring")
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate",
		filepath.Join(manifestsDir, "support-triage.yaml"),
		filepath.Join(manifestsDir, "rag-answer.json"),
		filepath.Join(manifestsDir, "offline-scoring.yaml"),
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, "support-triage.yaml: valid")
	assert.Contains(t, out, "offline-scoring.yaml: valid")
}

func TestValidateCommand_ReportsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"id": "broken", "name": "Broken",
		"nodes": [{"id": "a", "type": "merge"}],
		"edges": [{"id": "e1", "source": "a", "target": "ghost"}]
	}`), 0o644))

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "error:")
	assert.Contains(t, out, "ghost")
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", filepath.Join(manifestsDir, "offline-scoring.yaml"),
		"--json", "--state", `{"score": 0.7, "items": [1, 2]}`)
	require.NoError(t, err, out)

	var res domain.RunResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.State.Outputs, "pass")
	assert.NotContains(t, res.State.Outputs, "fail")
	assert.Contains(t, res.State.Fields, "verdict")
}
