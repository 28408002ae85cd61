package tests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleManifest(id string, version int) *domain.Manifest {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.Manifest{
		ID:   id,
		Name: "contract " + id,
		Tags: []string{"contract"},
		Nodes: []domain.Node{
			{ID: "a", Type: domain.NodeTypeModelCall, Config: json.RawMessage(`{"model_id":"m","prompt_template":"hi"}`)},
			{ID: "b", Type: domain.NodeTypeMerge},
		},
		Edges:       []domain.Edge{{ID: "e1", Source: "a", Target: "b"}},
		StateSchema: []domain.StateField{{Name: "topic", Type: domain.FieldString, Default: "go"}},
		VersionInfo: domain.VersionInfo{Version: version, Status: domain.StatusDraft, Timestamp: now},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// RunManifestStoreContract verifies that a ManifestStore implementation
// adheres to the interface contract.
func RunManifestStoreContract(t *testing.T, store ports.ManifestStore) {
	t.Helper()
	ctx := context.Background()
	id := "contract-" + time.Now().Format("20060102150405.000000000")

	t.Run("SaveVersion and Get", func(t *testing.T) {
		m := sampleManifest(id, 1)
		require.NoError(t, store.SaveVersion(ctx, m))

		loaded, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, m.Name, loaded.Name)
		assert.Equal(t, 1, loaded.VersionInfo.Version)
		assert.JSONEq(t, string(m.Nodes[0].Config), string(loaded.Nodes[0].Config))
		assert.Equal(t, "b", loaded.Edges[0].Target)
	})

	t.Run("Get returns copies", func(t *testing.T) {
		loaded, err := store.Get(ctx, id)
		require.NoError(t, err)
		loaded.Name = "mutated"

		again, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.Name)
	})

	t.Run("History is append-only", func(t *testing.T) {
		v2 := sampleManifest(id, 2)
		v2.Name = "second"
		require.NoError(t, store.SaveVersion(ctx, v2))

		v1, err := store.GetVersion(ctx, id, 1)
		require.NoError(t, err)
		assert.Equal(t, "contract "+id, v1.Name)

		versions, err := store.ListVersions(ctx, id)
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, 1, versions[0].Version)
		assert.Equal(t, 2, versions[1].Version)

		_, err = store.GetVersion(ctx, id, 9)
		assert.ErrorIs(t, err, domain.ErrVersionNotFound)
	})

	t.Run("Put leaves history untouched", func(t *testing.T) {
		live, err := store.Get(ctx, id)
		require.NoError(t, err)
		live.VersionInfo.Status = domain.StatusPublished
		require.NoError(t, store.Put(ctx, live))

		loaded, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPublished, loaded.VersionInfo.Status)

		v2, err := store.GetVersion(ctx, id, 2)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDraft, v2.VersionInfo.Status)
	})

	t.Run("List", func(t *testing.T) {
		other := id + "-other"
		require.NoError(t, store.SaveVersion(ctx, sampleManifest(other, 1)))
		defer func() { _ = store.Delete(ctx, other) }()

		all, err := store.List(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(all))
		for _, m := range all {
			ids = append(ids, m.ID)
		}
		assert.Contains(t, ids, id)
		assert.Contains(t, ids, other)
	})

	t.Run("Delete removes history", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, id))

		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, domain.ErrManifestNotFound)
		_, err = store.GetVersion(ctx, id, 1)
		assert.ErrorIs(t, err, domain.ErrVersionNotFound)

		err = store.Delete(ctx, id)
		assert.ErrorIs(t, err, domain.ErrManifestNotFound)
	})

	t.Run("Templates", func(t *testing.T) {
		tpl := &domain.Template{
			ID:        id + "-tpl",
			Name:      "contract template",
			Manifest:  *sampleManifest("", 1),
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, store.PutTemplate(ctx, tpl))

		loaded, err := store.GetTemplate(ctx, tpl.ID)
		require.NoError(t, err)
		assert.Equal(t, tpl.Name, loaded.Name)
		assert.Len(t, loaded.Manifest.Nodes, 2)

		all, err := store.ListTemplates(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, all)

		_, err = store.GetTemplate(ctx, "missing-template")
		assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
	})
}
