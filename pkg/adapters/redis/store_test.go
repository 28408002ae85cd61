package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/domain"
	contract "github.com/aretw0/lattice/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	contract.RunManifestStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_KeyLayout(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"))
	ctx := context.Background()

	m := &domain.Manifest{ID: "m1", Name: "layout", VersionInfo: domain.VersionInfo{Version: 1, Status: domain.StatusDraft}}
	require.NoError(t, store.SaveVersion(ctx, m))

	assert.True(t, mr.Exists("test:manifest:m1"))
	assert.True(t, mr.Exists("test:history:m1"))
	keys, err := mr.HKeys("test:history:m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, keys)

	require.NoError(t, store.Delete(ctx, "m1"))
	assert.False(t, mr.Exists("test:manifest:m1"))
	assert.False(t, mr.Exists("test:history:m1"))
}

func TestRedisStore_ListIsOrdered(t *testing.T) {
	_, client := setup(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.SaveVersion(ctx, &domain.Manifest{ID: id, Name: id, VersionInfo: domain.VersionInfo{Version: 1}}))
	}

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
	assert.Equal(t, "c", all[2].ID)
}
