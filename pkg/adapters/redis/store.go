// Package redis provides Redis-backed registry storage and distributed locking.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aretw0/lattice/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store and the locker.
const DefaultPrefix = "lattice:"

// Store implements ports.ManifestStore using Redis.
//
// Layout (relative to the prefix):
//
//	manifest:<id>          live manifest JSON
//	history:<id>           hash of version number to manifest JSON
//	index                  sorted set of live manifest ids
//	templates              hash of template id to template JSON
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client so a Locker can share it.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) liveKey(id string) string    { return s.prefix + "manifest:" + id }
func (s *Store) historyKey(id string) string { return s.prefix + "history:" + id }
func (s *Store) indexKey() string            { return s.prefix + "index" }
func (s *Store) templatesKey() string        { return s.prefix + "templates" }

// Get returns the live manifest.
func (s *Store) Get(ctx context.Context, id string) (*domain.Manifest, error) {
	val, err := s.client.Get(ctx, s.liveKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrManifestNotFound
		}
		return nil, fmt.Errorf("failed to get manifest from redis: %w", err)
	}
	return decodeManifest(val)
}

// SaveVersion writes the live manifest and its history entry atomically.
func (s *Store) SaveVersion(ctx context.Context, m *domain.Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.liveKey(m.ID), data, 0)
		pipe.HSet(ctx, s.historyKey(m.ID), strconv.Itoa(m.VersionInfo.Version), data)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: 0, Member: m.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save manifest to redis: %w", err)
	}
	return nil
}

// Put replaces the live manifest without touching history.
func (s *Store) Put(ctx context.Context, m *domain.Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.liveKey(m.ID), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: 0, Member: m.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save manifest to redis: %w", err)
	}
	return nil
}

// Delete removes the live manifest, its history and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	removed, err := s.client.ZRem(ctx, s.indexKey(), id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete manifest from redis: %w", err)
	}
	if removed == 0 {
		return domain.ErrManifestNotFound
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.liveKey(id))
	pipe.Del(ctx, s.historyKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete manifest from redis: %w", err)
	}
	return nil
}

// List returns all live manifests ordered by id.
func (s *Store) List(ctx context.Context) ([]*domain.Manifest, error) {
	// Every member has score 0, so the set orders lexicographically.
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Manifest{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.liveKey(id))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}

	out := make([]*domain.Manifest, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			// Deleted between the index read and the fetch.
			continue
		}
		m, err := decodeManifest([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// GetVersion returns a historical version.
func (s *Store) GetVersion(ctx context.Context, id string, version int) (*domain.Manifest, error) {
	val, err := s.client.HGet(ctx, s.historyKey(id), strconv.Itoa(version)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s v%d", domain.ErrVersionNotFound, id, version)
		}
		return nil, fmt.Errorf("failed to get version from redis: %w", err)
	}
	return decodeManifest(val)
}

// ListVersions returns the version records in ascending order.
func (s *Store) ListVersions(ctx context.Context, id string) ([]domain.VersionInfo, error) {
	entries, err := s.client.HGetAll(ctx, s.historyKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	if len(entries) == 0 {
		return nil, domain.ErrManifestNotFound
	}

	out := make([]domain.VersionInfo, 0, len(entries))
	for _, raw := range entries {
		m, err := decodeManifest([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, m.VersionInfo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// PutTemplate stores a template.
func (s *Store) PutTemplate(ctx context.Context, t *domain.Template) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}
	if err := s.client.HSet(ctx, s.templatesKey(), t.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to save template to redis: %w", err)
	}
	return nil
}

// GetTemplate returns a template.
func (s *Store) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	val, err := s.client.HGet(ctx, s.templatesKey(), id).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template from redis: %w", err)
	}
	var t domain.Template
	if err := json.Unmarshal(val, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template: %w", err)
	}
	return &t, nil
}

// ListTemplates returns all templates ordered by id.
func (s *Store) ListTemplates(ctx context.Context) ([]*domain.Template, error) {
	entries, err := s.client.HGetAll(ctx, s.templatesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	out := make([]*domain.Template, 0, len(entries))
	for _, raw := range entries {
		var t domain.Template
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template: %w", err)
		}
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func decodeManifest(data []byte) (*domain.Manifest, error) {
	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}
