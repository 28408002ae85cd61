// Package registry keeps versioned manifests: CRUD, version history,
// rollback, lifecycle status, diffs, templates and import/export.
//
// Every mutation of a manifest id runs in an exclusive section for that id,
// so version numbers are assigned without gaps or duplicates while
// unrelated manifests proceed in parallel.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// Registry is the manifest registry.
type Registry struct {
	store   ports.ManifestStore
	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*lockEntry
}

// Option configures the Registry.
type Option func(*Registry)

// WithLocker enables distributed locking across registry replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(r *Registry) {
		r.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry.
func WithLockTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithClock overrides the time source used for version timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New creates a Registry over the given store.
func New(store ports.ManifestStore, opts ...Option) *Registry {
	r := &Registry{
		store:   store,
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
		locks:   make(map[string]*lockEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying manifest store.
func (r *Registry) Store() ports.ManifestStore {
	return r.store
}

func declined(op, id string, err error) error {
	return &domain.RegistryError{Op: op, ID: id, Err: err}
}

// Create stores m as version 1 in draft. An empty id is replaced by a
// generated one.
func (r *Registry) Create(ctx context.Context, m *domain.Manifest, author string) (*domain.Manifest, error) {
	if m == nil {
		return nil, declined("create", "", errors.New("manifest is nil"))
	}
	created, err := m.Clone()
	if err != nil {
		return nil, declined("create", m.ID, err)
	}
	if created.ID == "" {
		created.ID = uuid.NewString()
	}

	err = r.withLock(ctx, created.ID, func(ctx context.Context) error {
		if _, err := r.store.Get(ctx, created.ID); err == nil {
			return domain.ErrManifestExists
		} else if !errors.Is(err, domain.ErrManifestNotFound) {
			return err
		}

		now := r.now()
		created.CreatedAt = now
		created.UpdatedAt = now
		created.VersionInfo = domain.VersionInfo{
			Version:    1,
			Status:     domain.StatusDraft,
			Author:     author,
			ChangeNote: "created",
			Timestamp:  now,
		}
		return r.store.SaveVersion(ctx, created)
	})
	if err != nil {
		return nil, declined("create", created.ID, err)
	}

	r.logger.InfoContext(ctx, "manifest created", "manifest_id", created.ID, "version", 1)
	return created, nil
}

// Get returns the live manifest.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Manifest, error) {
	m, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, declined("get", id, err)
	}
	return m, nil
}

// Update stores the content of m as the next version of id, always in draft.
func (r *Registry) Update(ctx context.Context, id string, m *domain.Manifest, changeNote, author string) (*domain.Manifest, error) {
	if m == nil {
		return nil, declined("update", id, errors.New("manifest is nil"))
	}
	var updated *domain.Manifest
	err := r.withLock(ctx, id, func(ctx context.Context) error {
		current, err := r.store.Get(ctx, id)
		if err != nil {
			return err
		}
		next, err := r.nextVersion(ctx, id)
		if err != nil {
			return err
		}

		updated, err = m.Clone()
		if err != nil {
			return err
		}
		r.stamp(updated, current, next, author, changeNote)
		return r.store.SaveVersion(ctx, updated)
	})
	if err != nil {
		return nil, declined("update", id, err)
	}

	r.logger.InfoContext(ctx, "manifest version created", "manifest_id", id, "version", updated.VersionInfo.Version)
	return updated, nil
}

// Delete removes the manifest and its full history.
func (r *Registry) Delete(ctx context.Context, id string) error {
	err := r.withLock(ctx, id, func(ctx context.Context) error {
		return r.store.Delete(ctx, id)
	})
	if err != nil {
		return declined("delete", id, err)
	}
	r.logger.InfoContext(ctx, "manifest deleted", "manifest_id", id)
	return nil
}

// List returns the live manifests ordered by id. A non-empty status keeps
// only manifests in that status.
func (r *Registry) List(ctx context.Context, status domain.Status) ([]*domain.Manifest, error) {
	all, err := r.store.List(ctx)
	if err != nil {
		return nil, declined("list", "", err)
	}
	if status == "" {
		return all, nil
	}

	out := make([]*domain.Manifest, 0, len(all))
	for _, m := range all {
		if m.VersionInfo.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

// Search returns live manifests whose name, description or a tag contains
// query, ignoring case.
func (r *Registry) Search(ctx context.Context, query string) ([]*domain.Manifest, error) {
	all, err := r.store.List(ctx)
	if err != nil {
		return nil, declined("search", "", err)
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]*domain.Manifest, 0, len(all))
	for _, m := range all {
		if matches(m, q) {
			out = append(out, m)
		}
	}
	return out, nil
}

func matches(m *domain.Manifest, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(m.Name), q) || strings.Contains(strings.ToLower(m.Description), q) {
		return true
	}
	for _, tag := range m.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// nextVersion must run inside the exclusive section of id.
func (r *Registry) nextVersion(ctx context.Context, id string) (int, error) {
	versions, err := r.store.ListVersions(ctx, id)
	if err != nil {
		return 0, err
	}
	latest := 0
	for _, v := range versions {
		if v.Version > latest {
			latest = v.Version
		}
	}
	return latest + 1, nil
}

// stamp gives m the identity of current and a fresh draft version record.
func (r *Registry) stamp(m, current *domain.Manifest, version int, author, note string) {
	now := r.now()
	m.ID = current.ID
	m.CreatedAt = current.CreatedAt
	m.UpdatedAt = now
	m.VersionInfo = domain.VersionInfo{
		Version:    version,
		Status:     domain.StatusDraft,
		Author:     author,
		ChangeNote: note,
		Timestamp:  now,
	}
}
