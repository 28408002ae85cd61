package registry

import (
	"context"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
)

// GetVersion returns a historical version of id.
func (r *Registry) GetVersion(ctx context.Context, id string, version int) (*domain.Manifest, error) {
	m, err := r.store.GetVersion(ctx, id, version)
	if err != nil {
		return nil, declined("get_version", id, err)
	}
	return m, nil
}

// ListVersions returns the version records of id in ascending order.
func (r *Registry) ListVersions(ctx context.Context, id string) ([]domain.VersionInfo, error) {
	versions, err := r.store.ListVersions(ctx, id)
	if err != nil {
		return nil, declined("list_versions", id, err)
	}
	return versions, nil
}

// Rollback creates a new draft version whose content copies version and
// records rollback_from in its metadata. History is never rewritten.
func (r *Registry) Rollback(ctx context.Context, id string, version int, author string) (*domain.Manifest, error) {
	var rolled *domain.Manifest
	err := r.withLock(ctx, id, func(ctx context.Context) error {
		current, err := r.store.Get(ctx, id)
		if err != nil {
			return err
		}
		target, err := r.store.GetVersion(ctx, id, version)
		if err != nil {
			return err
		}
		next, err := r.nextVersion(ctx, id)
		if err != nil {
			return err
		}

		rolled = target
		if rolled.Metadata == nil {
			rolled.Metadata = make(map[string]any)
		}
		rolled.Metadata[domain.KeyRollbackFrom] = version
		r.stamp(rolled, current, next, author, fmt.Sprintf("rollback to version %d", version))
		return r.store.SaveVersion(ctx, rolled)
	})
	if err != nil {
		return nil, declined("rollback", id, err)
	}

	r.logger.InfoContext(ctx, "manifest rolled back", "manifest_id", id, "from", version, "version", rolled.VersionInfo.Version)
	return rolled, nil
}

// SetStatus moves the live version along the lifecycle. The recorded
// history entry keeps the status it was created with.
func (r *Registry) SetStatus(ctx context.Context, id string, status domain.Status) (*domain.Manifest, error) {
	var m *domain.Manifest
	err := r.withLock(ctx, id, func(ctx context.Context) error {
		var err error
		m, err = r.store.Get(ctx, id)
		if err != nil {
			return err
		}
		from := m.VersionInfo.Status
		if !status.Valid() || !from.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, status)
		}
		m.VersionInfo.Status = status
		m.UpdatedAt = r.now()
		return r.store.Put(ctx, m)
	})
	if err != nil {
		return nil, declined("set_status", id, err)
	}

	r.logger.InfoContext(ctx, "manifest status changed", "manifest_id", id, "version", m.VersionInfo.Version, "status", status)
	return m, nil
}

// Diff compares two versions of id. Both must exist.
func (r *Registry) Diff(ctx context.Context, id string, versionA, versionB int) ([]domain.Change, error) {
	a, err := r.store.GetVersion(ctx, id, versionA)
	if err != nil {
		return nil, declined("diff", id, err)
	}
	b, err := r.store.GetVersion(ctx, id, versionB)
	if err != nil {
		return nil, declined("diff", id, err)
	}
	return domain.DiffManifests(a, b), nil
}
