package ports

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// ManifestStore persists live manifests, their append-only version history
// and templates. Implementations return copies; callers never share memory
// with the store.
type ManifestStore interface {
	// Get returns the live manifest.
	// Returns domain.ErrManifestNotFound if the id is unknown.
	Get(ctx context.Context, id string) (*domain.Manifest, error)

	// SaveVersion replaces the live manifest and appends it to the history.
	SaveVersion(ctx context.Context, m *domain.Manifest) error

	// Put replaces the live manifest without touching history.
	Put(ctx context.Context, m *domain.Manifest) error

	// Delete removes the live manifest and its full history.
	// Returns domain.ErrManifestNotFound if the id is unknown.
	Delete(ctx context.Context, id string) error

	// List returns all live manifests ordered by id.
	List(ctx context.Context) ([]*domain.Manifest, error)

	// GetVersion returns a historical version.
	// Returns domain.ErrVersionNotFound if it does not exist.
	GetVersion(ctx context.Context, id string, version int) (*domain.Manifest, error)

	// ListVersions returns the version records in ascending version order.
	ListVersions(ctx context.Context, id string) ([]domain.VersionInfo, error)

	PutTemplate(ctx context.Context, t *domain.Template) error
	// GetTemplate returns domain.ErrTemplateNotFound if the id is unknown.
	GetTemplate(ctx context.Context, id string) (*domain.Template, error)
	ListTemplates(ctx context.Context) ([]*domain.Template, error)
}
