package lattice

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// Registry operations. Each mutation invalidates the compiled graph of the
// manifest it touched; the next Run recompiles the live version.

// Create stores a new manifest as version 1.
func (s *Service) Create(ctx context.Context, m *domain.Manifest, author string) (*domain.Manifest, error) {
	return s.registry.Create(ctx, m, author)
}

// Get returns the live version of a manifest.
func (s *Service) Get(ctx context.Context, id string) (*domain.Manifest, error) {
	return s.registry.Get(ctx, id)
}

// List returns manifests, filtered by status when status is non-empty.
func (s *Service) List(ctx context.Context, status domain.Status) ([]*domain.Manifest, error) {
	return s.registry.List(ctx, status)
}

// Search matches query against manifest names, descriptions and tags.
func (s *Service) Search(ctx context.Context, query string) ([]*domain.Manifest, error) {
	return s.registry.Search(ctx, query)
}

// Update records a new version and invalidates the cached graph.
func (s *Service) Update(ctx context.Context, id string, m *domain.Manifest, changeNote, author string) (*domain.Manifest, error) {
	return s.invalidating(id)(s.registry.Update(ctx, id, m, changeNote, author))
}

// Delete removes a manifest with its history.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.registry.Delete(ctx, id)
	if err == nil {
		s.compiler.Invalidate(id)
	}
	return err
}

// GetVersion returns one historical version.
func (s *Service) GetVersion(ctx context.Context, id string, version int) (*domain.Manifest, error) {
	return s.registry.GetVersion(ctx, id, version)
}

// ListVersions returns the version history, oldest first.
func (s *Service) ListVersions(ctx context.Context, id string) ([]domain.VersionInfo, error) {
	return s.registry.ListVersions(ctx, id)
}

// Rollback copies an old version forward as a new draft version.
func (s *Service) Rollback(ctx context.Context, id string, version int, author string) (*domain.Manifest, error) {
	return s.invalidating(id)(s.registry.Rollback(ctx, id, version, author))
}

// SetStatus moves a manifest through its lifecycle statuses.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.Status) (*domain.Manifest, error) {
	return s.invalidating(id)(s.registry.SetStatus(ctx, id, status))
}

// Diff lists the changes between two versions of a manifest.
func (s *Service) Diff(ctx context.Context, id string, versionA, versionB int) ([]domain.Change, error) {
	return s.registry.Diff(ctx, id, versionA, versionB)
}

// SaveAsTemplate snapshots a manifest as a reusable template.
func (s *Service) SaveAsTemplate(ctx context.Context, id, name, description string) (*domain.Template, error) {
	return s.registry.SaveAsTemplate(ctx, id, name, description)
}

// CreateFromTemplate instantiates a template as a new manifest.
func (s *Service) CreateFromTemplate(ctx context.Context, templateID, name, author string) (*domain.Manifest, error) {
	return s.registry.CreateFromTemplate(ctx, templateID, name, author)
}

// ListTemplates returns every saved template.
func (s *Service) ListTemplates(ctx context.Context) ([]*domain.Template, error) {
	return s.registry.ListTemplates(ctx)
}

// Export serializes the live version as JSON.
func (s *Service) Export(ctx context.Context, id string) ([]byte, error) {
	return s.registry.Export(ctx, id)
}

// Import creates a manifest with a fresh id from exported JSON.
func (s *Service) Import(ctx context.Context, data []byte, author string) (*domain.Manifest, error) {
	return s.registry.Import(ctx, data, author)
}

// ImportYAML creates a manifest from a YAML document.
func (s *Service) ImportYAML(ctx context.Context, data []byte, author string) (*domain.Manifest, error) {
	return s.registry.ImportYAML(ctx, data, author)
}

func (s *Service) invalidating(id string) func(*domain.Manifest, error) (*domain.Manifest, error) {
	return func(m *domain.Manifest, err error) (*domain.Manifest, error) {
		if err == nil {
			s.compiler.Invalidate(id)
		}
		return m, err
	}
}
