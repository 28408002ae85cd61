package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// Store implements ports.ManifestStore in memory.
// Safe for concurrent use. Values are copied on the way in and out.
type Store struct {
	mu        sync.RWMutex
	live      map[string]*domain.Manifest
	history   map[string][]*domain.Manifest
	templates map[string]*domain.Template
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		live:      make(map[string]*domain.Manifest),
		history:   make(map[string][]*domain.Manifest),
		templates: make(map[string]*domain.Template),
	}
}

// Get returns a copy of the live manifest.
func (s *Store) Get(_ context.Context, id string) (*domain.Manifest, error) {
	s.mu.RLock()
	m, ok := s.live[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrManifestNotFound
	}
	return m.Clone()
}

// SaveVersion replaces the live manifest and appends it to the history.
func (s *Store) SaveVersion(_ context.Context, m *domain.Manifest) error {
	live, err := m.Clone()
	if err != nil {
		return err
	}
	snapshot, err := m.Clone()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[m.ID] = live
	s.history[m.ID] = append(s.history[m.ID], snapshot)
	return nil
}

// Put replaces the live manifest only.
func (s *Store) Put(_ context.Context, m *domain.Manifest) error {
	live, err := m.Clone()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[m.ID] = live
	return nil
}

// Delete removes the live manifest and its history.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[id]; !ok {
		return domain.ErrManifestNotFound
	}
	delete(s.live, id)
	delete(s.history, id)
	return nil
}

// List returns copies of all live manifests ordered by id.
func (s *Store) List(_ context.Context) ([]*domain.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*domain.Manifest, 0, len(ids))
	for _, id := range ids {
		m, err := s.live[id].Clone()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// GetVersion returns a copy of a historical version.
func (s *Store) GetVersion(_ context.Context, id string, version int) (*domain.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.history[id] {
		if m.VersionInfo.Version == version {
			return m.Clone()
		}
	}
	return nil, fmt.Errorf("%w: %s v%d", domain.ErrVersionNotFound, id, version)
}

// ListVersions returns the version records in ascending order.
func (s *Store) ListVersions(_ context.Context, id string) ([]domain.VersionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.live[id]; !ok {
		return nil, domain.ErrManifestNotFound
	}

	out := make([]domain.VersionInfo, 0, len(s.history[id]))
	for _, m := range s.history[id] {
		out = append(out, m.VersionInfo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// PutTemplate stores a copy of the template.
func (s *Store) PutTemplate(_ context.Context, t *domain.Template) error {
	c, err := cloneTemplate(t)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = c
	return nil
}

// GetTemplate returns a copy of the template.
func (s *Store) GetTemplate(_ context.Context, id string) (*domain.Template, error) {
	s.mu.RLock()
	t, ok := s.templates[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	return cloneTemplate(t)
}

// ListTemplates returns copies of all templates ordered by id.
func (s *Store) ListTemplates(_ context.Context) ([]*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Template, 0, len(s.templates))
	for _, t := range s.templates {
		c, err := cloneTemplate(t)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneTemplate(t *domain.Template) (*domain.Template, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to copy template %s: %w", t.ID, err)
	}
	var out domain.Template
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to copy template %s: %w", t.ID, err)
	}
	return &out, nil
}
