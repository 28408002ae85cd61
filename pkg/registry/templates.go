package registry

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/google/uuid"
)

// SaveAsTemplate captures the live content of id as a reusable template.
// An empty name falls back to the manifest name.
func (r *Registry) SaveAsTemplate(ctx context.Context, id, name, description string) (*domain.Template, error) {
	m, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, declined("save_as_template", id, err)
	}
	if name == "" {
		name = m.Name
	}

	blueprint := *m
	blueprint.ID = ""
	blueprint.VersionInfo = domain.VersionInfo{}

	t := &domain.Template{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		SourceID:    id,
		Manifest:    blueprint,
		CreatedAt:   r.now(),
	}
	if err := r.store.PutTemplate(ctx, t); err != nil {
		return nil, declined("save_as_template", id, err)
	}

	r.logger.InfoContext(ctx, "template saved", "template_id", t.ID, "source_id", id)
	return t, nil
}

// CreateFromTemplate instantiates a template as a new manifest at version 1.
// A non-empty name overrides the template's manifest name.
func (r *Registry) CreateFromTemplate(ctx context.Context, templateID, name, author string) (*domain.Manifest, error) {
	t, err := r.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, declined("create_from_template", templateID, err)
	}

	m := t.Manifest
	m.ID = ""
	if name != "" {
		m.Name = name
	}
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[domain.KeyTemplateID] = t.ID
	return r.Create(ctx, &m, author)
}

// ListTemplates returns every stored template.
func (r *Registry) ListTemplates(ctx context.Context) ([]*domain.Template, error) {
	templates, err := r.store.ListTemplates(ctx)
	if err != nil {
		return nil, declined("list_templates", "", err)
	}
	return templates, nil
}
