package compiler

import "github.com/aretw0/lattice/pkg/domain"

// SchemaField describes one slot of the execution state.
// The schema is advisory: it is exposed to the engine and to tooling but is
// not enforced at run time.
type SchemaField struct {
	Name        string           `json:"name"`
	Type        domain.FieldType `json:"type,omitempty"`
	Default     any              `json:"default"`
	Description string           `json:"description,omitempty"`
	Implicit    bool             `json:"implicit,omitempty"`
	Optional    bool             `json:"optional,omitempty"`
}

// GenerateSchema derives the state shape: the implicit fields, then the
// declared fields, then one optional output slot per node.
func GenerateSchema(m *domain.Manifest) []SchemaField {
	fields := make([]SchemaField, 0, 3+len(m.StateSchema)+len(m.Nodes))
	fields = append(fields,
		SchemaField{Name: domain.FieldMessages, Type: domain.FieldList, Default: []any{}, Implicit: true},
		SchemaField{Name: domain.FieldCurrentNode, Type: domain.FieldString, Default: "", Implicit: true},
		SchemaField{Name: domain.FieldRunID, Type: domain.FieldString, Default: "", Implicit: true},
	)

	for _, f := range m.StateSchema {
		def := f.Default
		if def == nil {
			def = f.Type.Zero()
		}
		fields = append(fields, SchemaField{
			Name:        f.Name,
			Type:        f.Type,
			Default:     def,
			Description: f.Description,
		})
	}

	for _, n := range m.Nodes {
		fields = append(fields, SchemaField{
			Name:        domain.OutputKey(n.ID),
			Description: "output of " + string(n.Type) + " node " + n.ID,
			Implicit:    true,
			Optional:    true,
		})
	}
	return fields
}

// Defaults returns the initial value of every declared field.
func Defaults(m *domain.Manifest) map[string]any {
	out := make(map[string]any, len(m.StateSchema))
	for _, f := range m.StateSchema {
		if f.Default != nil {
			out[f.Name] = f.Default
		} else {
			out[f.Name] = f.Type.Zero()
		}
	}
	return out
}
