// Package validator checks the structure of a manifest before compilation.
package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/lattice/internal/expr"
	"github.com/aretw0/lattice/internal/topo"
	"github.com/aretw0/lattice/pkg/domain"
)

// Report is the outcome of a validation pass.
// Errors are fatal to compilation; Warnings are informational.
type Report struct {
	Errors   []error
	Warnings []string
}

// Valid reports whether no errors were found.
func (r Report) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Report) fail(format string, args ...any) {
	r.Errors = append(r.Errors, &domain.StructuralError{Msg: fmt.Sprintf(format, args...)})
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate runs every structural check and reports all problems at once.
func Validate(m *domain.Manifest) Report {
	var r Report

	// 1. Non-empty, named.
	if len(m.Nodes) == 0 {
		r.fail("manifest has no nodes")
	}
	if strings.TrimSpace(m.Name) == "" {
		r.fail("manifest name is required")
	}

	checkNodes(m, &r)
	checkStateSchema(m, &r)
	checkPlaceholders(m, &r)

	// 2. Edge endpoints.
	ids := make(map[string]bool, len(m.Nodes))
	for _, n := range m.Nodes {
		ids[n.ID] = true
	}
	for _, e := range m.Edges {
		label := edgeLabel(e)
		if !ids[e.Source] {
			r.fail("edge %s: source node %q does not exist", label, e.Source)
		}
		if !ids[e.Target] {
			r.fail("edge %s: target node %q does not exist", label, e.Target)
		}
	}

	// 3. Entry node.
	if len(m.Nodes) > 0 {
		if _, ok := m.ResolveEntry(); !ok {
			if m.EntryNodeID != "" {
				r.fail("entry node %q does not exist", m.EntryNodeID)
			} else {
				r.fail("no entry node: every node has an incoming edge")
			}
		}
	}

	// 4. Conditional branches.
	for _, n := range m.Nodes {
		if n.Type != domain.NodeTypeConditional {
			continue
		}
		out := m.Outgoing(n.ID)
		var hasTrue, hasFalse bool
		for _, e := range out {
			switch e.Kind() {
			case domain.EdgeConditionalTrue:
				hasTrue = true
			case domain.EdgeConditionalFalse:
				hasFalse = true
			}
		}
		if hasTrue && hasFalse {
			continue
		}
		if len(out) < 2 {
			r.fail("conditional node %q needs both a true and a false branch (found %d outgoing edge(s))", n.ID, len(out))
		}
	}

	// 5. Cycles. Loop re-entry is not exempt.
	if len(m.Nodes) > 0 {
		if _, err := topo.Sort(m); err != nil {
			r.Errors = append(r.Errors, err)
		}
	}

	return r
}

func checkNodes(m *domain.Manifest, r *Report) {
	seen := make(map[string]bool, len(m.Nodes))
	for i, n := range m.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			r.fail("node at index %d has no id", i)
			continue
		}
		if seen[n.ID] {
			r.fail("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true

		if !n.Type.Known() {
			r.fail("node %q has unknown type %q", n.ID, n.Type)
		}
		if n.RetryPolicy != nil && n.RetryPolicy.MaxAttempts < 0 {
			r.fail("node %q: retry max_attempts must not be negative", n.ID)
		}
	}
}

func checkStateSchema(m *domain.Manifest, r *Report) {
	seen := make(map[string]bool, len(m.StateSchema))
	for _, f := range m.StateSchema {
		if strings.TrimSpace(f.Name) == "" {
			r.fail("state field with empty name")
			continue
		}
		if seen[f.Name] {
			r.fail("duplicate state field %q", f.Name)
		}
		seen[f.Name] = true

		if !f.Type.Valid() {
			r.fail("state field %q has unknown type %q", f.Name, f.Type)
		}
		switch {
		case strings.HasPrefix(f.Name, domain.OutputPrefix):
			r.warn("state field %q uses the reserved %q prefix; node outputs are kept separately", f.Name, domain.OutputPrefix)
		case f.Name == domain.FieldMessages || f.Name == domain.FieldCurrentNode || f.Name == domain.FieldRunID:
			r.warn("state field %q shadows an implicit field in expressions and placeholders", f.Name)
		}
	}
}

// checkPlaceholders warns about {{state.x}} references in node configs whose
// root key is neither declared, implicit, nor the output of a node.
func checkPlaceholders(m *domain.Manifest, r *Report) {
	known := map[string]bool{
		domain.FieldMessages:    true,
		domain.FieldCurrentNode: true,
		domain.FieldRunID:       true,
	}
	for _, f := range m.StateSchema {
		known[f.Name] = true
	}
	for _, n := range m.Nodes {
		known[domain.OutputKey(n.ID)] = true
	}

	for _, n := range m.Nodes {
		if len(n.Config) == 0 {
			continue
		}
		var cfg any
		if err := json.Unmarshal(n.Config, &cfg); err != nil {
			continue
		}
		reported := make(map[string]bool)
		eachString(cfg, func(s string) {
			for _, path := range expr.Placeholders(s) {
				root := strings.SplitN(strings.TrimPrefix(path, "state."), ".", 2)[0]
				if path == "state" || known[root] || reported[root] {
					continue
				}
				reported[root] = true
				r.warn("node %q references undeclared state key %q", n.ID, root)
			}
		})
	}
}

// eachString calls fn for every string inside a decoded JSON value.
func eachString(v any, fn func(string)) {
	switch val := v.(type) {
	case string:
		fn(val)
	case []any:
		for _, item := range val {
			eachString(item, fn)
		}
	case map[string]any:
		for _, item := range val {
			eachString(item, fn)
		}
	}
}

func edgeLabel(e domain.Edge) string {
	if e.ID == "" {
		return fmt.Sprintf("%s→%s", e.Source, e.Target)
	}
	return fmt.Sprintf("%q (%s→%s)", e.ID, e.Source, e.Target)
}
