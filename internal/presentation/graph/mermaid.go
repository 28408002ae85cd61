package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

// Overlay marks run progress on the rendered graph.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid renders a manifest as a Mermaid flowchart.
//
// Shapes follow the node's role:
//   - entry: ((circle))
//   - model_call, classifier: (rounded)
//   - http_tool, database, retrieval, subgraph: [[subroutine]]
//   - conditional: {rhombus}
//   - approval, review: {{hexagon}}
//   - everything else: [rectangle]
//
// When routes are given, branch edges are labeled with the branch they
// take and edges the router does not follow are drawn dotted.
func GenerateMermaid(m *domain.Manifest, routes map[string]domain.Route, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	entry, _ := m.ResolveEntry()
	for _, n := range m.Nodes {
		opener, closer := shape(n.Type)
		if n.ID == entry {
			opener, closer = "((", "))"
		}
		text := n.ID
		if n.Label != "" && n.Label != n.ID {
			text = n.ID + " <br/> " + n.Label
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(n.ID), opener, escape(text), closer)
	}

	for _, e := range m.Edges {
		label := edgeLabel(e, routes)
		arrow := "-->"
		if !followed(e, routes) {
			arrow = "-.->"
		}
		if label != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", escape(label))
			if !followed(e, routes) {
				arrow = fmt.Sprintf("-. \"%s\" .->", escape(label))
			}
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !seen[safeID] {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func shape(t domain.NodeType) (string, string) {
	switch t {
	case domain.NodeTypeModelCall, domain.NodeTypeClassifier:
		return "(", ")"
	case domain.NodeTypeHTTPTool, domain.NodeTypeDatabase, domain.NodeTypeRetrieval, domain.NodeTypeSubgraph:
		return "[[", "]]"
	case domain.NodeTypeConditional:
		return "{", "}"
	case domain.NodeTypeApproval, domain.NodeTypeReview:
		return "{{", "}}"
	}
	return "[", "]"
}

func edgeLabel(e domain.Edge, routes map[string]domain.Route) string {
	if e.Label != "" {
		return e.Label
	}
	if r, ok := routes[e.Source]; ok {
		switch r.Kind {
		case domain.RouteConditional:
			switch e.Target {
			case r.TrueTarget:
				return "true"
			case r.FalseTarget:
				return "false"
			}
		case domain.RouteApproval:
			switch e.Target {
			case r.ApprovedTarget:
				return "approved"
			case r.RejectedTarget:
				return "rejected"
			}
		}
	}
	switch e.Kind() {
	case domain.EdgeConditionalTrue:
		return "true"
	case domain.EdgeConditionalFalse:
		return "false"
	case domain.EdgeApprovalApproved:
		return "approved"
	case domain.EdgeApprovalRejected:
		return "rejected"
	case domain.EdgeLoopBody:
		return "each"
	case domain.EdgeLoopExit:
		return "done"
	}
	return e.Condition
}

func followed(e domain.Edge, routes map[string]domain.Route) bool {
	r, ok := routes[e.Source]
	if !ok {
		return true
	}
	switch r.Kind {
	case domain.RouteConditional:
		return e.Target == r.TrueTarget || e.Target == r.FalseTarget
	case domain.RouteApproval:
		return e.Target == r.ApprovedTarget || e.Target == r.RejectedTarget
	}
	return e.Target == r.Next()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
