package compiler

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
)

// Routes derives the routing descriptor of every node, plus warnings about
// routing the graph will not follow.
func Routes(m *domain.Manifest) (map[string]domain.Route, []string) {
	routes := make(map[string]domain.Route, len(m.Nodes))
	var warnings []string

	for _, n := range m.Nodes {
		out := m.Outgoing(n.ID)
		switch {
		case n.Type == domain.NodeTypeConditional:
			r, warn := conditionalRoute(n.ID, out)
			routes[n.ID] = r
			warnings = append(warnings, warn...)
		case n.Type.IsHumanGate():
			r, warn := approvalRoute(n.ID, out)
			routes[n.ID] = r
			warnings = append(warnings, warn...)
		default:
			targets := make([]string, 0, len(out))
			for _, e := range out {
				targets = append(targets, e.Target)
			}
			if len(targets) > 1 {
				warnings = append(warnings, fmt.Sprintf("node %q has %d outgoing edges; only the first (%q) is followed", n.ID, len(targets), targets[0]))
			}
			routes[n.ID] = domain.Route{NodeID: n.ID, Kind: domain.RouteDefault, Targets: targets}
		}
	}
	return routes, warnings
}

// conditionalRoute resolves typed edges first. Without any typed edge the
// first two outgoing edges are true and false. A missing typed side is
// filled from the first untyped edge, else it ends the run.
func conditionalRoute(id string, out []domain.Edge) (domain.Route, []string) {
	r := domain.Route{NodeID: id, Kind: domain.RouteConditional}
	var untyped []string
	for _, e := range out {
		switch e.Kind() {
		case domain.EdgeConditionalTrue:
			if r.TrueTarget == "" {
				r.TrueTarget = e.Target
			}
		case domain.EdgeConditionalFalse:
			if r.FalseTarget == "" {
				r.FalseTarget = e.Target
			}
		default:
			untyped = append(untyped, e.Target)
		}
	}

	if r.TrueTarget == "" && r.FalseTarget == "" {
		if len(untyped) > 0 {
			r.TrueTarget = untyped[0]
		}
		if len(untyped) > 1 {
			r.FalseTarget = untyped[1]
		}
	} else if len(untyped) > 0 {
		if r.TrueTarget == "" {
			r.TrueTarget = untyped[0]
		} else if r.FalseTarget == "" {
			r.FalseTarget = untyped[0]
		}
	}

	var warnings []string
	if r.TrueTarget == "" {
		warnings = append(warnings, fmt.Sprintf("conditional node %q has no true branch; it ends the run", id))
	}
	if r.FalseTarget == "" {
		warnings = append(warnings, fmt.Sprintf("conditional node %q has no false branch; it ends the run", id))
	}
	return r, warnings
}

// approvalRoute resolves typed edges; without them the first outgoing edge
// is the approved path and there is no rejected path.
func approvalRoute(id string, out []domain.Edge) (domain.Route, []string) {
	r := domain.Route{NodeID: id, Kind: domain.RouteApproval}
	typed := false
	for _, e := range out {
		switch e.Kind() {
		case domain.EdgeApprovalApproved:
			typed = true
			if r.ApprovedTarget == "" {
				r.ApprovedTarget = e.Target
			}
		case domain.EdgeApprovalRejected:
			typed = true
			if r.RejectedTarget == "" {
				r.RejectedTarget = e.Target
			}
		}
	}
	if !typed && len(out) > 0 {
		r.ApprovedTarget = out[0].Target
	}

	var warnings []string
	if r.RejectedTarget == "" && len(out) > 0 {
		warnings = append(warnings, fmt.Sprintf("node %q has no rejected path; a rejection ends the run", id))
	}
	return r, warnings
}
