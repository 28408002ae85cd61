// Package topo orders manifest nodes with Kahn's algorithm.
package topo

import "github.com/aretw0/lattice/pkg/domain"

// Sort returns the node ids of m in topological order. Nodes with equal
// standing keep their declaration order. Edges naming unknown nodes are
// ignored here; the validator reports them.
//
// When the edges contain a cycle the partial order is returned together with
// a *domain.CycleError listing the nodes that could not be ordered.
func Sort(m *domain.Manifest) ([]string, error) {
	inDegree := make(map[string]int, len(m.Nodes))
	for _, n := range m.Nodes {
		inDegree[n.ID] = 0
	}

	successors := make(map[string][]string, len(m.Nodes))
	for _, e := range m.Edges {
		if _, ok := inDegree[e.Source]; !ok {
			continue
		}
		if _, ok := inDegree[e.Target]; !ok {
			continue
		}
		successors[e.Source] = append(successors[e.Source], e.Target)
		inDegree[e.Target]++
	}

	queue := make([]string, 0, len(m.Nodes))
	seen := make(map[string]bool, len(m.Nodes))
	for _, n := range m.Nodes {
		if inDegree[n.ID] == 0 && !seen[n.ID] {
			queue = append(queue, n.ID)
			seen[n.ID] = true
		}
	}

	order := make([]string, 0, len(m.Nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, next := range successors[current] {
			inDegree[next]--
			if inDegree[next] == 0 && !seen[next] {
				queue = append(queue, next)
				seen[next] = true
			}
		}
	}

	if len(order) < len(inDegree) {
		remaining := make([]string, 0, len(inDegree)-len(order))
		for _, n := range m.Nodes {
			if !seen[n.ID] {
				remaining = append(remaining, n.ID)
				seen[n.ID] = true
			}
		}
		return order, &domain.CycleError{Remaining: remaining}
	}
	return order, nil
}
