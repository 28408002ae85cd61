package compiler

import (
	"context"

	"github.com/aretw0/lattice/internal/nodes"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// assemble registers every step and its routing with a fresh engine builder.
func assemble(engine ports.Engine, m *domain.Manifest, entry string, order []string, funcs map[string]nodes.Func, routes map[string]domain.Route) (ports.Runnable, error) {
	b := engine.NewBuilder()

	for _, id := range order {
		n := m.Node(id)
		if err := b.AddStep(ports.Step{
			Name:     id,
			NodeType: n.Type,
			Func:     stepFunc(id, funcs[id]),
			Retry:    n.RetryPolicy,
		}); err != nil {
			return nil, err
		}
	}

	if err := b.SetEntry(entry); err != nil {
		return nil, err
	}

	for _, id := range order {
		route := routes[id]
		var err error
		switch route.Kind {
		case domain.RouteConditional:
			err = b.AddBranch(id, conditionalBranch(route))
		case domain.RouteApproval:
			err = b.AddBranch(id, approvalBranch(route))
		default:
			err = b.AddEdge(id, route.Next())
		}
		if err != nil {
			return nil, err
		}
	}

	return b.Build()
}

// stepFunc adapts a node Func to the engine contract: the delta is applied
// to a copy of the state and current_node is advanced.
func stepFunc(id string, fn nodes.Func) ports.StepFunc {
	return func(ctx context.Context, s *domain.State) (*domain.State, error) {
		delta, err := fn(ctx, s)
		if err != nil {
			return nil, err
		}
		next := s.Apply(delta)
		next.CurrentNode = id
		return next, nil
	}
}

// conditionalBranch follows output_<id>.condition_result.
func conditionalBranch(r domain.Route) ports.BranchFunc {
	return func(_ context.Context, s *domain.State) string {
		out, _ := s.Outputs[r.NodeID].(map[string]any)
		if result, _ := out[nodes.KeyConditionResult].(bool); result {
			return domain.OrTerminal(r.TrueTarget)
		}
		return domain.OrTerminal(r.FalseTarget)
	}
}

// approvalBranch follows output_<id>.status. A pending gate halts the run.
func approvalBranch(r domain.Route) ports.BranchFunc {
	return func(_ context.Context, s *domain.State) string {
		out, _ := s.Outputs[r.NodeID].(map[string]any)
		switch out[nodes.KeyStatus] {
		case nodes.StatusApproved:
			return domain.OrTerminal(r.ApprovedTarget)
		case nodes.StatusRejected:
			return domain.OrTerminal(r.RejectedTarget)
		}
		return domain.Terminal
	}
}
