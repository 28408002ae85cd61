package nodes

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/lattice/internal/expr"
	"github.com/aretw0/lattice/pkg/domain"
)

// DefaultMaxIterations caps loop nodes that do not declare a limit.
const DefaultMaxIterations = 100

func (b *Builder) conditional(n domain.Node, cfg domain.ConditionalConfig) (Func, error) {
	cond, err := expr.ParseCondition(cfg.Expression)
	if err != nil {
		return nil, err
	}

	nodeID := n.ID
	return func(_ context.Context, s *domain.State) (domain.StateDelta, error) {
		result, err := cond.Eval(s.Flatten())
		if err != nil {
			// An expression that cannot be evaluated takes the false branch.
			b.logger.Warn("condition evaluation failed", "node_id", nodeID, "expression", cond.String(), "error", err)
			return domain.OutputDelta(nodeID, map[string]any{
				KeyConditionResult: false,
				KeyError:           err.Error(),
			}), nil
		}
		return domain.OutputDelta(nodeID, map[string]any{KeyConditionResult: result}), nil
	}, nil
}

func (b *Builder) loop(n domain.Node, cfg domain.LoopConfig) (Func, error) {
	if cfg.IterableKey == "" {
		return nil, errors.New("iterable_key is required")
	}
	if cfg.MaxIterations < 0 {
		return nil, errors.New("max_iterations must not be negative")
	}
	limit := cfg.MaxIterations
	if limit == 0 {
		limit = DefaultMaxIterations
	}

	nodeID := n.ID
	return func(_ context.Context, s *domain.State) (domain.StateDelta, error) {
		raw, ok := s.Lookup(cfg.IterableKey)
		var items []any
		if ok && raw != nil {
			list, isList := toList(raw)
			if !isList {
				return domain.StateDelta{}, fmt.Errorf("iterable_key %q holds %T, not a list", cfg.IterableKey, raw)
			}
			items = list
		}
		if len(items) > limit {
			items = items[:limit]
		}
		if items == nil {
			items = []any{}
		}
		return domain.OutputDelta(nodeID, map[string]any{
			"items": items,
			"count": len(items),
		}), nil
	}, nil
}

func (b *Builder) merge(n domain.Node) (Func, error) {
	nodeID := n.ID
	return func(_ context.Context, s *domain.State) (domain.StateDelta, error) {
		ids := make([]string, 0, len(s.Outputs))
		for id := range s.Outputs {
			if id != nodeID {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)

		merged := make(map[string]any, len(ids))
		for _, id := range ids {
			if v := s.Outputs[id]; v != nil {
				merged[domain.OutputKey(id)] = v
			}
		}
		return domain.OutputDelta(nodeID, merged), nil
	}, nil
}

func (b *Builder) approval(n domain.Node, cfg domain.ApprovalConfig) (Func, error) {
	if cfg.SLAHours < 0 {
		return nil, errors.New("sla_hours must not be negative")
	}
	roles := cfg.ApproverRoles
	if roles == nil {
		roles = []string{}
	}

	nodeID := n.ID
	return func(_ context.Context, s *domain.State) (domain.StateDelta, error) {
		out := map[string]any{
			KeyStatus:        StatusAwaitingApproval,
			"approver_roles": roles,
			"sla_hours":      cfg.SLAHours,
		}
		if cfg.Instructions != "" {
			out["instructions"] = cfg.Instructions
		}

		switch decision := s.Decisions[nodeID]; decision {
		case "":
		case domain.DecisionApproved, domain.DecisionRejected:
			out[KeyStatus] = decision
		default:
			return domain.StateDelta{}, fmt.Errorf("unknown decision %q for %s node %q", decision, cfg.NodeType(), nodeID)
		}
		return domain.OutputDelta(nodeID, out), nil
	}, nil
}

func (b *Builder) transform(n domain.Node, cfg domain.TransformConfig) (Func, error) {
	if len(cfg.InputMapping) == 0 {
		return nil, errors.New("input_mapping is required")
	}

	nodeID := n.ID
	return func(_ context.Context, s *domain.State) (domain.StateDelta, error) {
		view := s.Flatten()
		result := make(map[string]any, len(cfg.InputMapping))
		for key, path := range cfg.InputMapping {
			v, _ := domain.LookupPath(view, path)
			result[key] = v
		}

		delta := domain.OutputDelta(nodeID, result)
		if cfg.OutputKey != "" {
			delta.Fields = map[string]any{cfg.OutputKey: result}
		}
		return delta, nil
	}, nil
}

func toList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, 0, len(list))
		for _, s := range list {
			out = append(out, s)
		}
		return out, true
	case []map[string]any:
		out := make([]any, 0, len(list))
		for _, m := range list {
			out = append(out, m)
		}
		return out, true
	}
	return nil, false
}
