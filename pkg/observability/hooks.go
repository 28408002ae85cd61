package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/lattice/pkg/domain"
)

// Hooks returns lifecycle hooks that log node events and record node metrics.
// Either argument may be nil.
func Hooks(logger *slog.Logger, metrics *Metrics) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			if logger != nil {
				logger.DebugContext(ctx, "node_enter",
					"run_id", e.RunID,
					"node_id", e.NodeID,
					"type", e.NodeType,
					"attempt", e.Attempt,
				)
			}
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			if logger != nil {
				if e.Err != nil {
					logger.WarnContext(ctx, "node_leave",
						"run_id", e.RunID,
						"node_id", e.NodeID,
						"duration", e.Duration,
						"error", e.Err,
					)
				} else {
					logger.DebugContext(ctx, "node_leave",
						"run_id", e.RunID,
						"node_id", e.NodeID,
						"duration", e.Duration,
					)
				}
			}
			metrics.ObserveNode(string(e.NodeType), e.Duration)
		},
	}
}
