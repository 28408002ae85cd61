// Package langgraph adapts github.com/smallnest/langgraphgo to the
// ports.Engine capability used by the compiler.
package langgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/retry"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/smallnest/langgraphgo/graph"
)

// Engine builds langgraphgo state graphs over *domain.State.
type Engine struct {
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithLifecycleHooks sets callbacks invoked around every step attempt.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates the engine adapter.
func New(opts ...Option) *Engine {
	e := &Engine{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewBuilder implements ports.Engine.
func (e *Engine) NewBuilder() ports.GraphBuilder {
	return &builder{
		engine: e,
		g:      graph.NewStateGraph[*domain.State](),
		steps:  make(map[string]bool),
		routed: make(map[string]bool),
	}
}

type builder struct {
	engine *Engine
	g      *graph.StateGraph[*domain.State]
	steps  map[string]bool
	routed map[string]bool
	entry  string
}

func (b *builder) AddStep(step ports.Step) error {
	if step.Name == "" || step.Name == domain.Terminal {
		return fmt.Errorf("invalid step name %q", step.Name)
	}
	if step.Func == nil {
		return fmt.Errorf("step %q has no function", step.Name)
	}
	if b.steps[step.Name] {
		return fmt.Errorf("step %q registered twice", step.Name)
	}
	b.steps[step.Name] = true
	b.g.AddNode(step.Name, string(step.NodeType), b.engine.wrap(step))
	return nil
}

func (b *builder) AddEdge(from, to string) error {
	if to != domain.Terminal && !b.steps[to] {
		return fmt.Errorf("edge %s -> %s: unknown target step", from, to)
	}
	if err := b.checkRoute(from); err != nil {
		return err
	}
	b.g.AddEdge(from, endName(to))
	return nil
}

func (b *builder) AddBranch(from string, branch ports.BranchFunc) error {
	if branch == nil {
		return fmt.Errorf("branch from %s has no function", from)
	}
	if err := b.checkRoute(from); err != nil {
		return err
	}
	b.g.AddConditionalEdge(from, func(ctx context.Context, s *domain.State) string {
		return endName(branch(ctx, s))
	})
	return nil
}

func (b *builder) SetEntry(name string) error {
	if !b.steps[name] {
		return fmt.Errorf("entry step %q is not registered", name)
	}
	b.entry = name
	b.g.SetEntryPoint(name)
	return nil
}

func (b *builder) Build() (ports.Runnable, error) {
	if b.entry == "" {
		return nil, errors.New("no entry step set")
	}
	for name := range b.steps {
		if !b.routed[name] {
			return nil, fmt.Errorf("step %q has no outgoing route", name)
		}
	}
	r, err := b.g.Compile()
	if err != nil {
		return nil, err
	}
	return &runnable{r: r}, nil
}

// checkRoute enforces one edge or branch per step.
func (b *builder) checkRoute(from string) error {
	if !b.steps[from] {
		return fmt.Errorf("route from unknown step %q", from)
	}
	if b.routed[from] {
		return fmt.Errorf("step %q already has a route", from)
	}
	b.routed[from] = true
	return nil
}

func endName(target string) string {
	if target == domain.Terminal || target == "" {
		return graph.END
	}
	return target
}

type runnable struct {
	r *graph.StateRunnable[*domain.State]
}

func (r *runnable) Run(ctx context.Context, s *domain.State) (*domain.State, error) {
	return r.r.Invoke(ctx, s)
}

// wrap applies the retry policy and lifecycle hooks around a step.
func (e *Engine) wrap(step ports.Step) func(context.Context, *domain.State) (*domain.State, error) {
	cfg := retry.FromPolicy(step.Retry)
	return func(ctx context.Context, s *domain.State) (*domain.State, error) {
		var out *domain.State
		err := retry.Do(ctx, cfg, func(attempt int) error {
			start := time.Now()
			if e.hooks.OnNodeEnter != nil {
				e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
					Timestamp: start,
					Type:      domain.EventNodeEnter,
					RunID:     s.RunID,
					NodeID:    step.Name,
					NodeType:  step.NodeType,
					Attempt:   attempt,
				})
			}

			next, err := step.Func(ctx, s)

			if e.hooks.OnNodeLeave != nil {
				e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
					Timestamp: time.Now(),
					Type:      domain.EventNodeLeave,
					RunID:     s.RunID,
					NodeID:    step.Name,
					NodeType:  step.NodeType,
					Attempt:   attempt,
					Duration:  time.Since(start),
					Err:       err,
				})
			}
			if err != nil {
				if attempt < cfg.MaxAttempts && !retry.IsNonRetryable(err) {
					e.logger.Debug("retrying step", "node_id", step.Name, "attempt", attempt, "error", err)
				}
				return err
			}
			out = next
			return nil
		})
		if err != nil {
			var nre *retry.NonRetryableError
			if errors.As(err, &nre) {
				err = nre.Err
			}
			return nil, fmt.Errorf("node %q: %w", step.Name, err)
		}
		return out, nil
	}
}
