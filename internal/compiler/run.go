package compiler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/google/uuid"
)

// MaxSubgraphDepth bounds nested subgraph invocations.
const MaxSubgraphDepth = 8

// Initial state keys with a dedicated slot; every other key is a field.
const (
	KeyDecisions = "decisions"
)

type depthKey struct{}

// Run executes the cached graph of a manifest and reports the outcome.
// Node failures are reported verbatim in the result, never as a panic.
func (c *Compiler) Run(ctx context.Context, manifestID string, initial map[string]any) domain.RunResult {
	final, err := c.Execute(ctx, manifestID, initial)
	c.metrics.ObserveRun(err == nil)
	if err != nil {
		c.logger.WarnContext(ctx, "run failed", "manifest_id", manifestID, "error", err)
		return domain.RunResult{Success: false, Error: err.Error()}
	}
	return domain.RunResult{Success: true, State: final}
}

// Execute runs the cached graph and returns its final state.
func (c *Compiler) Execute(ctx context.Context, manifestID string, initial map[string]any) (*domain.State, error) {
	g, err := c.graphFor(ctx, manifestID)
	if err != nil {
		return nil, err
	}

	state, err := NewRunState(g.Defaults, initial)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "run started", "manifest_id", manifestID, "run_id", state.RunID, "entry", g.Entry)
	final, err := g.runnable.Run(ctx, state)
	if err != nil {
		return nil, err
	}
	if final == nil {
		return nil, errors.New("execution engine returned no state")
	}
	return final, nil
}

// RunSubgraph implements ports.SubgraphRunner.
func (c *Compiler) RunSubgraph(ctx context.Context, manifestID string, initial map[string]any) (*domain.State, error) {
	depth, _ := ctx.Value(depthKey{}).(int)
	if depth >= MaxSubgraphDepth {
		return nil, fmt.Errorf("subgraph nesting exceeds %d levels at %q", MaxSubgraphDepth, manifestID)
	}
	return c.Execute(context.WithValue(ctx, depthKey{}, depth+1), manifestID, initial)
}

// NewRunState builds the initial state from caller input. The keys
// "messages", "run_id" and "decisions" fill the implicit slots; every other
// key becomes a field. Declared fields missing from the input take their
// defaults.
func NewRunState(defaults map[string]any, initial map[string]any) (*domain.State, error) {
	runID, _ := initial[domain.FieldRunID].(string)
	if runID == "" {
		runID = uuid.NewString()
	}
	s := domain.NewState(runID)

	for k, v := range defaults {
		s.Fields[k] = v
	}

	for k, v := range initial {
		switch k {
		case domain.FieldRunID, domain.FieldCurrentNode:
		case domain.FieldMessages:
			msgs, err := decodeMessages(v)
			if err != nil {
				return nil, err
			}
			s.Messages = msgs
		case KeyDecisions:
			decisions, err := decodeDecisions(v)
			if err != nil {
				return nil, err
			}
			s.Decisions = decisions
		default:
			s.Fields[k] = v
		}
	}
	return s, nil
}

func decodeMessages(v any) ([]domain.Message, error) {
	switch msgs := v.(type) {
	case nil:
		return []domain.Message{}, nil
	case []domain.Message:
		return append([]domain.Message(nil), msgs...), nil
	case string:
		return []domain.Message{{Role: "user", Content: msgs}}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("invalid messages: %w", err)
	}
	var out []domain.Message
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("invalid messages: %w", err)
	}
	return out, nil
}

func decodeDecisions(v any) (map[string]string, error) {
	out := make(map[string]string)
	switch d := v.(type) {
	case nil:
		return out, nil
	case map[string]string:
		for k, val := range d {
			out[k] = val
		}
	case map[string]any:
		for k, val := range d {
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("invalid decision for %q: %v", k, val)
			}
			out[k] = s
		}
	default:
		return nil, fmt.Errorf("invalid decisions: %T", v)
	}
	for k, val := range out {
		if val != domain.DecisionApproved && val != domain.DecisionRejected {
			return nil, fmt.Errorf("invalid decision for %q: %q", k, val)
		}
	}
	return out, nil
}
