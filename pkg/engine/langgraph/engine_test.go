package langgraph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(id string, v any) ports.StepFunc {
	return func(_ context.Context, s *domain.State) (*domain.State, error) {
		next := s.Apply(domain.OutputDelta(id, v))
		next.CurrentNode = id
		return next, nil
	}
}

func TestEngine_LinearAndBranch(t *testing.T) {
	b := New().NewBuilder()
	require.NoError(t, b.AddStep(ports.Step{Name: "start", NodeType: domain.NodeTypeTransform, Func: write("start", 1)}))
	require.NoError(t, b.AddStep(ports.Step{Name: "yes", NodeType: domain.NodeTypeMerge, Func: write("yes", true)}))
	require.NoError(t, b.AddStep(ports.Step{Name: "no", NodeType: domain.NodeTypeMerge, Func: write("no", false)}))
	require.NoError(t, b.SetEntry("start"))
	require.NoError(t, b.AddBranch("start", func(_ context.Context, s *domain.State) string {
		if s.Fields["go"] == true {
			return "yes"
		}
		return "no"
	}))
	require.NoError(t, b.AddEdge("yes", domain.Terminal))
	require.NoError(t, b.AddEdge("no", domain.Terminal))

	r, err := b.Build()
	require.NoError(t, err)

	s := domain.NewState("r1")
	s.Fields["go"] = true
	final, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "yes", final.CurrentNode)
	assert.Contains(t, final.Outputs, "start")
	assert.NotContains(t, final.Outputs, "no")
}

func TestEngine_BuilderRejectsBadWiring(t *testing.T) {
	b := New().NewBuilder()
	require.NoError(t, b.AddStep(ports.Step{Name: "a", Func: write("a", 1)}))

	assert.Error(t, b.AddStep(ports.Step{Name: "a", Func: write("a", 1)}), "duplicate step")
	assert.Error(t, b.SetEntry("ghost"))
	assert.Error(t, b.AddEdge("a", "ghost"))

	_, err := b.Build()
	assert.Error(t, err, "no entry")

	require.NoError(t, b.SetEntry("a"))
	_, err = b.Build()
	assert.ErrorContains(t, err, "no outgoing route")
}

func TestEngine_RetryAndHooks(t *testing.T) {
	var mu sync.Mutex
	var events []domain.NodeEvent
	record := func(_ context.Context, e *domain.NodeEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, *e)
	}

	calls := 0
	flaky := func(_ context.Context, s *domain.State) (*domain.State, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return s.Apply(domain.OutputDelta("flaky", "ok")), nil
	}

	b := New(WithLifecycleHooks(domain.LifecycleHooks{OnNodeEnter: record, OnNodeLeave: record})).NewBuilder()
	require.NoError(t, b.AddStep(ports.Step{
		Name:     "flaky",
		NodeType: domain.NodeTypeHTTPTool,
		Func:     flaky,
		Retry:    &domain.RetryPolicy{MaxAttempts: 3, Backoff: domain.BackoffNone},
	}))
	require.NoError(t, b.SetEntry("flaky"))
	require.NoError(t, b.AddEdge("flaky", domain.Terminal))
	r, err := b.Build()
	require.NoError(t, err)

	final, err := r.Run(context.Background(), domain.NewState("r2"))
	require.NoError(t, err)
	assert.Equal(t, "ok", final.Outputs["flaky"])
	assert.Equal(t, 3, calls)
	assert.Len(t, events, 6)
	assert.Equal(t, 3, events[5].Attempt)
}

func TestEngine_ErrorSurfaces(t *testing.T) {
	b := New().NewBuilder()
	require.NoError(t, b.AddStep(ports.Step{Name: "boom", Func: func(context.Context, *domain.State) (*domain.State, error) {
		return nil, errors.New("model unavailable")
	}}))
	require.NoError(t, b.SetEntry("boom"))
	require.NoError(t, b.AddEdge("boom", domain.Terminal))
	r, err := b.Build()
	require.NoError(t, err)

	_, err = r.Run(context.Background(), domain.NewState("r3"))
	assert.ErrorContains(t, err, "model unavailable")
}
