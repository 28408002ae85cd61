package ports

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// StepFunc is an executable node. It must not mutate its input state.
type StepFunc func(ctx context.Context, state *domain.State) (*domain.State, error)

// BranchFunc selects the successor of a step. It returns a node id or domain.Terminal.
type BranchFunc func(ctx context.Context, state *domain.State) string

// Step is a named unit registered with the execution engine.
// Retry, when set, is applied by the engine around Func.
type Step struct {
	Name     string
	NodeType domain.NodeType
	Func     StepFunc
	Retry    *domain.RetryPolicy
}

// GraphBuilder registers steps, an entry point and routing with an execution engine.
// Edge and branch targets may be domain.Terminal.
type GraphBuilder interface {
	AddStep(step Step) error
	AddEdge(from, to string) error
	AddBranch(from string, branch BranchFunc) error
	SetEntry(name string) error
	Build() (Runnable, error)
}

// Runnable is an assembled graph that runs to completion.
type Runnable interface {
	Run(ctx context.Context, state *domain.State) (*domain.State, error)
}

// Engine is the execution engine capability. Each compile uses a fresh builder.
type Engine interface {
	NewBuilder() GraphBuilder
}
