package lattice_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/domain"
)

// ExampleService demonstrates registering, compiling and running a manifest
// that needs no external collaborators.
func ExampleService() {
	m := &domain.Manifest{
		Name: "triage",
		StateSchema: []domain.StateField{
			{Name: "priority", Type: domain.FieldInt},
		},
		Nodes: []domain.Node{
			{ID: "check", Type: domain.NodeTypeConditional, Config: domain.MustConfig(map[string]any{
				"expression": "state.priority > 3",
			})},
			{ID: "urgent", Type: domain.NodeTypeTransform, Config: domain.MustConfig(map[string]any{
				"input_mapping": map[string]string{"level": "state.priority"},
			})},
			{ID: "later", Type: domain.NodeTypeTransform, Config: domain.MustConfig(map[string]any{
				"input_mapping": map[string]string{"level": "state.priority"},
			})},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "check", Target: "urgent", Type: domain.EdgeConditionalTrue},
			{ID: "e2", Source: "check", Target: "later", Type: domain.EdgeConditionalFalse},
		},
	}

	ctx := context.Background()
	svc := lattice.New()

	created, err := svc.Create(ctx, m, "docs")
	if err != nil {
		log.Fatal(err)
	}

	res, err := svc.CompileByID(ctx, created.ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("compiled:", res.Success, "entry:", res.EntryNode)

	out := svc.Run(ctx, created.ID, map[string]any{"priority": 5})
	if !out.Success {
		log.Fatal(out.Error)
	}
	_, urgent := out.State.Outputs["urgent"]
	_, later := out.State.Outputs["later"]
	fmt.Println("urgent:", urgent, "later:", later)

	// Output:
	// compiled: true entry: check
	// urgent: true later: false
}
