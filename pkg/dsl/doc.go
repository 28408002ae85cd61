/*
Package dsl builds Lattice manifests in Go instead of YAML or JSON.

It is handy for generated workflows and for tests, where a typo in a node id
should fail at build time rather than at compile time.

Example usage:

	m, err := dsl.New("triage", "Ticket triage").
		Field("priority", domain.FieldInt, 0).
		Add("check", domain.NodeTypeConditional).
		Config(domain.ConditionalConfig{Expression: "state.priority > 3"}).
		True("escalate").
		False("queue").
		Add("escalate", domain.NodeTypeTransform).
		Config(domain.TransformConfig{InputMapping: map[string]string{"p": "state.priority"}}).
		Add("queue", domain.NodeTypeMerge).
		Build()
	if err != nil {
		// the manifest is structurally invalid
	}
	svc.Compile(ctx, m)
*/
package dsl
