/*
Package lattice compiles declarative graph manifests into runnable workflows.

A manifest describes a workflow as data: typed nodes (model calls,
classifiers, HTTP tools, database queries, retrieval, conditionals, loops,
merges, approval gates, transforms and subgraphs), the edges between them and
a declared state schema. Lattice validates the manifest, orders it, builds
one executable step per node, wires the routing table into an execution
engine and caches the result. A registry keeps every manifest versioned with
a lifecycle status, rollback, diffs, templates and import/export.

# Usage

	svc := lattice.New(
		lattice.WithModelInvoker(invoker),
		lattice.WithLogger(logger),
	)

	m, err := svc.Create(ctx, manifest, "alice")
	if err != nil {
		log.Fatal(err)
	}

	res, _ := svc.CompileByID(ctx, m.ID)
	if !res.Success {
		log.Fatal(res.Errors)
	}

	out := svc.Run(ctx, m.ID, map[string]any{"topic": "graphs"})
	fmt.Println(out.State.Outputs)

Collaborators (model invoker, HTTP client, retriever, prompt store, data
accessor) are optional. A node whose collaborator is missing fails when it
runs, not when it compiles.
*/
package lattice
