/*
Package domain contains the core models of the Lattice manifest compiler.

It defines the declarative workflow description produced by visual editors
(the Manifest, its Nodes, Edges and StateFields), the run-time State threaded
through a compiled graph, and the results surfaced by compilation and runs.
This package is kept pure and free of I/O, following Hexagonal Architecture
principles: collaborators live behind the interfaces in package ports.

# Key Entities

  - Manifest: the versioned unit (nodes, edges, declared state, version record).
  - Node: one step in a workflow; its Config is a sum type keyed by NodeType.
  - Edge: a directed, optionally typed connection between two nodes.
  - State: the run-time snapshot. Declared fields and per-node outputs live in
    two distinct maps so they can never collide.
  - Route: how control leaves a node (plain chain, true/false, approved/rejected).
*/
package domain
