/*
Package ports defines the driven ports (interfaces) of the Lattice compiler.

These interfaces decouple the compiler from the services its node steps call
and from the runtime that actually executes a compiled graph.

# Key Interfaces

  - ModelInvoker, HTTPClient, Retriever, PromptStore, DataAccessor: collaborators consumed by node steps.
  - SubgraphRunner: runs another compiled manifest on behalf of a subgraph node.
  - Engine / GraphBuilder / Runnable: the execution engine capability (named steps, entry point, branches, run to completion).
  - ManifestStore: persistence of live manifests, their version history and templates.
  - DistributedLocker: cross-replica exclusive sections for registry writes.
*/
package ports
