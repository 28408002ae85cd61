package domain

// Metadata keys written by the registry.
const (
	// KeyRollbackFrom records the version a rollback copied its content from.
	KeyRollbackFrom = "rollback_from"
	// KeyTemplateID records the template a manifest was instantiated from.
	KeyTemplateID = "template_id"
	// KeyImportedFrom records the original id of an imported manifest.
	KeyImportedFrom = "imported_from"
	// KeyPrompts is the manifest metadata key holding inline prompt templates by id.
	KeyPrompts = "prompts"
)

// Implicit state field names.
const (
	FieldMessages    = "messages"
	FieldCurrentNode = "current_node"
	FieldRunID       = "run_id"

	// OutputPrefix prefixes the implicit per-node output slot (output_<node_id>).
	OutputPrefix = "output_"
)

// Terminal is the routing marker for "no successor".
const Terminal = "__end__"

// OutputKey returns the implicit output slot name for a node.
func OutputKey(nodeID string) string {
	return OutputPrefix + nodeID
}
