package domain

// EdgeType tags how an edge participates in routing.
type EdgeType string

const (
	EdgeDefault          EdgeType = "default"
	EdgeConditionalTrue  EdgeType = "conditional_true"
	EdgeConditionalFalse EdgeType = "conditional_false"
	EdgeLoopBody         EdgeType = "loop_body"
	EdgeLoopExit         EdgeType = "loop_exit"
	EdgeApprovalApproved EdgeType = "approval_approved"
	EdgeApprovalRejected EdgeType = "approval_rejected"
)

// Edge is a directed connection between two nodes of the same manifest.
type Edge struct {
	ID     string   `json:"id" yaml:"id"`
	Source string   `json:"source" yaml:"source"`
	Target string   `json:"target" yaml:"target"`
	Type   EdgeType `json:"type,omitempty" yaml:"type,omitempty"`

	Label     string `json:"label,omitempty" yaml:"label,omitempty"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Kind returns the edge type, treating an empty tag as default.
func (e Edge) Kind() EdgeType {
	if e.Type == "" {
		return EdgeDefault
	}
	return e.Type
}
