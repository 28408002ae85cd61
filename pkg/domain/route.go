package domain

// RouteKind selects how control leaves a node.
type RouteKind string

const (
	RouteDefault     RouteKind = "default"
	RouteConditional RouteKind = "conditional"
	RouteApproval    RouteKind = "approval"
)

// Route is the routing descriptor of a single node.
// Empty targets mean Terminal.
type Route struct {
	NodeID string    `json:"node_id"`
	Kind   RouteKind `json:"kind"`

	// Targets is the ordered successor list of a default route; only the
	// first entry is followed at run time.
	Targets []string `json:"targets,omitempty"`

	TrueTarget  string `json:"true_target,omitempty"`
	FalseTarget string `json:"false_target,omitempty"`

	ApprovedTarget string `json:"approved_target,omitempty"`
	RejectedTarget string `json:"rejected_target,omitempty"`
}

// Next returns the primary successor of a default route, or Terminal.
func (r Route) Next() string {
	if len(r.Targets) == 0 {
		return Terminal
	}
	return r.Targets[0]
}

// OrTerminal maps an empty target to Terminal.
func OrTerminal(target string) string {
	if target == "" {
		return Terminal
	}
	return target
}
