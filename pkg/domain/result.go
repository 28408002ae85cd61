package domain

// CompileResult is the structured outcome of a compile request.
type CompileResult struct {
	Success           bool     `json:"success"`
	ManifestID        string   `json:"manifest_id"`
	ManifestName      string   `json:"manifest_name"`
	NodeCount         int      `json:"node_count"`
	EdgeCount         int      `json:"edge_count"`
	EntryNode         string   `json:"entry_node"`
	CompilationTimeMs float64  `json:"compilation_time_ms"`
	Errors            []string `json:"errors"`
	Warnings          []string `json:"warnings"`
	CompiledNodeIDs   []string `json:"compiled_node_ids"`
}

// RunResult is the outcome of running a compiled graph.
// On failure State is nil and Error carries the engine's message verbatim.
type RunResult struct {
	Success bool   `json:"success"`
	State   *State `json:"state,omitempty"`
	Error   string `json:"error,omitempty"`
}
