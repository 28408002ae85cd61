package loam

// PromptMetadata is the frontmatter of a prompt document.
//
//	---
//	id: triage
//	description: Classify an incoming ticket
//	variables: [ticket]
//	---
//	Classify this ticket: {{state.ticket}}
type PromptMetadata struct {
	ID          string   `json:"id" mapstructure:"id"`
	Description string   `json:"description,omitempty" mapstructure:"description"`
	Variables   []string `json:"variables,omitempty" mapstructure:"variables"`
	Tags        []string `json:"tags,omitempty" mapstructure:"tags"`
}

// PromptInfo describes a stored prompt without its text.
type PromptInfo struct {
	ID          string   `json:"id"`
	Path        string   `json:"path"`
	Description string   `json:"description,omitempty"`
	Variables   []string `json:"variables,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}
