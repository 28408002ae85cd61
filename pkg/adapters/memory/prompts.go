package memory

import (
	"context"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// Prompts implements ports.PromptStore over a map of prompt id to template text.
type Prompts struct {
	mu      sync.RWMutex
	prompts map[string]string
}

// NewPrompts creates a prompt store seeded with the given templates.
func NewPrompts(seed map[string]string) *Prompts {
	p := &Prompts{prompts: make(map[string]string, len(seed))}
	for id, text := range seed {
		p.prompts[id] = text
	}
	return p
}

// Set registers or replaces a prompt template.
func (p *Prompts) Set(id, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts[id] = text
}

// GetPrompt returns the template text for id.
func (p *Prompts) GetPrompt(_ context.Context, id string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	text, ok := p.prompts[id]
	if !ok {
		return "", domain.ErrPromptNotFound
	}
	return text, nil
}
