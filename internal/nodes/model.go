package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/lattice/internal/expr"
	"github.com/aretw0/lattice/internal/retry"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// Message roles sent to the model invoker.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

func (b *Builder) modelCall(n domain.Node, m *domain.Manifest, cfg domain.ModelCallConfig, categories []string) (Func, error) {
	if cfg.ModelID == "" {
		return nil, errors.New("model_id is required")
	}
	if cfg.PromptTemplate == "" && cfg.PromptID == "" {
		return nil, errors.New("either prompt_template or prompt_id is required")
	}

	// Inline manifest prompts are resolved once; the external store is
	// consulted per invocation.
	template := cfg.PromptTemplate
	if template == "" {
		if inline, ok := manifestPrompt(m, cfg.PromptID); ok {
			template = inline
		}
	}

	nodeID := n.ID
	return func(ctx context.Context, s *domain.State) (domain.StateDelta, error) {
		if b.model == nil {
			return domain.StateDelta{}, retry.NonRetryable(errors.New("no model invoker configured"))
		}

		tmpl := template
		if tmpl == "" {
			if b.prompts == nil {
				return domain.StateDelta{}, retry.NonRetryable(fmt.Errorf("prompt %q: no prompt store configured", cfg.PromptID))
			}
			text, err := b.prompts.GetPrompt(ctx, cfg.PromptID)
			if err != nil {
				return domain.StateDelta{}, fmt.Errorf("prompt %q: %w", cfg.PromptID, err)
			}
			tmpl = text
		}

		view := s.Flatten()
		prompt := expr.Render(tmpl, view)
		if len(categories) > 0 {
			prompt = classifierPrompt(prompt, categories)
		}

		messages := make([]domain.Message, 0, len(s.Messages)+2)
		if cfg.SystemPrompt != "" {
			messages = append(messages, domain.Message{Role: RoleSystem, Content: expr.Render(cfg.SystemPrompt, view)})
		}
		messages = append(messages, s.Messages...)
		messages = append(messages, domain.Message{Role: RoleUser, Content: prompt})

		text, err := b.model.Invoke(ctx, ports.ModelRequest{
			ModelID:     cfg.ModelID,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Messages:    messages,
		})
		if err != nil {
			return domain.StateDelta{}, err
		}

		result := text
		if len(categories) > 0 {
			result = matchCategory(text, categories)
		}

		return domain.StateDelta{
			Outputs: map[string]any{nodeID: result},
			Messages: []domain.Message{
				{Role: RoleUser, Content: prompt},
				{Role: RoleAssistant, Content: text},
			},
		}, nil
	}, nil
}

// manifestPrompt looks up metadata.prompts[id].
func manifestPrompt(m *domain.Manifest, id string) (string, bool) {
	if m == nil || id == "" {
		return "", false
	}
	prompts, ok := m.Metadata[domain.KeyPrompts].(map[string]any)
	if !ok {
		return "", false
	}
	text, ok := prompts[id].(string)
	return text, ok
}

func classifierPrompt(prompt string, categories []string) string {
	return fmt.Sprintf("%s\n\nRespond with exactly one of the following categories and nothing else: %s.",
		prompt, strings.Join(categories, ", "))
}

// matchCategory maps a model answer onto one of the declared categories.
// The raw answer is kept when nothing matches.
func matchCategory(answer string, categories []string) string {
	cleaned := strings.Trim(strings.TrimSpace(answer), ".\"'` \n")
	for _, c := range categories {
		if strings.EqualFold(cleaned, c) {
			return c
		}
	}
	lower := strings.ToLower(cleaned)
	for _, c := range categories {
		if strings.Contains(lower, strings.ToLower(c)) {
			return c
		}
	}
	return strings.TrimSpace(answer)
}
