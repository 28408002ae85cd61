// Package loam serves prompt templates from a directory of Markdown, JSON
// or YAML documents through github.com/aretw0/loam.
package loam

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/loam"
)

// Prompts implements ports.PromptStore over a Loam repository.
// Prompt ids are the frontmatter id, else the file path without extension.
// Resolved texts are cached until Watch reports a change.
type Prompts struct {
	Repo   *loam.TypedRepository[PromptMetadata]
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// Option configures the prompt store.
type Option func(*Prompts)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Prompts) { p.logger = l }
}

// New wraps an existing typed repository.
func New(repo *loam.TypedRepository[PromptMetadata], opts ...Option) *Prompts {
	p := &Prompts{
		Repo:   repo,
		logger: logging.NewNop(),
		cache:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open initializes a read-only, strict Loam repository at dir.
func Open(dir string, opts ...Option) (*Prompts, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numbers as json.Number; the store never writes.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[PromptMetadata](repo), opts...), nil
}

// GetPrompt returns the template text of id.
func (p *Prompts) GetPrompt(ctx context.Context, id string) (string, error) {
	id = trimExtension(id)

	p.mu.RLock()
	text, ok := p.cache[id]
	p.mu.RUnlock()
	if ok {
		return text, nil
	}

	text, err := p.lookup(ctx, id)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.cache[id] = text
	p.mu.Unlock()
	return text, nil
}

// lookup tries the document path first, then scans for a frontmatter id.
func (p *Prompts) lookup(ctx context.Context, id string) (string, error) {
	if doc, err := p.Repo.Get(ctx, id); err == nil {
		return strings.TrimSpace(doc.Content), nil
	}

	docs, err := p.Repo.List(ctx)
	if err != nil {
		return "", fmt.Errorf("loam list failed: %w", err)
	}
	for _, doc := range docs {
		if promptID(doc.Data.ID, doc.ID) != id {
			continue
		}
		// List carries metadata only; the body needs a Get.
		full, err := p.Repo.Get(ctx, doc.ID)
		if err != nil {
			return "", fmt.Errorf("loam get %s failed: %w", doc.ID, err)
		}
		return strings.TrimSpace(full.Content), nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrPromptNotFound, id)
}

// List describes every prompt in the repository. Two documents resolving to
// the same id are reported as an error.
func (p *Prompts) List(ctx context.Context) ([]PromptInfo, error) {
	docs, err := p.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string, len(docs))
	out := make([]PromptInfo, 0, len(docs))
	for _, doc := range docs {
		id := promptID(doc.Data.ID, doc.ID)
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: prompt %q is defined in both %q and %q", id, existing, doc.ID)
		}
		seen[id] = doc.ID
		out = append(out, PromptInfo{
			ID:          id,
			Path:        doc.ID,
			Description: doc.Data.Description,
			Variables:   doc.Data.Variables,
			Tags:        doc.Data.Tags,
		})
	}
	return out, nil
}

// Watch drops cached prompts when their files change and forwards the
// changed document ids.
func (p *Prompts) Watch(ctx context.Context) (<-chan string, error) {
	events, err := p.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				p.Invalidate()
				p.logger.Debug("prompt changed", "path", evt.ID)
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// Invalidate clears the resolved prompt cache.
func (p *Prompts) Invalidate() {
	p.mu.Lock()
	p.cache = make(map[string]string)
	p.mu.Unlock()
}

func promptID(explicit, path string) string {
	if explicit != "" {
		return trimExtension(explicit)
	}
	return trimExtension(path)
}

func trimExtension(id string) string {
	if ext := filepath.Ext(id); ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

var _ ports.PromptStore = (*Prompts)(nil)
