// File: internal/infra/adapters/ai/multi_adapter.go
package ai

import (
	"context"
	"fmt"
	"strings"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*MultiAIAdapter)(nil)

// MultiAIAdapter lets generation and embeddings live on different providers,
// e.g. a Gemini chat model with OpenAI embeddings.
type MultiAIAdapter struct {
	defaultProvider string // e.g., "openai" or "gemini"
	byProvider      map[string]adapter.AIServiceAdapter
	modelToProvider map[string]string // model -> provider ("openai" | "gemini")
}

// NewMultiAIAdapter does not inject any default model; it only knows a default provider.
func NewMultiAIAdapter(
	defaultProvider string,
	byProvider map[string]adapter.AIServiceAdapter,
	modelToProvider map[string]string,
) *MultiAIAdapter {
	return &MultiAIAdapter{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
		modelToProvider: modelToProvider,
	}
}

var providerPrefixes = []struct {
	prefix   string
	provider string
}{
	{"gemini", providerGemini},
	{"models/", providerGemini},
	{"text-embedding-004", providerGemini},
	{"embedding-", providerGemini},
	{"gpt", providerOpenAI},
	{"o1", providerOpenAI},
	{"o3", providerOpenAI},
	{"o4", providerOpenAI},
	{"text-embedding-", providerOpenAI},
}

func (m *MultiAIAdapter) resolveProvider(model string) string {
	if p := m.modelToProvider[model]; p != "" {
		return strings.ToLower(p)
	}
	l := strings.ToLower(model)
	for _, pp := range providerPrefixes {
		if strings.HasPrefix(l, pp.prefix) {
			return pp.provider
		}
	}
	return m.defaultProvider
}

func (m *MultiAIAdapter) pick(model string) (adapter.AIServiceAdapter, error) {
	prov := m.resolveProvider(model)
	if a := m.byProvider[prov]; a != nil {
		return a, nil
	}
	// last resort: default provider
	if a := m.byProvider[m.defaultProvider]; a != nil {
		return a, nil
	}
	return nil, fmt.Errorf("no provider configured for model %q: %w", model, domain.ErrService)
}

func (m *MultiAIAdapter) Provider() string { return "multi" }

func (m *MultiAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(m.modelToProvider)+4)

	// 1) models explicitly mapped in config
	for model := range m.modelToProvider {
		if _, ok := seen[model]; !ok {
			seen[model] = struct{}{}
			out = append(out, model)
		}
	}

	// 2) union of each provider's ListModels
	for _, a := range m.byProvider {
		list, _ := a.ListModels(ctx)
		for _, name := range list {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out, nil
}

func (m *MultiAIAdapter) CountTokens(ctx context.Context, model, text string) (int, error) {
	a, err := m.pick(model)
	if err != nil {
		return 0, err
	}
	return a.CountTokens(ctx, model, text)
}

func (m *MultiAIAdapter) Generate(ctx context.Context, model, prompt string) (adapter.Generation, error) {
	a, err := m.pick(model)
	if err != nil {
		return adapter.Generation{}, err
	}
	return a.Generate(ctx, model, prompt)
}

func (m *MultiAIAdapter) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	a, err := m.pick(model)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingService, err)
	}
	return a.Embed(ctx, model, texts)
}
