package ai_test

import (
	"context"
	"errors"
	"testing"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/ports/adapter"
	ai "clm-paralegal/internal/infra/adapters/ai"
)

type stubAI struct {
	name      string
	genN      int
	embedN    int
	ctN       int
	lastModel string
}

func (s *stubAI) Provider() string { return s.name }
func (s *stubAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{s.name + "-model"}, nil
}
func (s *stubAI) CountTokens(ctx context.Context, model, text string) (int, error) {
	s.ctN++
	s.lastModel = model
	return 1, nil
}
func (s *stubAI) Generate(ctx context.Context, model, prompt string) (adapter.Generation, error) {
	s.genN++
	s.lastModel = model
	return adapter.Generation{Text: "ok"}, nil
}
func (s *stubAI) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	s.embedN++
	s.lastModel = model
	return make([][]float32, len(texts)), nil
}

func TestRouting_ExplicitMap_Heuristics_And_Fallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	open := &stubAI{name: "openai"}
	gem := &stubAI{name: "gemini"}

	m := ai.NewMultiAIAdapter(
		"openai",
		map[string]adapter.AIServiceAdapter{"openai": open, "gemini": gem},
		map[string]string{"custom-x": "gemini"},
	)

	// explicit map wins
	_, _ = m.CountTokens(ctx, "custom-x", "hi")
	if gem.ctN != 1 || open.ctN != 0 {
		t.Fatalf("explicit map should route to gemini, got open:%d gem:%d", open.ctN, gem.ctN)
	}

	// gpt-* -> openai
	_, _ = m.Generate(ctx, "gpt-4o-mini", "p")
	if open.genN != 1 || gem.genN != 0 {
		t.Fatalf("heuristic gpt-* should go openai")
	}

	// gemini-* -> gemini
	_, _ = m.Generate(ctx, "gemini-2.0-flash", "p")
	if gem.genN != 1 {
		t.Fatalf("heuristic gemini-* should go gemini")
	}

	// embedding models split by family
	_, _ = m.Embed(ctx, "text-embedding-004", []string{"a"})
	_, _ = m.Embed(ctx, "text-embedding-3-small", []string{"a"})
	if gem.embedN != 1 || open.embedN != 1 {
		t.Fatalf("embedding routing: gem=%d open=%d", gem.embedN, open.embedN)
	}

	// unknown -> default provider (openai)
	open.ctN, gem.ctN = 0, 0
	_, _ = m.CountTokens(ctx, "unknown", "hi")
	if open.ctN != 1 || gem.ctN != 0 {
		t.Fatalf("unknown model should go to default provider (openai)")
	}
}

func TestRouting_MissingProvider(t *testing.T) {
	t.Parallel()
	m := ai.NewMultiAIAdapter("gemini", map[string]adapter.AIServiceAdapter{}, nil)
	_, err := m.Generate(context.Background(), "gpt-4o", "p")
	if !errors.Is(err, domain.ErrService) {
		t.Fatalf("want ErrService, got %v", err)
	}
	_, err = m.Embed(context.Background(), "text-embedding-3-small", []string{"x"})
	if !errors.Is(err, domain.ErrEmbeddingService) {
		t.Fatalf("want ErrEmbeddingService, got %v", err)
	}
}

func TestListModels_Union(t *testing.T) {
	t.Parallel()
	m := ai.NewMultiAIAdapter(
		"openai",
		map[string]adapter.AIServiceAdapter{"openai": &stubAI{name: "openai"}, "gemini": &stubAI{name: "gemini"}},
		map[string]string{"custom-x": "gemini"},
	)
	got, _ := m.ListModels(context.Background())
	want := map[string]bool{"custom-x": true, "openai-model": true, "gemini-model": true}
	if len(got) != len(want) {
		t.Fatalf("models=%v", got)
	}
	for _, g := range got {
		if !want[g] {
			t.Fatalf("unexpected model %q", g)
		}
	}
}
