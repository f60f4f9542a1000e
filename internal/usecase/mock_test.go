//go:build !integration

package usecase_test

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"clm-paralegal/internal/domain/ports/adapter"
	aiadapter "clm-paralegal/internal/infra/adapters/ai"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

const contractText = "Payment due in 30 days. Either party may terminate with 14 days notice."

// =============================
// Adapters
// =============================

// ---- Mock AIServiceAdapter ----

type MockAI struct {
	mu sync.Mutex

	// configurable behavior
	GenerateFunc func(ctx context.Context, model, prompt string) (adapter.Generation, error)
	EmbedFunc    func(ctx context.Context, model string, texts []string) ([][]float32, error)

	// tracing of invocations
	Calls struct {
		Generate []string
		Embed    [][]string
	}
}

var _ adapter.AIServiceAdapter = (*MockAI)(nil)

func (m *MockAI) Provider() string { return "mock" }

func (m *MockAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{"mock-gen", "mock-embed"}, nil
}

func (m *MockAI) CountTokens(ctx context.Context, model, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func (m *MockAI) Generate(ctx context.Context, model, prompt string) (adapter.Generation, error) {
	m.mu.Lock()
	m.Calls.Generate = append(m.Calls.Generate, prompt)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, model, prompt)
	}
	return adapter.Generation{Text: "ok"}, nil
}

func (m *MockAI) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.Calls.Embed = append(m.Calls.Embed, append([]string(nil), texts...))
	m.mu.Unlock()
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, model, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = aiadapter.HashEmbedding(t, 64)
	}
	return out, nil
}

func (m *MockAI) GenerateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls.Generate)
}

func (m *MockAI) EmbedCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls.Embed)
}

// lastLine returns the final non-empty line of a prompt, which is the question in ask prompts.
func lastLine(prompt string) string {
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// ---- Splitters ----

type nilSplitter struct{}

func (nilSplitter) Split(string) []string { return nil }
