package adapter

import "context"

// Usage for a single generation call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generation is a resolved model reply. Adapters locate the text once, at the boundary.
type Generation struct {
	Text  string
	Usage Usage
}

// Generator is the port for one-shot LLM text generation.
//
// A nil error means Text is non-empty. Failures wrap domain.ErrQuotaExceeded
// (rate limited), domain.ErrExtraction (call succeeded, no text) or domain.ErrService.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (Generation, error)
}

// Embedder converts texts to vectors, one per input, order preserved.
//
// Failures wrap domain.ErrEmbeddingService (remote call failed) or
// domain.ErrNoEmbedding (call succeeded but returned fewer vectors than inputs).
type Embedder interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

type queryEmbedKey struct{}

// AsQuery marks embeddings requested under ctx as search queries rather than
// documents. Providers with asymmetric embedding models use a query task type.
func AsQuery(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryEmbedKey{}, true)
}

// IsQuery reports whether ctx was marked by AsQuery.
func IsQuery(ctx context.Context) bool {
	v, _ := ctx.Value(queryEmbedKey{}).(bool)
	return v
}

// AIServiceAdapter is the full provider surface wired in main.
type AIServiceAdapter interface {
	Generator
	Embedder

	// Provider is the short provider name used in metrics labels.
	Provider() string
	ListModels(ctx context.Context) ([]string, error)

	// CountTokens returns prompt tokens for text (best-effort when exact isn't available).
	CountTokens(ctx context.Context, model, text string) (int, error)
}
