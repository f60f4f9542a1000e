package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"clm-paralegal/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

const noopDimension = 64

// NoopAIAdapter implements adapter.AIServiceAdapter for local/dev runs without
// API keys. Embeddings are hashed bag-of-words vectors, so retrieval still ranks
// chunks by shared vocabulary; generation echoes the prompt size.
type NoopAIAdapter struct {
	log zerolog.Logger
}

func NewNoopAIAdapter(logger *zerolog.Logger) *NoopAIAdapter {
	return &NoopAIAdapter{log: logger.With().Str("component", "NoopAI").Logger()}
}

func (a *NoopAIAdapter) Provider() string { return "noop" }

func (a *NoopAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop-model"}, nil
}

func (a *NoopAIAdapter) CountTokens(_ context.Context, _ string, text string) (int, error) {
	return estimate(text), nil
}

func (a *NoopAIAdapter) Generate(ctx context.Context, model, prompt string) (adapter.Generation, error) {
	if err := ctx.Err(); err != nil {
		return adapter.Generation{}, err
	}
	a.log.Debug().Str("model", model).Int("prompt_len", len(prompt)).Msg("noop generate")
	return adapter.Generation{
		Text:  fmt.Sprintf("[noop] received %d characters of prompt", len(prompt)),
		Usage: adapter.Usage{PromptTokens: estimate(prompt)},
	}, nil
}

func (a *NoopAIAdapter) Embed(ctx context.Context, _ string, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = HashEmbedding(t, noopDimension)
	}
	return out, nil
}

// HashEmbedding maps lowercase word tokens into dim buckets and L2-normalises.
func HashEmbedding(text string, dim int) []float32 {
	v := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%uint32(dim)]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}
