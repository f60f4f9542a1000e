package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"clm-paralegal/internal/config"
	"clm-paralegal/internal/domain/ports/adapter"
)

// NewFromConfig builds the provider adapter named by cfg.Provider, wrapped with
// metrics and the concurrency/timeout limiter.
func NewFromConfig(ctx context.Context, cfg config.AIConfig, logger *zerolog.Logger) (adapter.AIServiceAdapter, error) {
	tokens := NewTokenCounter(logger)
	inner, err := newProvider(ctx, cfg, tokens, logger)
	if err != nil {
		return nil, err
	}
	return NewLimitedAI(NewMeteredAI(inner, tokens, logger), cfg.ConcurrentLimit, cfg.CallTimeout), nil
}

func newProvider(ctx context.Context, cfg config.AIConfig, tokens *TokenCounter, logger *zerolog.Logger) (adapter.AIServiceAdapter, error) {
	gemini := func() (adapter.AIServiceAdapter, error) {
		a, err := NewGeminiAdapter(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.MaxOutputTokens)
		if err != nil {
			return nil, fmt.Errorf("gemini adapter: %w", err)
		}
		return a, nil
	}
	openai := func() (adapter.AIServiceAdapter, error) {
		a, err := NewOpenAIAdapter(cfg.OpenAIKey, cfg.OpenAIBaseURL, int64(cfg.MaxOutputTokens), tokens)
		if err != nil {
			return nil, fmt.Errorf("openai adapter: %w", err)
		}
		return a, nil
	}

	switch cfg.Provider {
	case providerGemini:
		return gemini()
	case providerOpenAI:
		return openai()
	case "multi":
		g, err := gemini()
		if err != nil {
			return nil, err
		}
		o, err := openai()
		if err != nil {
			return nil, err
		}
		return NewMultiAIAdapter(providerGemini, map[string]adapter.AIServiceAdapter{
			providerGemini: g,
			providerOpenAI: o,
		}, nil), nil
	case "noop":
		logger.Warn().Msg("AI provider is noop: replies are canned and embeddings are hashed")
		return NewNoopAIAdapter(logger), nil
	default:
		return nil, fmt.Errorf("ai.provider %q is not supported", cfg.Provider)
	}
}
