package ai

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/ports/adapter"
	"clm-paralegal/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*meteredAI)(nil)

// meteredAI records call outcomes, latency and token usage for every remote call.
type meteredAI struct {
	inner  adapter.AIServiceAdapter
	tokens *TokenCounter
	log    zerolog.Logger
}

func NewMeteredAI(inner adapter.AIServiceAdapter, tokens *TokenCounter, logger *zerolog.Logger) adapter.AIServiceAdapter {
	return &meteredAI{
		inner:  inner,
		tokens: tokens,
		log:    logger.With().Str("component", "AIAdapter").Str("provider", inner.Provider()).Logger(),
	}
}

func (m *meteredAI) Provider() string { return m.inner.Provider() }

func (m *meteredAI) ListModels(ctx context.Context) ([]string, error) {
	return m.inner.ListModels(ctx)
}

func (m *meteredAI) CountTokens(ctx context.Context, model, text string) (int, error) {
	return m.inner.CountTokens(ctx, model, text)
}

func (m *meteredAI) Generate(ctx context.Context, model, prompt string) (adapter.Generation, error) {
	start := time.Now()
	gen, err := m.inner.Generate(ctx, model, prompt)
	m.observe("generate", model, start, err)
	if err != nil {
		return gen, err
	}
	in := gen.Usage.PromptTokens
	if in == 0 {
		in = m.tokens.Count(model, prompt)
	}
	metrics.AddTokens(m.inner.Provider(), model, in, gen.Usage.CompletionTokens)
	return gen, nil
}

func (m *meteredAI) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := m.inner.Embed(ctx, model, texts)
	m.observe("embed", model, start, err)
	if err == nil {
		in := 0
		for _, t := range texts {
			in += m.tokens.Count(model, t)
		}
		metrics.AddTokens(m.inner.Provider(), model, in, 0)
	}
	return vecs, err
}

func (m *meteredAI) observe(op, model string, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	metrics.ObserveAICall(m.inner.Provider(), op, outcome, elapsed.Milliseconds())
	ev := m.log.Debug()
	if err != nil {
		ev = m.log.Warn().Err(err)
	}
	ev.Str("op", op).Str("model", model).Str("outcome", outcome).Dur("duration", elapsed).Msg("ai call")
}
