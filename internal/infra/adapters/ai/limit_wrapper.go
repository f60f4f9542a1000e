package ai

import (
	"context"
	"time"

	"clm-paralegal/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AIServiceAdapter = (*limitedAI)(nil)

// limitedAI bounds in-flight remote calls and gives each call its own deadline.
type limitedAI struct {
	inner   adapter.AIServiceAdapter
	sem     chan struct{}
	timeout time.Duration
}

// NewLimitedAI wraps inner. maxConcurrent<=0 disables the semaphore and
// timeout<=0 disables the per-call deadline.
func NewLimitedAI(inner adapter.AIServiceAdapter, maxConcurrent int, timeout time.Duration) adapter.AIServiceAdapter {
	if maxConcurrent <= 0 && timeout <= 0 {
		return inner
	}
	l := &limitedAI{inner: inner, timeout: timeout}
	if maxConcurrent > 0 {
		l.sem = make(chan struct{}, maxConcurrent)
	}
	return l
}

// acquire waits for a slot; the returned context carries the call deadline.
func (l *limitedAI) acquire(ctx context.Context) (context.Context, func(), error) {
	if l.sem != nil {
		select {
		case l.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	cancel := func() {}
	if l.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
	}
	return ctx, func() {
		cancel()
		if l.sem != nil {
			<-l.sem
		}
	}, nil
}

func (l *limitedAI) Provider() string { return l.inner.Provider() }

func (l *limitedAI) ListModels(ctx context.Context) ([]string, error) {
	return l.inner.ListModels(ctx)
}

func (l *limitedAI) CountTokens(ctx context.Context, model, text string) (int, error) {
	ctx, release, err := l.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()
	return l.inner.CountTokens(ctx, model, text)
}

func (l *limitedAI) Generate(ctx context.Context, model, prompt string) (adapter.Generation, error) {
	ctx, release, err := l.acquire(ctx)
	if err != nil {
		return adapter.Generation{}, err
	}
	defer release()
	return l.inner.Generate(ctx, model, prompt)
}

func (l *limitedAI) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	ctx, release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.inner.Embed(ctx, model, texts)
}
