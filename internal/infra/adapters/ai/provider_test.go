package ai

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"clm-paralegal/internal/config"
)

func TestNewFromConfig(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("noop provider is wrapped and usable", func(t *testing.T) {
		a, err := NewFromConfig(context.Background(), config.AIConfig{
			Provider:        "noop",
			ConcurrentLimit: 2,
			CallTimeout:     time.Second,
		}, &logger)
		if err != nil {
			t.Fatalf("NewFromConfig: %v", err)
		}
		if a.Provider() != "noop" {
			t.Fatalf("provider=%q", a.Provider())
		}
		vecs, err := a.Embed(context.Background(), "noop-embed", []string{"payment terms", "termination"})
		if err != nil || len(vecs) != 2 || len(vecs[0]) != noopDimension {
			t.Fatalf("embed: %d vectors, err=%v", len(vecs), err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewFromConfig(context.Background(), config.AIConfig{Provider: "llama"}, &logger)
		if err == nil || !strings.Contains(err.Error(), "llama") {
			t.Fatalf("err=%v", err)
		}
	})
}
