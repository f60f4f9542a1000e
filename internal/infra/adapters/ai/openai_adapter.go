package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

const providerOpenAI = "openai"

// OpenAIAdapter implements adapter.AIServiceAdapter with the official SDK.
// Any OpenAI-compatible gateway works through baseURL.
type OpenAIAdapter struct {
	client openai.Client
	maxOut int64
	tokens *TokenCounter
}

func NewOpenAIAdapter(apiKey, baseURL string, maxOut int64, tokens *TokenCounter) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// quota failures are surfaced to the caller, never retried here
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &OpenAIAdapter{
		client: openai.NewClient(opts...),
		maxOut: maxOut,
		tokens: tokens,
	}, nil
}

func (o *OpenAIAdapter) Provider() string { return providerOpenAI }

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	page, err := o.client.Models.List(ctx)
	if err != nil {
		return nil, o.classify(err, domain.ErrService)
	}
	out := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		out = append(out, m.ID)
	}
	return out, nil
}

// CountTokens has no remote endpoint on OpenAI; it is a local tiktoken estimate.
func (o *OpenAIAdapter) CountTokens(_ context.Context, model, text string) (int, error) {
	return o.tokens.Count(model, text), nil
}

func (o *OpenAIAdapter) Generate(ctx context.Context, model, prompt string) (adapter.Generation, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if o.maxOut > 0 {
		params.MaxCompletionTokens = openai.Int(o.maxOut)
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return adapter.Generation{}, o.classify(err, domain.ErrService)
	}
	var text string
	for _, c := range resp.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			text = c.Message.Content
			break
		}
	}
	if text == "" {
		return adapter.Generation{}, fmt.Errorf("openai: no choice content: %w", domain.ErrExtraction)
	}
	return adapter.Generation{
		Text: text,
		Usage: adapter.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func (o *OpenAIAdapter) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, o.classify(err, domain.ErrEmbeddingService)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: %d embeddings for %d inputs: %w", len(resp.Data), len(texts), domain.ErrNoEmbedding)
	}
	// The API reports each vector's input index; place by index, not arrival order.
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		i := int(d.Index)
		if i < 0 || i >= len(out) || out[i] != nil || len(d.Embedding) == 0 {
			return nil, fmt.Errorf("openai: bad embedding index %d: %w", i, domain.ErrNoEmbedding)
		}
		v := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			v[j] = float32(f)
		}
		out[i] = v
	}
	return out, nil
}

func (o *OpenAIAdapter) classify(err error, base error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return classifyStatus(providerOpenAI, apierr.StatusCode, base, err)
	}
	return classifyStatus(providerOpenAI, 0, base, err)
}
