// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*GeminiAdapter)(nil)

const (
	providerGemini = "gemini"

	// Gemini accepts at most 100 contents per embed request.
	geminiEmbedBatch = 100
)

type GeminiAdapter struct {
	client *genai.Client
	maxOut int32
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
// baseURL may be empty to use the public endpoint.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL string, maxOut int32) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, maxOut: maxOut}, nil
}

func (g *GeminiAdapter) Provider() string { return providerGemini }

func (g *GeminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	var out []string
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return out, classifyStatus(providerGemini, geminiStatus(err), domain.ErrService, err)
		}
		if m != nil && m.Name != "" {
			out = append(out, strings.TrimPrefix(m.Name, "models/"))
		}
	}
	return out, nil
}

func (g *GeminiAdapter) CountTokens(ctx context.Context, model, text string) (int, error) {
	resp, err := g.client.Models.CountTokens(ctx, model, genai.Text(text), nil)
	if err != nil {
		return 0, classifyStatus(providerGemini, geminiStatus(err), domain.ErrService, err)
	}
	return int(resp.TotalTokens), nil
}

func (g *GeminiAdapter) Generate(ctx context.Context, model, prompt string) (adapter.Generation, error) {
	var cfg *genai.GenerateContentConfig
	if g.maxOut > 0 {
		cfg = &genai.GenerateContentConfig{MaxOutputTokens: g.maxOut}
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return adapter.Generation{}, classifyStatus(providerGemini, geminiStatus(err), domain.ErrService, err)
	}
	text, err := resolveGeminiText(resp)
	if err != nil {
		return adapter.Generation{}, err
	}
	gen := adapter.Generation{Text: text}
	if resp.UsageMetadata != nil {
		gen.Usage = adapter.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return gen, nil
}

func (g *GeminiAdapter) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	task := "RETRIEVAL_DOCUMENT"
	if adapter.IsQuery(ctx) {
		task = "RETRIEVAL_QUERY"
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiEmbedBatch {
		end := min(start+geminiEmbedBatch, len(texts))
		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}
		resp, err := g.client.Models.EmbedContent(ctx, model, contents, &genai.EmbedContentConfig{
			TaskType: task,
		})
		if err != nil {
			return nil, classifyStatus(providerGemini, geminiStatus(err), domain.ErrEmbeddingService, err)
		}
		vecs, err := geminiVectors(resp, end-start)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// --- internal ---

// resolveGeminiText locates reply text once: the first candidate's text parts
// (thoughts skipped) joined, else the first text-bearing part of any candidate.
func resolveGeminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates: %w", domain.ErrExtraction)
	}
	if c := resp.Candidates[0]; c != nil && c.Content != nil {
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if p != nil && p.Text != "" && !p.Thought {
				sb.WriteString(p.Text)
			}
		}
		if s := sb.String(); strings.TrimSpace(s) != "" {
			return s, nil
		}
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && strings.TrimSpace(p.Text) != "" {
				return p.Text, nil
			}
		}
	}
	return "", fmt.Errorf("gemini: no text part: %w", domain.ErrExtraction)
}

func geminiVectors(resp *genai.EmbedContentResponse, want int) ([][]float32, error) {
	if resp == nil || len(resp.Embeddings) != want {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini: %d embeddings for %d inputs: %w", got, want, domain.ErrNoEmbedding)
	}
	out := make([][]float32, want)
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini: empty embedding at %d: %w", i, domain.ErrNoEmbedding)
		}
		out[i] = e.Values
	}
	return out, nil
}
