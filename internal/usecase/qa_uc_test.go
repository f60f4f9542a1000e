//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"clm-paralegal/internal/chunker"
	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
	"clm-paralegal/internal/domain/ports/adapter"
	"clm-paralegal/internal/infra/memstore"
	"clm-paralegal/internal/infra/vectorstore/memory"
	"clm-paralegal/internal/usecase"
)

type qaFixture struct {
	uc       usecase.QAUseCase
	ai       *MockAI
	index    *memory.Storage
	sessions *memstore.SessionStore
}

func newQA(t *testing.T, ai *MockAI, mutate func(*usecase.QAOptions)) qaFixture {
	t.Helper()
	split, err := chunker.NewWindowChunker(1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	opts := usecase.QAOptions{
		GenerationModel: "mock-gen",
		EmbeddingModel:  "mock-embed",
		Collection:      "contracts",
		TopK:            3,
		RecencyWindow:   6,
		MinInputLength:  20,
		AutoInit:        true,
	}
	if mutate != nil {
		mutate(&opts)
	}
	f := qaFixture{ai: ai, index: memory.NewStorage(), sessions: memstore.NewSessionStore()}
	f.uc = usecase.NewQAUseCase(split, ai, f.index, f.sessions, opts, nopLogger())
	return f
}

func TestIngest_ShortContract(t *testing.T) {
	f := newQA(t, &MockAI{}, nil)
	_, err := f.uc.Ingest(context.Background(), "  tiny  ")
	if domain.KindOf(err) != domain.KindInvalidInput {
		t.Fatalf("err=%v", err)
	}
	if f.ai.EmbedCalls() != 0 {
		t.Fatal("embed must not be called")
	}
}

func TestIngest_EmptyChunks(t *testing.T) {
	ai := &MockAI{}
	uc := usecase.NewQAUseCase(nilSplitter{}, ai, memory.NewStorage(), memstore.NewSessionStore(),
		usecase.QAOptions{Collection: "c", MinInputLength: 1}, nopLogger())
	_, err := uc.Ingest(context.Background(), contractText)
	if !errors.Is(err, domain.ErrEmptyContract) {
		t.Fatalf("err=%v", err)
	}
	if st, _ := usecase.StageOf(err); st != usecase.StageChunk {
		t.Fatalf("stage=%q", st)
	}
}

func TestIngest_GrowsIndexWithoutDedup(t *testing.T) {
	f := newQA(t, &MockAI{}, nil)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := f.uc.Ingest(ctx, contractText)
		if err != nil {
			t.Fatalf("Ingest #%d: %v", i, err)
		}
		if len(res.Chunks) != 1 || res.Chunks[0].ID != fmt.Sprintf("contracts:%d", i) {
			t.Fatalf("ingest #%d chunks=%+v", i, res.Chunks)
		}
	}
	if n, _ := f.index.Count(ctx, "contracts"); n != 2 {
		t.Fatalf("count=%d want 2", n)
	}
}

func TestIngest_EmbedFailure(t *testing.T) {
	ai := &MockAI{EmbedFunc: func(context.Context, string, []string) ([][]float32, error) {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingService, domain.ErrQuotaExceeded)
	}}
	f := newQA(t, ai, nil)
	_, err := f.uc.Ingest(context.Background(), contractText)
	if st, _ := usecase.StageOf(err); st != usecase.StageEmbed {
		t.Fatalf("stage=%q err=%v", st, err)
	}
	if !errors.Is(err, domain.ErrEmbeddingService) || domain.KindOf(err) != domain.KindQuotaExceeded {
		t.Fatalf("err=%v kind=%s", err, domain.KindOf(err))
	}
	if n, _ := f.index.Count(context.Background(), "contracts"); n != 0 {
		t.Fatalf("index grew on failure: %d", n)
	}
}

func TestIngest_ShortEmbedding(t *testing.T) {
	ai := &MockAI{EmbedFunc: func(context.Context, string, []string) ([][]float32, error) {
		return [][]float32{}, nil
	}}
	f := newQA(t, ai, nil)
	_, err := f.uc.Ingest(context.Background(), contractText)
	if domain.KindOf(err) != domain.KindNoEmbedding {
		t.Fatalf("err=%v", err)
	}
}

func TestAsk_QuestionEmbeddedAsQuery(t *testing.T) {
	var purposes []bool
	ai := &MockAI{EmbedFunc: func(ctx context.Context, _ string, texts []string) ([][]float32, error) {
		purposes = append(purposes, adapter.IsQuery(ctx))
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 0}
		}
		return out, nil
	}}
	f := newQA(t, ai, nil)
	ctx := context.Background()
	if _, err := f.uc.Ingest(ctx, contractText); err != nil {
		t.Fatal(err)
	}
	if _, err := f.uc.Ask(ctx, "What is the payment term?", "s1"); err != nil {
		t.Fatal(err)
	}
	if len(purposes) != 2 || purposes[0] || !purposes[1] {
		t.Fatalf("query flags per embed call=%v", purposes)
	}
}

func TestAsk_AnswersFromRetrievedContext(t *testing.T) {
	ai := &MockAI{GenerateFunc: func(_ context.Context, _ string, prompt string) (adapter.Generation, error) {
		if strings.Contains(prompt, "Payment due in 30 days") {
			return adapter.Generation{Text: "Payment is due in 30 days."}, nil
		}
		return adapter.Generation{Text: "Not found"}, nil
	}}
	f := newQA(t, ai, nil)
	ctx := context.Background()
	if _, err := f.uc.Ingest(ctx, contractText); err != nil {
		t.Fatal(err)
	}

	answer, err := f.uc.Ask(ctx, "What is the payment term?", "s1")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(answer, "30 days") {
		t.Fatalf("answer=%q", answer)
	}

	prompt := ai.Calls.Generate[0]
	for _, s := range []string{`say "Not found"`, "User Profile:", "Recent Conversation:", "user: What is the payment term?", "Question:\nWhat is the payment term?"} {
		if !strings.Contains(prompt, s) {
			t.Errorf("prompt missing %q", s)
		}
	}
	if got := ai.Calls.Embed[1]; len(got) != 1 || got[0] != "What is the payment term?" {
		t.Fatalf("question embed call=%v", got)
	}

	s, err := f.sessions.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Transcript) != 2 || s.Transcript[0].Role != model.RoleUser || s.Transcript[1].Role != model.RoleAssistant {
		t.Fatalf("transcript=%+v", s.Transcript)
	}
	if s.Transcript[1].Content != answer {
		t.Fatalf("assistant message %q != answer %q", s.Transcript[1].Content, answer)
	}
}

func TestAsk_GenerateFailureKeepsQuestion(t *testing.T) {
	ai := &MockAI{GenerateFunc: func(context.Context, string, string) (adapter.Generation, error) {
		return adapter.Generation{}, domain.ErrQuotaExceeded
	}}
	f := newQA(t, ai, nil)
	ctx := context.Background()

	_, err := f.uc.Ask(ctx, "Who may terminate?", "s1")
	if domain.KindOf(err) != domain.KindQuotaExceeded {
		t.Fatalf("err=%v", err)
	}
	if st, _ := usecase.StageOf(err); st != usecase.StageGenerate {
		t.Fatalf("stage=%q", st)
	}
	s, _ := f.sessions.Get(ctx, "s1")
	if len(s.Transcript) != 1 || s.Transcript[0].Content != "Who may terminate?" {
		t.Fatalf("transcript=%+v", s.Transcript)
	}
}

func TestAsk_StageOfEachFailure(t *testing.T) {
	t.Run("embed", func(t *testing.T) {
		ai := &MockAI{EmbedFunc: func(context.Context, string, []string) ([][]float32, error) {
			return nil, domain.ErrEmbeddingService
		}}
		_, err := newQA(t, ai, nil).uc.Ask(context.Background(), "question?", "s")
		if st, _ := usecase.StageOf(err); st != usecase.StageEmbed || domain.KindOf(err) != domain.KindEmbeddingService {
			t.Fatalf("stage=%q err=%v", st, err)
		}
		if ai.GenerateCalls() != 0 {
			t.Fatal("generate must not run after an embed failure")
		}
	})
	t.Run("retrieve", func(t *testing.T) {
		ai := &MockAI{EmbedFunc: func(context.Context, string, []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil
		}}
		f := newQA(t, ai, nil)
		ctx := context.Background()
		// seed the collection with a different dimension so the query is rejected
		if _, err := f.index.Add(ctx, "contracts", []model.IndexedChunk{{Chunk: model.Chunk{Text: "x"}, Vector: []float32{1, 2, 3}}}); err != nil {
			t.Fatal(err)
		}
		_, err := f.uc.Ask(ctx, "question?", "s")
		if st, _ := usecase.StageOf(err); st != usecase.StageRetrieve {
			t.Fatalf("stage=%q err=%v", st, err)
		}
	})
	t.Run("validate", func(t *testing.T) {
		ai := &MockAI{}
		_, err := newQA(t, ai, nil).uc.Ask(context.Background(), "   ", "s")
		if domain.KindOf(err) != domain.KindInvalidInput || ai.EmbedCalls() != 0 {
			t.Fatalf("err=%v", err)
		}
	})
}

func TestAsk_UnknownSessionWithoutAutoInit(t *testing.T) {
	ai := &MockAI{}
	f := newQA(t, ai, func(o *usecase.QAOptions) { o.AutoInit = false })
	ctx := context.Background()

	_, err := f.uc.Ask(ctx, "What is the payment term?", "ghost")
	if domain.KindOf(err) != domain.KindSessionNotFound {
		t.Fatalf("err=%v", err)
	}
	if ai.EmbedCalls() != 0 || ai.GenerateCalls() != 0 {
		t.Fatal("no remote call expected for an unknown session")
	}
	if _, err := f.sessions.Get(ctx, "ghost"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatal("session must not be created implicitly")
	}

	if err := f.uc.InitSession(ctx, "ghost"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.uc.Ask(ctx, "What is the payment term?", "ghost"); err != nil {
		t.Fatalf("after init: %v", err)
	}
}

func TestAsk_AutoInitIsIdempotent(t *testing.T) {
	f := newQA(t, &MockAI{}, nil)
	ctx := context.Background()
	if err := f.uc.InitSession(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if err := f.uc.SetProfileFact(ctx, "s1", "company", "Acme"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.uc.Ask(ctx, "Hello there, my name is Alice", "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.uc.Ask(ctx, "And the notice period?", "s1"); err != nil {
		t.Fatal(err)
	}

	rendered, err := f.uc.RenderContext(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"company: Acme", "name: Alice", "user: And the notice period?"} {
		if !strings.Contains(rendered, s) {
			t.Errorf("context missing %q:\n%s", s, rendered)
		}
	}
}

func TestRenderContext_UnknownSession(t *testing.T) {
	f := newQA(t, &MockAI{}, nil)
	_, err := f.uc.RenderContext(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("err=%v", err)
	}
	if err := f.uc.SetProfileFact(context.Background(), "nobody", "k", "v"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("set profile err=%v", err)
	}
}

func TestRenderContext_RecencyWindow(t *testing.T) {
	f := newQA(t, &MockAI{GenerateFunc: func(_ context.Context, _ string, p string) (adapter.Generation, error) {
		return adapter.Generation{Text: "re: " + lastLine(p)}, nil
	}}, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := f.uc.Ask(ctx, fmt.Sprintf("q%d", i), "s1"); err != nil {
			t.Fatal(err)
		}
	}
	rendered, _ := f.uc.RenderContext(ctx, "s1")
	// ten entries, window of six: q2 onwards
	if strings.Contains(rendered, "user: q1\n") || !strings.Contains(rendered, "user: q2\n") {
		t.Fatalf("window wrong:\n%s", rendered)
	}
	if !strings.HasSuffix(rendered, "assistant: re: q4\n") {
		t.Fatalf("newest entry should be last:\n%s", rendered)
	}
}

func TestAsk_CollectionsAreIsolated(t *testing.T) {
	f := newQA(t, &MockAI{}, nil)
	ctx := context.Background()
	if _, err := f.uc.IngestInto(ctx, "acme", contractText); err != nil {
		t.Fatal(err)
	}
	a, err := f.uc.AskIn(ctx, "globex", "What is the payment term?", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Sources) != 0 {
		t.Fatalf("leaked sources: %+v", a.Sources)
	}
	a, err = f.uc.AskIn(ctx, "acme", "What is the payment term?", "s2")
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Sources) != 1 || a.Sources[0].Chunk.ID != "acme:0" {
		t.Fatalf("sources=%+v", a.Sources)
	}
}

func TestAsk_ConcurrentSessionsDoNotMix(t *testing.T) {
	f := newQA(t, &MockAI{GenerateFunc: func(_ context.Context, _ string, p string) (adapter.Generation, error) {
		return adapter.Generation{Text: "re: " + lastLine(p)}, nil
	}}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"alpha", "beta"} {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id string, i int) {
				defer wg.Done()
				if _, err := f.uc.Ask(ctx, fmt.Sprintf("%s-q%d", id, i), id); err != nil {
					t.Errorf("Ask: %v", err)
				}
			}(id, i)
		}
	}
	wg.Wait()

	for _, id := range []string{"alpha", "beta"} {
		s, err := f.sessions.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if len(s.Transcript) != 20 {
			t.Fatalf("%s transcript len=%d", id, len(s.Transcript))
		}
		for i := 0; i < len(s.Transcript); i += 2 {
			q, a := s.Transcript[i], s.Transcript[i+1]
			if q.Role != model.RoleUser || a.Role != model.RoleAssistant {
				t.Fatalf("%s: roles interleaved at %d", id, i)
			}
			if !strings.HasPrefix(q.Content, id+"-") || a.Content != "re: "+q.Content {
				t.Fatalf("%s: pair %d = %q / %q", id, i/2, q.Content, a.Content)
			}
		}
	}
}
