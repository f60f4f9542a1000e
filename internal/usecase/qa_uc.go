// File: internal/usecase/qa_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
	"clm-paralegal/internal/domain/ports/adapter"
	"clm-paralegal/internal/domain/ports/repository"
	"clm-paralegal/internal/infra/logging"
	"clm-paralegal/internal/infra/metrics"
)

// Compile-time check
var _ QAUseCase = (*qaUC)(nil)

type QAUseCase interface {
	// Ingest chunks, embeds and indexes contract text into the default collection.
	Ingest(ctx context.Context, text string) (*IngestResult, error)
	IngestInto(ctx context.Context, collection, text string) (*IngestResult, error)
	// Ask answers a question from the default collection using session memory.
	Ask(ctx context.Context, question, sessionID string) (string, error)
	AskIn(ctx context.Context, collection, question, sessionID string) (*Answer, error)

	InitSession(ctx context.Context, sessionID string) error
	SetProfileFact(ctx context.Context, sessionID, key, value string) error
	RenderContext(ctx context.Context, sessionID string) (string, error)
}

// Splitter cuts contract text into chunks.
type Splitter interface {
	Split(text string) []string
}

type IngestResult struct {
	Collection string        `json:"collection"`
	Chunks     []model.Chunk `json:"chunks"`
}

type Answer struct {
	Text    string              `json:"answer"`
	Sources []model.ScoredChunk `json:"sources"`
}

// QAOptions carries the tunables the orchestrator recognises.
type QAOptions struct {
	GenerationModel string
	EmbeddingModel  string
	Collection      string
	TopK            int
	RecencyWindow   int
	MinInputLength  int
	AutoInit        bool
	Dev             bool
}

type qaUC struct {
	splitter Splitter
	ai       adapter.AIServiceAdapter
	index    repository.VectorIndex
	sessions repository.SessionStore
	opts     QAOptions
	log      zerolog.Logger
}

func NewQAUseCase(
	splitter Splitter,
	ai adapter.AIServiceAdapter,
	index repository.VectorIndex,
	sessions repository.SessionStore,
	opts QAOptions,
	logger *zerolog.Logger,
) *qaUC {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.RecencyWindow <= 0 {
		opts.RecencyWindow = model.DefaultRecencyWindow
	}
	return &qaUC{
		splitter: splitter,
		ai:       ai,
		index:    index,
		sessions: sessions,
		opts:     opts,
		log:      logger.With().Str("component", "QAUseCase").Logger(),
	}
}

func (uc *qaUC) collection(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return uc.opts.Collection
}

func (uc *qaUC) Ingest(ctx context.Context, text string) (*IngestResult, error) {
	return uc.IngestInto(ctx, "", text)
}

func (uc *qaUC) IngestInto(ctx context.Context, collection, text string) (*IngestResult, error) {
	const op = "ingest"
	collection = uc.collection(collection)
	log := logging.With(ctx, &uc.log)
	defer logging.TraceDuration(log, "QAUseCase.Ingest")()

	if utf8.RuneCountInString(strings.TrimSpace(text)) < uc.opts.MinInputLength {
		return nil, stageErr(op, StageValidate,
			fmt.Errorf("contract text must be at least %d characters: %w", uc.opts.MinInputLength, domain.ErrInvalidInput))
	}

	parts := uc.splitter.Split(text)
	if len(parts) == 0 {
		return nil, stageErr(op, StageChunk, domain.ErrEmptyContract)
	}

	vectors, err := uc.ai.Embed(ctx, uc.opts.EmbeddingModel, parts)
	if err != nil {
		return nil, stageErr(op, StageEmbed, err)
	}
	if len(vectors) != len(parts) {
		return nil, stageErr(op, StageEmbed,
			fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrNoEmbedding, len(vectors), len(parts)))
	}

	items := make([]model.IndexedChunk, len(parts))
	for i, p := range parts {
		items[i] = model.IndexedChunk{
			Chunk:  model.Chunk{Collection: collection, Index: i, Text: p},
			Vector: vectors[i],
		}
	}
	stored, err := uc.index.Add(ctx, collection, items)
	if err != nil {
		return nil, stageErr(op, StageIndex, err)
	}
	metrics.AddChunksIndexed(len(stored))
	log.Info().Str("collection", collection).Int("chunks", len(stored)).Msg("contract ingested")
	return &IngestResult{Collection: collection, Chunks: stored}, nil
}

func (uc *qaUC) Ask(ctx context.Context, question, sessionID string) (string, error) {
	a, err := uc.AskIn(ctx, "", question, sessionID)
	if err != nil {
		return "", err
	}
	return a.Text, nil
}

func (uc *qaUC) AskIn(ctx context.Context, collection, question, sessionID string) (*Answer, error) {
	a, err := uc.ask(ctx, uc.collection(collection), question, sessionID)
	if err != nil {
		metrics.IncQuestion(string(domain.KindOf(err)))
		return nil, err
	}
	metrics.IncQuestion("ok")
	return a, nil
}

// ask holds the session lock for the whole sequence so concurrent questions on
// one session never interleave their transcript entries.
func (uc *qaUC) ask(ctx context.Context, collection, question, sessionID string) (*Answer, error) {
	const op = "ask"
	ctx = logging.WithSessID(ctx, sessionID)
	log := logging.With(ctx, &uc.log)
	defer logging.TraceDuration(log, "QAUseCase.Ask")()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, stageErr(op, StageValidate, fmt.Errorf("empty question: %w", domain.ErrInvalidInput))
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, stageErr(op, StageValidate, fmt.Errorf("empty session id: %w", domain.ErrInvalidInput))
	}

	unlock, err := uc.sessions.Lock(ctx, sessionID)
	if err != nil {
		return nil, stageErr(op, StageSession, err)
	}
	defer unlock()

	if uc.opts.AutoInit {
		err = uc.sessions.Init(ctx, sessionID)
	} else {
		_, err = uc.sessions.Get(ctx, sessionID)
	}
	if err != nil {
		return nil, stageErr(op, StageSession, err)
	}

	for k, v := range ExtractProfile(question) {
		if err := uc.sessions.SetProfileFact(ctx, sessionID, k, v); err != nil {
			return nil, stageErr(op, StageSession, err)
		}
	}
	if err := uc.sessions.AppendMessage(ctx, sessionID, model.RoleUser, question); err != nil {
		return nil, stageErr(op, StageSession, err)
	}

	vectors, err := uc.ai.Embed(adapter.AsQuery(ctx), uc.opts.EmbeddingModel, []string{question})
	if err != nil {
		return nil, stageErr(op, StageEmbed, err)
	}
	if len(vectors) != 1 {
		return nil, stageErr(op, StageEmbed, domain.ErrNoEmbedding)
	}

	hits, err := uc.index.Query(ctx, collection, vectors[0], uc.opts.TopK)
	if err != nil {
		return nil, stageErr(op, StageRetrieve, err)
	}
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Chunk.Text
	}

	sess, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, stageErr(op, StageSession, err)
	}

	prompt := askPrompt(sess.RenderContext(uc.opts.RecencyWindow), strings.Join(texts, "\n\n"), question)
	log.Debug().
		Int("hits", len(hits)).
		Str("question", logging.Redact(question, uc.opts.Dev)).
		Msg("prompting with retrieved context")

	gen, err := uc.ai.Generate(ctx, uc.opts.GenerationModel, prompt)
	if err != nil {
		return nil, stageErr(op, StageGenerate, err)
	}
	if err := uc.sessions.AppendMessage(ctx, sessionID, model.RoleAssistant, gen.Text); err != nil {
		return nil, stageErr(op, StageSession, err)
	}
	return &Answer{Text: gen.Text, Sources: hits}, nil
}

func askPrompt(memory, contractContext, question string) string {
	return fmt.Sprintf(`You are a contract analysis assistant.

Use the contract context AND conversation memory to answer.
If info is missing, say "Not found".

%s
Contract Context:
%s

Question:
%s
`, memory, contractContext, question)
}

func (uc *qaUC) InitSession(ctx context.Context, sessionID string) error {
	return uc.sessions.Init(ctx, sessionID)
}

func (uc *qaUC) SetProfileFact(ctx context.Context, sessionID, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("empty profile key: %w", domain.ErrInvalidInput)
	}
	unlock, err := uc.sessions.Lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()
	return uc.sessions.SetProfileFact(ctx, sessionID, key, value)
}

func (uc *qaUC) RenderContext(ctx context.Context, sessionID string) (string, error) {
	sess, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return sess.RenderContext(uc.opts.RecencyWindow), nil
}
